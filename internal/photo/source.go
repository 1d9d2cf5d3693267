package photo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
)

var (
	// ErrFetch wraps any failure to retrieve photo bytes.
	ErrFetch = errors.New("photo fetch failed")

	// ErrUnsupportedSource is returned for locations no source can serve.
	ErrUnsupportedSource = errors.New("unsupported photo location")

	// ErrEmpty is returned when a source yields zero bytes.
	ErrEmpty = errors.New("empty photo")
)

// Source retrieves the raw bytes stored at a location.
type Source interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// LocalSource reads photos from a filesystem.
type LocalSource struct {
	fs afero.Fs
}

// NewLocalSource serves paths from fs; nil means the OS filesystem.
func NewLocalSource(fs afero.Fs) *LocalSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &LocalSource{fs: fs}
}

func (s *LocalSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(location, "file://")
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return data, nil
}

// RemoteSource downloads photos over HTTP(S).
type RemoteSource struct {
	client *resty.Client
}

// NewRemoteSource builds a resty client with the given per-request timeout.
func NewRemoteSource(timeout time.Duration) *RemoteSource {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Accept", "image/*")
	return &RemoteSource{client: client}
}

func (s *RemoteSource) Fetch(ctx context.Context, location string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrFetch, location, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, ErrEmpty
	}
	return body, nil
}

// Router sends http(s) locations to Remote and everything else to Local.
type Router struct {
	Local  Source
	Remote Source
}

func (r Router) Fetch(ctx context.Context, location string) ([]byte, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, ErrUnsupportedSource
	case isRemote(location):
		if r.Remote == nil {
			return nil, ErrUnsupportedSource
		}
		return r.Remote.Fetch(ctx, location)
	default:
		if r.Local == nil {
			return nil, ErrUnsupportedSource
		}
		return r.Local.Fetch(ctx, location)
	}
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
