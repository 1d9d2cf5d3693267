// Package photo turns a stored violation photo into a small, upright PNG
// sized for a notice page.
package photo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
)

var (
	// ErrNotImage is returned when fetched bytes are not an image.
	ErrNotImage = errors.New("not an image")
	// ErrDecode wraps image decoding failures.
	ErrDecode   = errors.New("photo decode failed")
)

// Options bound and tune the prepared output. Sizes are in points.
type Options struct {
	MaxWidth  float64
	MaxHeight float64
	// DPI converts pixels to points; 72 keeps them 1:1.
	DPI float64
	// Sharpen is the enhancement factor of a light blur-then-sharpen pass
	// after resizing: 1.3 adds mild edge contrast. Values at or below 1.0
	// skip the pass.
	Sharpen float64
	// FullOrientation honors all eight EXIF orientations. When false only
	// the rotation cases 3, 6 and 8 are applied.
	FullOrientation bool
}

// DefaultOptions matches the letter layout: a 180x240pt box.
func DefaultOptions() Options {
	return Options{
		MaxWidth:        180,
		MaxHeight:       240,
		DPI:             72,
		Sharpen:         1.3,
		FullOrientation: true,
	}
}

// Prepared is an encoded PNG plus its placed size in points.
type Prepared struct {
	Data        []byte
	Width       float64
	Height      float64
	PixelWidth  int
	PixelHeight int
	Orientation int
}

// Preparer fetches, orients, resizes and re-encodes photos.
type Preparer struct {
	src    Source
	opts   Options
	logger *zap.Logger
}

func NewPreparer(src Source, opts Options, logger *zap.Logger) *Preparer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	return &Preparer{src: src, opts: opts, logger: logger}
}

// Prepare runs one photo through the whole chain. Any error means the
// caller should fall back to a placeholder.
func (p *Preparer) Prepare(ctx context.Context, location string) (*Prepared, error) {
	raw, err := p.src.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	if mt := mimetype.Detect(raw); !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	img = flatten(img)

	orientation, err := readOrientation(raw)
	if err != nil {
		// Missing or unreadable EXIF just means the photo is used as stored.
		p.logger.Debug("no exif orientation", zap.String("location", location), zap.Error(err))
		orientation = 1
	}
	img = orient(img, orientation, p.opts.FullOrientation)

	img = p.resize(img)
	if p.opts.Sharpen > 1.0 {
		img = sharpness(imaging.Blur(img, 0.5), p.opts.Sharpen)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}

	b := img.Bounds()
	pointsPerPixel := 72 / p.opts.DPI
	return &Prepared{
		Data:        buf.Bytes(),
		Width:       float64(b.Dx()) * pointsPerPixel,
		Height:      float64(b.Dy()) * pointsPerPixel,
		PixelWidth:  b.Dx(),
		PixelHeight: b.Dy(),
		Orientation: orientation,
	}, nil
}

// smoothKernel is a light 3x3 smoothing filter; sharpness pushes pixels away
// from it.
var smoothKernel = [9]float64{1, 1, 1, 1, 5, 1, 1, 1, 1}

// sharpness interpolates between a smoothed copy of img (factor 0) and img
// itself (factor 1); factors above 1 extrapolate past the original.
func sharpness(img image.Image, factor float64) *image.NRGBA {
	out := imaging.Clone(img)
	smooth := imaging.Convolve3x3(out, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
	for i := range out.Pix {
		s := float64(smooth.Pix[i])
		v := s + factor*(float64(out.Pix[i])-s)
		out.Pix[i] = uint8(math.Round(min(max(v, 0), 255)))
	}
	return out
}

// resize fits img into the configured box without upscaling. Large
// reductions go through a 1.5x intermediate to avoid aliasing.
func (p *Preparer) resize(img image.Image) image.Image {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	maxW := int(p.opts.MaxWidth * p.opts.DPI / 72)
	maxH := int(p.opts.MaxHeight * p.opts.DPI / 72)

	newW, newH := fitWithin(width, height, maxW, maxH)
	if newW == width && newH == height {
		return img
	}
	if width > newW*2 || height > newH*2 {
		img = imaging.Resize(img, newW*3/2, newH*3/2, imaging.Lanczos)
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// fitWithin scales (w, h) by min(maxW/w, maxH/h, 1). Non-positive bounds
// leave that axis unconstrained.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	ratio := 1.0
	if maxW > 0 {
		ratio = min(ratio, float64(maxW)/float64(w))
	}
	if maxH > 0 {
		ratio = min(ratio, float64(maxH)/float64(h))
	}
	newW := max(int(float64(w)*ratio), 1)
	newH := max(int(float64(h)*ratio), 1)
	return newW, newH
}

// flatten drops alpha onto a white background so output is plain RGB.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func readOrientation(raw []byte) (int, error) {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

// orient applies an EXIF orientation value. Unknown values are ignored.
func orient(img image.Image, orientation int, full bool) image.Image {
	switch orientation {
	case 3:
		return imaging.Rotate180(img)
	case 6:
		return imaging.Rotate270(img)
	case 8:
		return imaging.Rotate90(img)
	}
	if !full {
		return img
	}
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 7:
		return imaging.Transverse(img)
	}
	return img
}
