package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"covenants/internal/notice"
	"covenants/internal/photo"
	"covenants/internal/types"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngPhoto(t *testing.T, w, h int) *photo.Prepared {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{G: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &photo.Prepared{Data: buf.Bytes(), Width: float64(w), Height: float64(h), PixelWidth: w, PixelHeight: h, Orientation: 1}
}

func sampleBlocks(t *testing.T) []notice.Block {
	issued := time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC)
	return []notice.Block{
		&notice.Header{
			District: types.District{
				Key:          "highlands_mead",
				Name:         "Highlands Mead Metropolitan District",
				AddressLine1: "c/o Public Alliance LLC",
				Phone:        "(720) 213-6621",
			},
			Title:           "Courtesy Notice",
			Date:            notice.FormatDate(issued),
			Issued:          issued,
			RecipientName:   "Jane Smith",
			RecipientLines:  []string{"123 Main St", "Fort Collins, CO 80525"},
			Email:           "jane@example.com",
			PropertyAddress: "123 Main St.",
			Summary:         "Violation: Landscaping, Trash Containers",
			Intro:           "One of the primary responsibilities of the District is to protect the neighborhood.",
		},
		&notice.Section{
			Number: 1, Label: "Violation 1", ViolationID: 7, ViolationType: "weeds",
			Heading:     "2.26 Landscaping",
			Description: "Landscaping must be kept neat.\n• No weeds\n• No dead plants",
			Notes:       "Front bed",
			Image:       pngPhoto(t, 90, 120),
			Caption:     "Violation Image",
		},
		&notice.Section{
			Number: 2, Label: "Violation 2", PageBreak: true, ViolationID: 8, ViolationType: "trash_recycle_cans",
			Heading:     "2.49 Trash Containers",
			Description: "Containers must be stored out of view.",
			Placeholder: "No image available",
		},
		&notice.Footer{
			Remedy:    "We ask that you remedy these matters within the next 30 days from the date of this letter.",
			Thanks:    "Thank you.",
			Closing:   "Sincerely,",
			Signature: "Highlands Mead Metropolitan District",
		},
	}
}

func readPDF(t *testing.T, data []byte) (int, string) {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	plain, err := r.GetPlainText()
	require.NoError(t, err)
	text, err := io.ReadAll(plain)
	require.NoError(t, err)
	return r.NumPage(), string(text)
}

func TestFileName(t *testing.T) {
	h := &notice.Header{
		PropertyAddress: "123 Main St., Fort Collins, CO",
		Issued:          time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "123_Main_St_Fort_Collins_CO_20250520.pdf", FileName(h))
	assert.Equal(t, "notice.pdf", FileName(&notice.Header{}))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(afero.NewMemMapFs(), nil).Render(&buf, sampleBlocks(t)))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	pages, text := readPDF(t, buf.Bytes())
	assert.Equal(t, 2, pages, "one page per violation")
	assert.Contains(t, text, "Courtesy Notice")
	assert.Contains(t, text, "2.26 Landscaping")
	assert.Contains(t, text, "Violation 2")
	assert.Contains(t, text, "No image available")
	assert.Contains(t, text, "Sincerely,")
}

func TestRenderRequiresHeader(t *testing.T) {
	r := New(afero.NewMemMapFs(), nil)
	var buf bytes.Buffer

	assert.ErrorIs(t, r.Render(&buf, nil), ErrNoHeader)
	assert.ErrorIs(t, r.Render(&buf, []notice.Block{&notice.Footer{}}), ErrNoHeader)
}

func TestRenderBadImage(t *testing.T) {
	blocks := sampleBlocks(t)
	blocks[1].(*notice.Section).Image = &photo.Prepared{Data: []byte("not a png"), Width: 10, Height: 10}

	var buf bytes.Buffer
	err := New(afero.NewMemMapFs(), nil).Render(&buf, blocks)
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	path, err := New(fs, nil).WriteFile("output", sampleBlocks(t))
	require.NoError(t, err)
	assert.Equal(t, "output/123_Main_St_20250520.pdf", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
