// Package render lays notice blocks out on letter-size PDF pages.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"covenants/internal/notice"

	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNoHeader is returned for block sequences that do not open with a header.
var ErrNoHeader = errors.New("notice has no header block")

const (
	family     = "Helvetica"
	margin     = 36.0 // half an inch
	bodySize   = 10.0
	lineHeight = 12.0
	gap        = 7.0
)

// Renderer writes notices as PDF documents.
type Renderer struct {
	fs     afero.Fs
	logger *zap.Logger
}

// New returns a renderer that saves files on fs; nil means the OS filesystem.
func New(fs afero.Fs, logger *zap.Logger) *Renderer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{fs: fs, logger: logger}
}

// FileName derives the output name from the property address and the
// notice date: "123_Main_St_20250520.pdf".
func FileName(h *notice.Header) string {
	name := strings.NewReplacer(" ", "_", ",", "", ".", "").Replace(strings.TrimSpace(h.PropertyAddress))
	if name == "" {
		name = "notice"
	}
	if !h.Issued.IsZero() {
		name += "_" + h.Issued.Format("20060102")
	}
	return name + ".pdf"
}

// WriteFile renders blocks into dir and returns the written path.
func (r *Renderer) WriteFile(dir string, blocks []notice.Block) (string, error) {
	h, err := header(blocks)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, blocks); err != nil {
		return "", err
	}
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(h))
	if err := afero.WriteFile(r.fs, path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write notice %s: %w", path, err)
	}
	r.logger.Debug("notice written", zap.String("path", path), zap.Int("bytes", buf.Len()))
	return path, nil
}

// Render writes one PDF for the blocks of a single property.
func (r *Renderer) Render(w io.Writer, blocks []notice.Block) error {
	h, err := header(blocks)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(fmt.Sprintf("%s - %s", h.Title, h.PropertyAddress), true)
	pdf.SetCreator("covenants", false)
	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()

	for _, b := range blocks {
		switch b := b.(type) {
		case *notice.Header:
			p.header(b)
		case *notice.Section:
			p.section(b)
		case *notice.Footer:
			p.footer(b)
		default:
			return fmt.Errorf("unsupported block kind %s", b.Kind())
		}
	}
	if pdf.Err() {
		return fmt.Errorf("render notice for %s: %w", h.PropertyAddress, pdf.Error())
	}
	return pdf.Output(w)
}

func header(blocks []notice.Block) (*notice.Header, error) {
	if len(blocks) == 0 {
		return nil, ErrNoHeader
	}
	h, ok := blocks[0].(*notice.Header)
	if !ok {
		return nil, ErrNoHeader
	}
	return h, nil
}

type page struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	images int
}

func (p *page) text(style string, size float64, align, s string) {
	p.pdf.SetFont(family, style, size)
	p.pdf.MultiCell(0, size+2, p.tr(s), "", align, false)
}

func (p *page) header(h *notice.Header) {
	var district []string
	for _, l := range []string{h.District.Name, h.District.AddressLine1, h.District.AddressLine2, h.District.Phone} {
		if l = strings.TrimSpace(l); l != "" {
			district = append(district, l)
		}
	}
	p.text("", bodySize, "L", strings.Join(district, "\n"))
	p.pdf.Ln(gap)

	p.text("B", 14, "C", h.Title)
	p.pdf.Ln(gap)
	p.text("", bodySize, "R", h.Date)
	p.pdf.Ln(gap)

	recipient := append([]string{h.RecipientName}, h.RecipientLines...)
	p.text("", bodySize, "L", strings.Join(recipient, "\n"))
	p.pdf.Ln(gap)
	if h.Email != "" {
		p.text("", bodySize, "L", "Sent Via Email: "+h.Email)
	}
	p.text("", bodySize, "L", "Property: "+h.PropertyAddress)
	p.text("B", bodySize, "L", h.Summary)
	p.pdf.Ln(gap)
	p.text("", bodySize, "L", h.Intro)
	p.pdf.Ln(gap)
}

func (p *page) section(s *notice.Section) {
	if s.PageBreak {
		p.pdf.AddPage()
	}
	p.text("B", 12, "L", s.Label)
	p.text("B", 12, "L", s.Heading)
	p.pdf.Ln(4)

	if s.HasImage() {
		p.image(s)
	} else if s.Placeholder != "" {
		p.pdf.Ln(gap)
		p.text("I", bodySize, "C", s.Placeholder)
		p.pdf.Ln(gap)
	}

	if s.Description != "" {
		p.pdf.SetFont(family, "", bodySize)
		p.pdf.MultiCell(0, lineHeight, p.tr(s.Description), "", "L", false)
		p.pdf.Ln(gap)
	}
	if s.Notes != "" {
		p.text("I", bodySize, "L", "Inspector notes: "+s.Notes)
		p.pdf.Ln(gap)
	}
}

// image centers the photo at its prepared size, starting a new page when it
// would cross the bottom margin.
func (p *page) image(s *notice.Section) {
	p.images++
	name := fmt.Sprintf("violation-%d-%d", s.ViolationID, p.images)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(s.Image.Data))
	if p.pdf.Err() {
		return
	}

	pageW, pageH := p.pdf.GetPageSize()
	w, h := s.Image.Width, s.Image.Height
	if y := p.pdf.GetY(); y+h+lineHeight > pageH-margin {
		p.pdf.AddPage()
	}
	x := (pageW - w) / 2
	y := p.pdf.GetY()
	p.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	p.pdf.SetY(y + h + 4)
	if s.Caption != "" {
		p.text("B", bodySize, "C", s.Caption)
	}
	p.pdf.Ln(gap)
}

func (p *page) footer(f *notice.Footer) {
	p.pdf.Ln(gap)
	p.text("", bodySize, "L", f.Remedy)
	p.pdf.Ln(gap)
	p.text("", bodySize, "L", f.Thanks)
	p.pdf.Ln(gap)
	p.text("", bodySize, "L", f.Closing)
	p.text("B", bodySize, "L", f.Signature)
}
