// Package notice assembles the ordered content blocks of a courtesy notice
// for one property: a header, one section per violation and a footer.
package notice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"covenants/internal/match"
	"covenants/internal/photo"
	"covenants/internal/regulation"
	"covenants/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	noticeTitle       = "Courtesy Notice"
	placeholderText   = "No image available"
	imageCaption      = "Violation Image"
	defaultRemedy     = 30
	defaultWorkers    = 4
	bulletMarker      = "•"
	closingSalutation = "Sincerely,"
)

// Catalog resolves regulation text.
type Catalog interface {
	Lookup(districtKey, code string) (regulation.Entry, bool)
}

// ImagePreparer materializes a photo for placement on the page.
type ImagePreparer interface {
	Prepare(ctx context.Context, location string) (*photo.Prepared, error)
}

// Options tune assembly.
type Options struct {
	// Workers bounds concurrent photo preparation within one notice.
	Workers int
	// RemedyDays is the cure period quoted in the footer.
	RemedyDays int
	// Now supplies the notice date when a violation has no timestamp.
	Now func() time.Time
}

// Stats counts what happened to one group's violations.
type Stats struct {
	Sections         int
	SkippedUnknown   int
	SkippedDuplicate int
	ImagesFailed     int
	WithoutImage     int
}

// Assembler builds notice blocks. It is safe for concurrent use across
// groups.
type Assembler struct {
	catalog Catalog
	images  ImagePreparer
	opts    Options
	logger  *zap.Logger
}

func NewAssembler(catalog Catalog, images ImagePreparer, opts Options, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RemedyDays <= 0 {
		opts.RemedyDays = defaultRemedy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Assembler{catalog: catalog, images: images, opts: opts, logger: logger}
}

type item struct {
	violation types.Violation
	entry     regulation.Entry
	image     *photo.Prepared
	imageErr  error
}

// Assemble returns the blocks for one property in render order. Unknown
// regulations and repeated violations are skipped; photo failures become
// placeholders. It never fails as a whole.
func (a *Assembler) Assemble(ctx context.Context, grp match.Group) ([]Block, Stats) {
	var stats Stats
	log := a.logger.With(
		zap.String("district", grp.District.Key),
		zap.String("address", grp.PropertyAddress),
	)

	emitted := make(map[int64]bool)
	var items []*item
	for _, v := range grp.Violations {
		if v.ID != 0 && emitted[v.ID] {
			stats.SkippedDuplicate++
			continue
		}
		entry, ok := a.catalog.Lookup(grp.District.Key, v.Type)
		if !ok {
			log.Info("no regulation for violation type, skipping",
				zap.Int64("violation_id", v.ID),
				zap.String("type", v.Type),
			)
			stats.SkippedUnknown++
			continue
		}
		emitted[v.ID] = true
		items = append(items, &item{violation: v, entry: entry})
	}

	a.prepareImages(ctx, items)

	blocks := make([]Block, 0, len(items)+2)
	blocks = append(blocks, a.header(grp, items))
	for i, it := range items {
		sec := &Section{
			Number:        i + 1,
			Label:         fmt.Sprintf("Violation %d", i+1),
			PageBreak:     i > 0,
			ViolationID:   it.violation.ID,
			ViolationType: it.violation.Type,
			Heading:       it.entry.Heading(),
			Description:   FormatDescription(it.entry.Description),
			Notes:         strings.TrimSpace(it.violation.Notes),
		}
		switch {
		case it.image != nil:
			sec.Image = it.image
			sec.Caption = imageCaption
		case it.imageErr != nil:
			stats.ImagesFailed++
			sec.Placeholder = placeholderText
			log.Warn("photo unavailable, using placeholder",
				zap.Int64("violation_id", it.violation.ID),
				zap.Error(it.imageErr),
			)
		default:
			stats.WithoutImage++
			sec.Placeholder = placeholderText
		}
		blocks = append(blocks, sec)
	}
	blocks = append(blocks, a.footer(grp.District, len(items)))
	stats.Sections = len(items)
	return blocks, stats
}

// prepareImages fetches each item's first photo through a bounded pool.
// Failures stay on their item and never cancel siblings.
func (a *Assembler) prepareImages(ctx context.Context, items []*item) {
	if a.images == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for _, it := range items {
		if len(it.violation.Images) == 0 {
			continue
		}
		location := it.violation.Images[0].Location
		g.Go(func() error {
			it.image, it.imageErr = a.images.Prepare(ctx, location)
			if it.image == nil && it.imageErr == nil {
				it.imageErr = photo.ErrEmpty
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Assembler) header(grp match.Group, items []*item) *Header {
	date := a.opts.Now()
	// Dated by the first violation that made it onto the notice.
	if len(items) > 0 && !items[0].violation.CreatedAt.IsZero() {
		date = items[0].violation.CreatedAt
	}

	var lines []string
	acct := grp.Account
	mailing := strings.TrimSpace(acct.MailingAddress)
	if mailing == "" {
		mailing = acct.ServiceAddress
	}
	if mailing != "" {
		lines = append(lines, mailing)
	}
	if city := acct.MailingCityLine(); city != "" {
		lines = append(lines, city)
	}

	var titles []string
	seen := make(map[string]bool)
	for _, it := range items {
		if !seen[it.entry.Title] {
			seen[it.entry.Title] = true
			titles = append(titles, it.entry.Title)
		}
	}

	return &Header{
		District:        grp.District,
		Title:           noticeTitle,
		Date:            FormatDate(date),
		Issued:          date,
		RecipientName:   acct.OwnerName,
		RecipientLines:  lines,
		Email:           acct.Email,
		PropertyAddress: grp.PropertyAddress,
		Summary:         "Violation: " + strings.Join(titles, ", "),
		Intro: fmt.Sprintf("One of the primary responsibilities of %s (\"the District\") is to protect the aesthetic "+
			"appeal and property values of the neighborhood. To accomplish this, certain Covenants and Design "+
			"Guidelines have been established by which homeowners and residents must abide. During a recent "+
			"inspection a concern was noted regarding your property and the District is asking for your help "+
			"in achieving compliance.", grp.District.Name),
	}
}

func (a *Assembler) footer(district types.District, sections int) *Footer {
	matter := "this matter"
	if sections > 1 {
		matter = "these matters"
	}
	return &Footer{
		Remedy: fmt.Sprintf("We ask that you remedy %s within the next %d days from the date of this letter. "+
			"Failure to do so may result in potential fines per the governing documents.", matter, a.opts.RemedyDays),
		Thanks: fmt.Sprintf("If you have already resolved %s, we thank you for your prompt attention and "+
			"appreciate your help keeping the neighborhood looking its best.", matter),
		Closing:   closingSalutation,
		Signature: district.Name,
	}
}

// FormatDescription puts every bullet marker at the start of its own line.
func FormatDescription(s string) string {
	parts := strings.Split(s, bulletMarker)
	var b strings.Builder
	b.WriteString(strings.TrimSpace(parts[0]))
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(bulletMarker + " " + p)
	}
	return b.String()
}
