// Package pipeline runs one notice batch for a district: match reports to
// the roster, assemble notice blocks per property and tally the outcome.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"covenants/internal/match"
	"covenants/internal/notice"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Version identifies the matching and assembly rules in logs and reports.
const Version = "2"

// SkipReason reuses the matcher's reasons and adds assembly-stage ones.
type SkipReason = match.SkipReason

const (
	SkipUnknownRegulation SkipReason = "unknown_regulation"
	SkipDuplicateSection  SkipReason = "duplicate_section"
)

// Matcher produces address groups for a district.
type Matcher interface {
	Match(ctx context.Context, districtKey string) (*match.Result, error)
}

// Assembler turns one group into notice blocks.
type Assembler interface {
	Assemble(ctx context.Context, grp match.Group) ([]notice.Block, notice.Stats)
}

// Options tune a run.
type Options struct {
	// GroupWorkers bounds how many properties are assembled at once.
	GroupWorkers int
}

// Notice is the assembled output for one property.
type Notice struct {
	Group  match.Group
	Blocks []notice.Block
	Stats  notice.Stats
}

// Summary is what the person triggering the run sees.
type Summary struct {
	AddressesMatched    int
	ViolationsProcessed int
	Skipped             map[SkipReason]int
	ImagesFailed        int
	Unmatched           []string
}

// SkippedTotal sums all skip reasons.
func (s Summary) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// SkipReasons returns the reasons present, sorted for stable output.
func (s Summary) SkipReasons() []SkipReason {
	reasons := make([]SkipReason, 0, len(s.Skipped))
	for r := range s.Skipped {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}

// Report is the result of one run.
type Report struct {
	RunID    string
	Version  string
	District string
	Notices  []Notice
	Summary  Summary
}

// Pipeline wires a matcher to an assembler.
type Pipeline struct {
	matcher   Matcher
	assembler Assembler
	opts      Options
	logger    *zap.Logger
}

func New(matcher Matcher, assembler Assembler, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.GroupWorkers <= 0 {
		opts.GroupWorkers = 4
	}
	return &Pipeline{matcher: matcher, assembler: assembler, opts: opts, logger: logger}
}

// Run processes one district. Only district-level and data-source errors
// and cancellation are returned; everything else is counted in the
// summary. Notices come back in the matcher's order. Groups whose every
// violation was skipped during assembly produce no notice.
func (p *Pipeline) Run(ctx context.Context, districtKey string) (*Report, error) {
	runID := uuid.NewString()
	log := p.logger.With(
		zap.String("run_id", runID),
		zap.String("district", districtKey),
		zap.String("pipeline_version", Version),
	)
	log.Info("notice run started")

	res, err := p.matcher.Match(ctx, districtKey)
	if err != nil {
		return nil, fmt.Errorf("match district %s: %w", districtKey, err)
	}

	report := &Report{
		RunID:    runID,
		Version:  Version,
		District: res.District.Key,
		Summary: Summary{
			Skipped:   make(map[SkipReason]int),
			Unmatched: res.Unmatched(),
		},
	}
	for _, d := range res.Diagnostics {
		report.Summary.Skipped[d.Reason] += max(d.Violations, 1)
	}

	assembled := make([]Notice, len(res.Groups))
	var g errgroup.Group
	g.SetLimit(p.opts.GroupWorkers)
	for i, grp := range res.Groups {
		g.Go(func() error {
			blocks, stats := p.assembler.Assemble(ctx, grp)
			assembled[i] = Notice{Group: grp, Blocks: blocks, Stats: stats}
			return nil
		})
	}
	_ = g.Wait()
	// A cancelled run would otherwise look like a batch of photo failures.
	if err := ctx.Err(); err != nil {
		log.Warn("notice run cancelled", zap.Error(err))
		return nil, fmt.Errorf("district %s: %w", districtKey, err)
	}

	for _, n := range assembled {
		s := &report.Summary
		s.ViolationsProcessed += n.Stats.Sections
		s.ImagesFailed += n.Stats.ImagesFailed
		if n.Stats.SkippedUnknown > 0 {
			s.Skipped[SkipUnknownRegulation] += n.Stats.SkippedUnknown
		}
		if n.Stats.SkippedDuplicate > 0 {
			s.Skipped[SkipDuplicateSection] += n.Stats.SkippedDuplicate
		}
		if n.Stats.Sections == 0 {
			log.Info("no notice for property, every violation skipped",
				zap.String("address", n.Group.PropertyAddress))
			continue
		}
		s.AddressesMatched++
		report.Notices = append(report.Notices, n)
	}

	log.Info("notice run finished",
		zap.Int("addresses_matched", report.Summary.AddressesMatched),
		zap.Int("violations_processed", report.Summary.ViolationsProcessed),
		zap.Int("violations_skipped", report.Summary.SkippedTotal()),
		zap.Int("images_failed", report.Summary.ImagesFailed),
	)
	return report, nil
}
