package pipeline

import (
	"covenants/internal/match"
	"covenants/internal/notice"
	"covenants/internal/types"

	"go.uber.org/zap"
)

// Config enumerates every behavior toggle of a run in one place.
type Config struct {
	Excluded     []string
	Scope        match.DedupeScope
	Window       types.Window
	GroupWorkers int
	ImageWorkers int
	RemedyDays   int
}

// Build assembles a Pipeline from its collaborators.
func Build(
	districts match.DistrictSource,
	accounts match.AccountSource,
	reports match.ReportSource,
	catalog notice.Catalog,
	images notice.ImagePreparer,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := match.NewEngine(districts, accounts, reports, match.Options{
		Excluded: cfg.Excluded,
		Scope:    cfg.Scope,
		Window:   cfg.Window,
	}, logger.Named("match"))
	assembler := notice.NewAssembler(catalog, images, notice.Options{
		Workers:    cfg.ImageWorkers,
		RemedyDays: cfg.RemedyDays,
	}, logger.Named("notice"))
	return New(engine, assembler, Options{GroupWorkers: cfg.GroupWorkers}, logger)
}
