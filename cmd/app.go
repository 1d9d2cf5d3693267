package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"covenants/internal/config"
	"covenants/internal/database"
	"covenants/internal/logger"
	"covenants/internal/match"
	"covenants/internal/photo"
	"covenants/internal/pipeline"
	"covenants/internal/regulation"
	"covenants/internal/render"
	"covenants/internal/roster"
	"covenants/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// runFlags are shared by every command that runs a match.
type runFlags struct {
	district    string
	since       string
	until       string
	roster      string
	parcels     string
	subdivision string
	catalog     string
	out         string
	dedupe      string
	exclude     []string
}

func addRunFlags(fs *pflag.FlagSet, f *runFlags) {
	fs.StringVar(&f.district, "district", "", "District key, e.g. highlands_mead (required)")
	fs.StringVar(&f.since, "since", "", "Only reports updated on or after this date (YYYY-MM-DD)")
	fs.StringVar(&f.until, "until", "", "Only reports updated before this date (YYYY-MM-DD)")
	fs.StringVar(&f.roster, "roster", "", "Read homeowner accounts from this .xlsx roster instead of the database")
	fs.StringVar(&f.parcels, "parcels", "", "Read homeowner accounts from this parcel shapefile instead of the database")
	fs.StringVar(&f.subdivision, "subdivision", "", "Keep only parcels in this subdivision (with --parcels)")
	fs.StringVar(&f.catalog, "catalog", "", "Regulation catalog (.yaml or .xlsx); overrides REGULATION_CATALOG")
	fs.StringVar(&f.out, "out", "", "Output directory for notices; overrides NOTICE_OUTPUT_DIR")
	fs.StringVar(&f.dedupe, "dedupe", string(match.DedupeRun), "Violation dedupe scope: run or group")
	fs.StringSliceVar(&f.exclude, "exclude", match.DefaultExcluded, "Violation types that never produce notices")
}

// parseWindow turns the --since/--until flags into a report window.
func parseWindow(since, until string) (types.Window, error) {
	var w types.Window
	var err error
	if since != "" {
		if w.Since, err = time.ParseInLocation(dateLayout, since, time.Local); err != nil {
			return w, fmt.Errorf("invalid --since %q: want YYYY-MM-DD", since)
		}
	}
	if until != "" {
		if w.Until, err = time.ParseInLocation(dateLayout, until, time.Local); err != nil {
			return w, fmt.Errorf("invalid --until %q: want YYYY-MM-DD", until)
		}
	}
	if !w.Since.IsZero() && !w.Until.IsZero() && !w.Since.Before(w.Until) {
		return w, fmt.Errorf("--since %s must be before --until %s", since, until)
	}
	return w, nil
}

func parseScope(s string) (match.DedupeScope, error) {
	switch scope := match.DedupeScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case match.DedupeRun, match.DedupeGroup:
		return scope, nil
	case "":
		return match.DedupeRun, nil
	default:
		return "", fmt.Errorf("invalid --dedupe %q: want run or group", s)
	}
}

// cleanExcluded drops blanks so --exclude= turns every category back on.
func cleanExcluded(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// app is everything one command invocation needs.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *database.Database
	engine   *match.Engine
	pipeline *pipeline.Pipeline
	renderer *render.Renderer
	outDir   string
	district string
}

func newApp(cmd *cobra.Command, f *runFlags) (*app, error) {
	if f.district == "" {
		return nil, errors.New("--district is required")
	}
	if f.roster != "" && f.parcels != "" {
		return nil, errors.New("use either --roster or --parcels, not both")
	}
	window, err := parseWindow(f.since, f.until)
	if err != nil {
		return nil, err
	}
	scope, err := parseScope(f.dedupe)
	if err != nil {
		return nil, err
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.LogFormat = format
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "covenants")
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	catalogPath := cfg.RegulationSource
	if f.catalog != "" {
		catalogPath = f.catalog
	}
	catalog, err := regulation.Load(catalogPath)
	if err != nil {
		return nil, err
	}

	if !cfg.DB.Configured() {
		return nil, errors.New("database not configured: set DB_HOST, DB_USERNAME and DB_PASSWORD")
	}
	db, err := database.NewDatabase(cfg.DB, log.Named("database"))
	if err != nil {
		return nil, err
	}

	var accounts match.AccountSource = db
	switch {
	case f.roster != "":
		accounts = roster.WorkbookSource{Path: f.roster}
	case f.parcels != "":
		accounts = roster.ParcelSource{Path: f.parcels, Subdivision: f.subdivision}
	}

	images := photo.NewPreparer(
		photo.Router{
			Local:  photo.NewLocalSource(nil),
			Remote: photo.NewRemoteSource(cfg.ImageFetchTimeout),
		},
		photo.Options{
			MaxWidth:        cfg.ImageMaxWidth,
			MaxHeight:       cfg.ImageMaxHeight,
			DPI:             72,
			Sharpen:         cfg.ImageSharpen,
			FullOrientation: cfg.ImageFullOrientation,
		},
		log.Named("photo"),
	)

	pcfg := pipeline.Config{
		Excluded:     cleanExcluded(f.exclude),
		Scope:        scope,
		Window:       window,
		GroupWorkers: cfg.GroupWorkers,
		ImageWorkers: cfg.ImageWorkers,
		RemedyDays:   cfg.RemedyDays,
	}

	outDir := cfg.OutputDir
	if f.out != "" {
		outDir = f.out
	}

	return &app{
		cfg:    cfg,
		logger: log,
		db:     db,
		engine: match.NewEngine(db, accounts, db, match.Options{
			Excluded: pcfg.Excluded,
			Scope:    pcfg.Scope,
			Window:   pcfg.Window,
		}, log.Named("match")),
		pipeline: pipeline.Build(db, accounts, db, catalog, images, pcfg, log.Named("pipeline")),
		renderer: render.New(nil, log.Named("render")),
		outDir:   outDir,
		district: f.district,
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	_ = a.logger.Sync()
}
