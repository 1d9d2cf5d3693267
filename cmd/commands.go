package main

import (
	"context"
	"fmt"
	"io"

	"covenants/internal/pipeline"
	"covenants/internal/render"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func noticesCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Build one courtesy notice PDF per property with open violations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, &f)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.pipeline.Run(cmd.Context(), a.district)
			if err != nil {
				a.logger.Error("notice run failed", zap.String("district", a.district), zap.Error(err))
				return err
			}

			out := cmd.OutOrStdout()
			failed, err := writeNotices(cmd.Context(), out, a.renderer, a.outDir, report.Notices, a.logger)
			if err != nil {
				return err
			}
			printSummary(out, report)
			if failed > 0 {
				return fmt.Errorf("%d of %d notices failed to render", failed, len(report.Notices))
			}
			return nil
		},
	}
	addRunFlags(cmd.Flags(), &f)
	return cmd
}

// writeNotices renders each notice into dir and returns how many failed.
// It stops between notices once ctx is done.
func writeNotices(ctx context.Context, out io.Writer, r *render.Renderer, dir string, notices []pipeline.Notice, log *zap.Logger) (int, error) {
	failed := 0
	for i, n := range notices {
		if err := ctx.Err(); err != nil {
			log.Warn("notice rendering interrupted",
				zap.Int("written", i-failed),
				zap.Int("remaining", len(notices)-i),
			)
			return failed, fmt.Errorf("rendering interrupted after %d of %d notices: %w", i, len(notices), err)
		}
		path, err := r.WriteFile(dir, n.Blocks)
		if err != nil {
			failed++
			log.Error("failed to render notice",
				zap.String("address", n.Group.PropertyAddress),
				zap.Error(err),
			)
			continue
		}
		fmt.Fprintf(out, "%s%s%s\n", colorGreen, path, colorReset)
	}
	return failed, nil
}

func matchCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show which reports match a roster entry without building notices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, &f)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Match(cmd.Context(), a.district)
			if err != nil {
				a.logger.Error("match failed", zap.String("district", a.district), zap.Error(err))
				return err
			}
			printMatch(cmd.OutOrStdout(), res)
			return nil
		},
	}
	addRunFlags(cmd.Flags(), &f)
	return cmd
}

func reviewCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Browse assembled notices interactively and write the ones you pick",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, &f)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.pipeline.Run(cmd.Context(), a.district)
			if err != nil {
				a.logger.Error("notice run failed", zap.String("district", a.district), zap.Error(err))
				return err
			}
			out := cmd.OutOrStdout()
			if len(report.Notices) == 0 {
				printSummary(out, report)
				return nil
			}

			lines := make([]string, len(report.Notices))
			for i, n := range report.Notices {
				lines[i] = groupLine(n.Group, n.Stats.Sections)
			}
			interactiveSelect(lines, func(i int) {
				n := report.Notices[i]
				printNotice(out, n)
				if !confirm("Write notice PDF? (y/N): ") {
					return
				}
				path, err := a.renderer.WriteFile(a.outDir, n.Blocks)
				if err != nil {
					fmt.Fprintf(out, "Failed to write notice: %v\n", err)
					return
				}
				fmt.Fprintf(out, "Notice written to %s\n", path)
			})
			printSummary(out, report)
			return nil
		},
	}
	addRunFlags(cmd.Flags(), &f)
	return cmd
}
