package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/model"
	"github.com/seekwell/jobscout/internal/pipeline"
	"github.com/seekwell/jobscout/internal/profile"
	"github.com/seekwell/jobscout/internal/progress"
)

func newRunCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, dedup, score, and track postings",
		Long: `Executes one full pipeline pass: fetches postings for every target
title across all configured sources, removes cross-source duplicates,
scores the survivors against the profile, and records what was seen.
Interrupt with Ctrl-C to stop dispatch and keep partial results.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "fetch worker pool size (0 = configured default)")
	return cmd
}

func runPipeline(parent context.Context, workers int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if workers > 0 {
		cfg.Fetch.Workers = workers
	}

	prof, err := profile.Load(profileFile)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	hub := progress.NewHub(logger, progress.NewLogSink(logger))
	defer hub.Close()

	p, err := pipeline.New(cfg, logger, hub)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("close pipeline", zap.Error(cerr))
		}
	}()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := p.Run(ctx, prof)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	renderReport(report)
	return nil
}

func renderReport(report *pipeline.Report) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tNEW\tTITLE\tCOMPANY\tLOCATION\tSOURCES")
	for _, p := range report.Postings {
		fmt.Fprintf(w, "%.1f\t%s\t%s\t%s\t%s\t%s\n",
			overall(p), newMark(p), p.Title, p.Company, p.Location, sourcesOf(p))
	}
	w.Flush() //nolint:errcheck

	fmt.Printf("\n%d postings (%d exact + %d fuzzy duplicates removed of %d fetched)\n",
		len(report.Postings),
		report.DedupStats.ExactDropped,
		report.DedupStats.FuzzyDropped,
		report.DedupStats.Examined,
	)
	if report.Committed {
		fmt.Printf("tracker: %d new, %d previously seen\n",
			report.TrackerStats.New, report.TrackerStats.Seen)
	} else {
		fmt.Println("tracker: not committed (run interrupted)")
	}
	for _, warning := range report.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
}

func overall(p model.JobPosting) float64 {
	if p.Score == nil {
		return 0
	}
	return p.Score.Overall
}

func newMark(p model.JobPosting) string {
	if p.IsNew != nil && *p.IsNew {
		return "*"
	}
	return ""
}

func sourcesOf(p model.JobPosting) string {
	out := p.Source
	for _, s := range p.SeenSources {
		out += "+" + s
	}
	return out
}
