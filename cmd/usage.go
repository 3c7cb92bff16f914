package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/pipeline"
)

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show rate-limit utilization per backend",
		Long: `Prints each backend's most restrictive quota window and its current
utilization, read from the durable rate-limit store. No fetching occurs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			p, err := pipeline.New(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := p.Close(); cerr != nil {
					logger.Warn("close pipeline", zap.Error(cerr))
				}
			}()

			entries, err := p.Usage(cmd.Context())
			if err != nil {
				return fmt.Errorf("read usage: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BACKEND\tUSED\tLIMIT\tWINDOW")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Backend, e.Used, e.Limit, e.Window)
			}
			return w.Flush()
		},
	}
}
