package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forecast/app"
	"github.com/kilianp07/forecast/config"
	"github.com/kilianp07/forecast/core/evaluation"
)

// ErrChecksFailed is returned by evaluate when a check did not pass.
var ErrChecksFailed = errors.New("evaluation checks failed")

func evaluateCmd() *cobra.Command {
	var (
		workers int
		seed    uint64
		asJSON  bool
	)
	c := &cobra.Command{
		Use:   "evaluate",
		Short: "Run the probabilistic accuracy checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adjust := func(cfg *config.Config) {
				if cmd.Flags().Changed("workers") {
					cfg.Evaluation.Harness.Workers = workers
				}
				if cmd.Flags().Changed("seed") {
					cfg.Evaluation.Harness.Seed = &seed
				}
			}
			return withService(cmd, adjust, func(ctx context.Context, svc *app.Service) error {
				report, err := svc.Evaluate(ctx)
				if err != nil {
					return err
				}
				if err := printReport(cmd, report, asJSON); err != nil {
					return err
				}
				if n := len(report.Failed()); n > 0 {
					return fmt.Errorf("%w: %d of %d", ErrChecksFailed, n, len(report.Results))
				}
				return nil
			})
		},
	}
	f := c.Flags()
	f.IntVarP(&workers, "workers", "w", 0, "checks run concurrently")
	f.Uint64Var(&seed, "seed", evaluation.DefaultSeed, "seed of the noisy datasets")
	f.BoolVar(&asJSON, "json", false, "print the report as JSON")
	return c
}

func printReport(cmd *cobra.Command, r evaluation.Report, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Fprintf(out, "run %s: %d checks, %d failed\n", r.RunID, len(r.Results), len(r.Failed()))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, res := range r.Results {
		status := "ok"
		if !res.Passed {
			status = "FAIL " + res.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Case, res.Dataset, res.Check, status)
	}
	return tw.Flush()
}
