package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forecast/app"
	"github.com/kilianp07/forecast/core/evaluation"
)

func reportsCmd() *cobra.Command {
	var (
		q      evaluation.Query
		since  time.Duration
		asJSON bool
	)
	c := &cobra.Command{
		Use:   "reports",
		Short: "List stored evaluation reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, nil, func(ctx context.Context, svc *app.Service) error {
				if since > 0 {
					q.Since = time.Now().Add(-since)
				}
				reports, err := svc.Reports(ctx, q)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(reports)
				}
				for _, r := range reports {
					if err := printReport(cmd, r, false); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	f := c.Flags()
	f.StringVar(&q.RunID, "run", "", "report run id")
	f.StringVar(&q.Case, "case", "", "only reports containing this case")
	f.IntVar(&q.Limit, "limit", 10, "maximum number of reports")
	f.DurationVar(&since, "since", 0, "only reports started within this duration")
	f.BoolVar(&asJSON, "json", false, "print reports as JSON")
	return c
}
