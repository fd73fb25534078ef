package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forecast/app"
	"github.com/kilianp07/forecast/config"
	"github.com/kilianp07/forecast/infra/logger"
)

func predictCmd() *cobra.Command {
	var (
		horizon, samples, holdout int
		output                    string
		publish                   bool
	)
	c := &cobra.Command{
		Use:   "predict",
		Short: "Fit the configured model and write a forecast summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adjust := func(cfg *config.Config) {
				flags := cmd.Flags()
				if flags.Changed("horizon") {
					cfg.Forecast.Horizon = horizon
				}
				if flags.Changed("samples") {
					cfg.Forecast.NumSamples = samples
				}
				if flags.Changed("holdout") {
					cfg.Forecast.Holdout = holdout
				}
				if flags.Changed("publish") {
					cfg.Forecast.Publish = publish
				}
				if flags.Changed("output") {
					cfg.Output.Path = output
					cfg.Output.Format = ""
					cfg.Output.SetDefaults()
				}
			}
			return withService(cmd, adjust, func(ctx context.Context, svc *app.Service) error {
				res, err := svc.Forecast(ctx)
				if err != nil {
					return err
				}
				log := logger.New("predict")
				for _, s := range res.Scores {
					log.Infof("%s %s@%v = %.4f", res.Model, s.Metric, s.Quantile, s.Value)
				}
				return writeRows(cmd.OutOrStdout(), svc, res)
			})
		},
	}
	f := c.Flags()
	f.IntVarP(&horizon, "horizon", "n", 0, "number of steps to forecast")
	f.IntVarP(&samples, "samples", "s", 0, "number of sample paths")
	f.IntVar(&holdout, "holdout", 0, "observations held out for scoring")
	f.StringVarP(&output, "output", "o", "", "summary file, stdout when empty")
	f.BoolVar(&publish, "publish", false, "publish the forecast over MQTT")
	return c
}

func writeRows(stdout io.Writer, svc *app.Service, res app.ForecastResult) error {
	path := svc.Config().Output.Path
	if path == "" {
		return svc.Export(stdout, res.Rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := svc.Export(f, res.Rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
