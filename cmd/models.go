package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forecast/core/forecasting"
	coremetrics "github.com/kilianp07/forecast/core/metrics"
	_ "github.com/kilianp07/forecast/infra/metrics"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered model and metrics sink types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "models:")
			for _, t := range forecasting.Types() {
				fmt.Fprintf(out, "  %s\n", t)
			}
			fmt.Fprintln(out, "sinks:")
			for _, t := range coremetrics.SinkTypes() {
				fmt.Fprintf(out, "  %s\n", t)
			}
			return nil
		},
	}
}
