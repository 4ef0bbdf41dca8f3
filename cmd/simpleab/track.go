package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

func buildTrackCmd(flags *globalFlags) *cobra.Command {
	var (
		stage       string
		dimension   string
		treatment   string
		aggregation string
	)
	cmd := &cobra.Command{
		Use:   "track <experiment-id> <metric-name> <value>",
		Short: "Record one metric observation and flush it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid metric value %q: %w", args[2], err)
			}

			client, _, err := flags.remoteClient(cmd)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			if err := client.TrackMetric(ctx, simpleab.Metric{
				ExperimentID:    args[0],
				Stage:           simpleab.Stage(stage),
				Dimension:       dimension,
				Treatment:       simpleab.Treatment(treatment),
				MetricName:      args[1],
				MetricValue:     value,
				AggregationType: simpleab.AggregationType(aggregation),
			}); err != nil {
				return err
			}
			if err := client.Close(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "flushed")
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", string(simpleab.StageProduction), "Stage (Beta, Production)")
	cmd.Flags().StringVar(&dimension, "dimension", "default", "Dimension")
	cmd.Flags().StringVar(&treatment, "treatment", string(simpleab.TreatmentControl), "Treatment the observation belongs to")
	cmd.Flags().StringVar(&aggregation, "aggregation", string(simpleab.AggregationSum), "Aggregation type (sum, count, avg)")
	return cmd
}
