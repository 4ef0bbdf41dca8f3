package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/simpleab/pkg/simpleab"
	"github.com/dmitrymomot/simpleab/pkg/stub"
)

func buildAssignCmd(flags *globalFlags) *cobra.Command {
	var (
		stage     string
		dimension string
		file      string
		explain   bool
	)
	cmd := &cobra.Command{
		Use:   "assign <experiment-id> <user-id>",
		Short: "Resolve the treatment of a user",
		Long: `Resolve the treatment a user is assigned to.

With --file the experiment is read from a local YAML fixture; otherwise it is
fetched from the service configured by SIMPLEAB_API_URL and SIMPLEAB_API_KEY.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			experimentID, userID := args[0], args[1]
			ctx := commandContext(cmd)

			var client *simpleab.Client
			if file != "" {
				store, err := stub.LoadFile(file)
				if err != nil {
					return err
				}
				client = simpleab.New(store)
			} else {
				remote, _, err := flags.remoteClient(cmd)
				if err != nil {
					return err
				}
				client = remote
			}

			treatment, err := client.GetTreatment(ctx, experimentID, simpleab.Stage(stage), dimension, userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, treatment)
			if explain {
				def := client.GetCache()[experimentID]
				fmt.Fprintf(out, "exposure bucket:   %d (token %q)\n",
					simpleab.Bucket(def.ExposureRandomizationToken, userID), def.ExposureRandomizationToken)
				fmt.Fprintf(out, "allocation bucket: %d (token %q)\n",
					simpleab.Bucket(def.AllocationRandomizationToken, userID), def.AllocationRandomizationToken)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", string(simpleab.StageProduction), "Stage (Beta, Production)")
	cmd.Flags().StringVar(&dimension, "dimension", "default", "Dimension, e.g. default or US-mobile")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Resolve against a local YAML fixture instead of the service")
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the exposure and allocation buckets")
	return cmd
}
