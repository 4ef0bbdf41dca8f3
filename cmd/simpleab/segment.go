package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/simpleab/pkg/segment"
	"github.com/dmitrymomot/simpleab/pkg/simpleab"
)

func buildSegmentCmd(flags *globalFlags) *cobra.Command {
	var req simpleab.SegmentRequest
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Look up the segment and dimension of an IP and User-Agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := flags.remoteClient(cmd)
			if err != nil {
				return err
			}

			seg, err := segment.Lookup(commandContext(cmd), client, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "country:   %s\n", seg.CountryCode)
			fmt.Fprintf(out, "region:    %s\n", seg.Region)
			fmt.Fprintf(out, "device:    %s\n", seg.DeviceType)
			fmt.Fprintf(out, "dimension: %s\n", seg.Dimension())
			return nil
		},
	}
	cmd.Flags().StringVar(&req.IP, "ip", "", "Client IP address")
	cmd.Flags().StringVar(&req.UserAgent, "user-agent", "", "Client User-Agent")
	_ = cmd.MarkFlagRequired("ip")
	return cmd
}
