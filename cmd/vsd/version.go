package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the protocol version and ALPN identifiers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "protocol: %s\n", version.Current)
		for _, p := range version.SupportedALPNProtocols() {
			fmt.Fprintf(cmd.OutOrStdout(), "alpn:     %s\n", p)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
