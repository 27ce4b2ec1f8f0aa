package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/cmd/vsd/logview"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View captured protocol logs",
	Long: `log reads capture files written with --protocol-log.

  vsd log view --direction in --path Vehicle.Cabin node.vlog
  vsd log stats node.vlog
  vsd log export --format csv -o node.csv node.vlog
  vsd log filter --peer body-ecu -o body.vlog node.vlog`,
}

var logOpts logview.Options

func init() {
	view := &cobra.Command{
		Use:   "view <file.vlog>",
		Short: "Print events in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return logview.RunView(args[0], logOpts, cmd.OutOrStdout())
		},
	}
	stats := &cobra.Command{
		Use:   "stats <file.vlog>",
		Short: "Show statistics about a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return logview.RunStats(args[0], cmd.OutOrStdout())
		},
	}
	export := &cobra.Command{
		Use:   "export <file.vlog>",
		Short: "Export events as JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return logview.RunExport(args[0], format, logOpts, w)
		},
	}
	export.Flags().String("format", "jsonl", "output format: jsonl or csv")
	export.Flags().StringP("output", "o", "", "output file (default stdout)")

	filter := &cobra.Command{
		Use:   "filter <file.vlog>",
		Short: "Write matching events to a new capture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			n, err := logview.RunFilter(args[0], output, logOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, output)
			return nil
		},
	}
	filter.Flags().StringP("output", "o", "", "output file (required)")

	for _, c := range []*cobra.Command{view, export, filter} {
		f := c.Flags()
		f.StringVar(&logOpts.Peer, "peer-id", "", "only events for this peer token")
		f.StringVar(&logOpts.Layer, "layer", "", "transport, wire or context")
		f.StringVar(&logOpts.Direction, "direction", "", "in or out")
		f.StringVar(&logOpts.Category, "category", "", "message, control, state or error")
		f.StringVar(&logOpts.PathPrefix, "path", "", "only messages about signals under this path")
		f.StringVar(&logOpts.TimeStart, "since", "", "only events at or after this RFC 3339 time")
		f.StringVar(&logOpts.TimeEnd, "until", "", "only events before this RFC 3339 time")
	}

	logCmd.AddCommand(view, stats, export, filter)
	rootCmd.AddCommand(logCmd)
}
