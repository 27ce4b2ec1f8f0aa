package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "vsd",
	Short: "Vehicle signal distribution node",
	Long: `vsd loads a vehicle signal catalog and keeps it in sync with other nodes
using publish/subscribe over TCP, Redis or NATS.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	addNodeFlags(rootCmd)
}

// addNodeFlags defines the flags that override configuration settings.
func addNodeFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config", "", "YAML configuration file")
	f.String("id", "", "peer id (default random)")
	f.String("transport", "", "transport: memory, tcp, redis or nats")
	f.String("listen", "", "TCP listen address")
	f.StringSlice("peer", nil, "TCP peer address to dial (repeatable)")
	f.String("redis", "", "Redis server address")
	f.String("nats", "", "NATS server URL")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("protocol-log", "", "capture protocol traffic to a .vlog file")
	f.String("metrics", "", "serve Prometheus metrics on this address")
	f.Bool("mdns", false, "advertise and discover peers with mDNS")
	f.Bool("auto-publish", false, "publish every signal after it is set")
}

// loadConfig reads --config over the defaults and applies the flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("id", &cfg.ID)
	str("listen", &cfg.Transport.TCP.Listen)
	str("redis", &cfg.Transport.Redis.Addr)
	str("nats", &cfg.Transport.NATS.URL)
	str("log-level", &cfg.LogLevel)
	str("protocol-log", &cfg.ProtocolLog)
	str("metrics", &cfg.MetricsAddr)
	if flags.Changed("transport") {
		kind, _ := flags.GetString("transport")
		cfg.Transport.Kind = config.TransportKind(kind)
	}
	if flags.Changed("peer") {
		cfg.Transport.TCP.Peers, _ = flags.GetStringSlice("peer")
	}
	if flags.Changed("mdns") {
		cfg.MDNS.Enabled, _ = flags.GetBool("mdns")
	}
	if flags.Changed("auto-publish") {
		cfg.AutoPublish, _ = flags.GetBool("auto-publish")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
