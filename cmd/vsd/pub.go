package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
)

var pubCmd = &cobra.Command{
	Use:   "pub <catalog> <path=value>...",
	Short: "Set signal values and publish them to subscribers",
	Long: `pub joins the network, waits for peers to announce their interests,
then sets each signal and publishes it. With --count other than 1 the
values are published again every --interval; 0 repeats until interrupted.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPub,
}

func init() {
	f := pubCmd.Flags()
	f.Duration("settle", time.Second, "time to learn peer interests before publishing")
	f.Duration("interval", time.Second, "delay between repeated publishes")
	f.Int("count", 1, "number of times to publish (0 means forever)")
	rootCmd.AddCommand(pubCmd)
}

type assignment struct {
	sig  model.Signal
	path string
	text string
}

func runPub(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	settle, _ := cmd.Flags().GetDuration("settle")
	interval, _ := cmd.Flags().GetDuration("interval")
	count, _ := cmd.Flags().GetInt("count")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	var sets []assignment
	for _, arg := range args[1:] {
		path, text, err := parseAssignment(arg)
		if err != nil {
			return err
		}
		sig, err := a.vsd.Signal(path)
		if err != nil {
			return err
		}
		if err := a.vsd.SetString(sig, text); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sets = append(sets, assignment{sig: sig, path: path, text: text})
	}

	drain(ctx, a, settle)

	out := cmd.OutOrStdout()
	for round := 1; count == 0 || round <= count; round++ {
		for _, s := range sets {
			if err := a.vsd.Publish(s.sig); err != nil {
				a.logger.Warn("publish failed", "path", s.path, "error", err)
				continue
			}
			fmt.Fprintf(out, "published %s = %s\n", s.path, s.text)
		}
		if count != 0 && round == count {
			break
		}
		drain(ctx, a, interval)
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// drain processes incoming traffic for d so that subscriptions from peers
// are registered before the next publish. Frame errors are only logged.
func drain(ctx context.Context, a *app, d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		left := min(time.Until(deadline), 100*time.Millisecond)
		if left < 0 || ctx.Err() != nil {
			return
		}
		if _, err := a.vsd.ProcessEvents(left); err != nil {
			a.logger.Debug("processing events", "error", err)
		}
		if left == 0 {
			return
		}
	}
}
