package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/vsd"
)

var subCmd = &cobra.Command{
	Use:   "sub <catalog> <path>...",
	Short: "Subscribe to signals and print every update",
	Long: `sub joins the network, subscribes to each path (a branch covers every
signal below it) and prints updates as they arrive until interrupted.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSub,
}

func init() {
	rootCmd.AddCommand(subCmd)
}

func runSub(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	a.vsd.SetCallback(func(u vsd.Update) error {
		fmt.Fprintln(out, formatUpdate(u))
		return nil
	})
	for _, path := range args[1:] {
		sig, err := a.vsd.Signal(path)
		if err != nil {
			return err
		}
		if err := a.vsd.Subscribe(sig); err != nil {
			return err
		}
	}

	return processUntil(ctx, a)
}

// processUntil runs the event processor until ctx is done. Per-frame
// errors are logged and do not stop the loop.
func processUntil(ctx context.Context, a *app) error {
	go func() {
		<-ctx.Done()
		a.vsd.Close()
	}()
	for {
		_, err := a.vsd.ProcessEvents(-1)
		switch {
		case errors.Is(err, vsd.ErrClosed):
			return nil
		case errors.Is(err, transport.ErrClosed):
			return err
		case err != nil:
			a.logger.Warn("processing events", "error", err)
		}
	}
}
