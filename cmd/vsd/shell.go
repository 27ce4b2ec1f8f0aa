package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/vsd"
)

var shellCmd = &cobra.Command{
	Use:   "shell <catalog>",
	Short: "Interactive session on a live node",
	Args:  cobra.ExactArgs(1),
	RunE:  runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx, cfg, args[0])
	if err != nil {
		return err
	}
	defer a.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vsd> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	sh := newShell(a.vsd, rl.Stdout())
	go func() {
		<-ctx.Done()
		rl.Close()
	}()
	go sh.process(func(err error) {
		fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
	})

	sh.printHelp()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return nil
		}
		if sh.exec(line) {
			return nil
		}
	}
}

// shell runs interactive commands against a Context.
type shell struct {
	vsd *vsd.Context
	out io.Writer
}

func newShell(c *vsd.Context, out io.Writer) *shell {
	sh := &shell{vsd: c, out: out}
	c.SetCallback(func(u vsd.Update) error {
		fmt.Fprintln(sh.out, formatUpdate(u))
		return nil
	})
	return sh
}

// process runs the event processor until the Context is closed.
func (sh *shell) process(report func(error)) {
	for {
		_, err := sh.vsd.ProcessEvents(-1)
		switch {
		case errors.Is(err, vsd.ErrClosed), errors.Is(err, transport.ErrClosed):
			return
		case err != nil:
			report(err)
		}
	}
}

// exec runs one command line and reports whether the session should end.
func (sh *shell) exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		sh.printHelp()
	case "ls", "tree":
		err = sh.cmdTree(args, cmd == "tree")
	case "info", "i":
		err = sh.withSignal(args, 1, func(sig model.Signal) error {
			info, err := sh.vsd.Info(sig)
			if err == nil {
				formatInfo(sh.out, info)
			}
			return err
		})
	case "get", "g":
		err = sh.withSignal(args, 1, func(sig model.Signal) error {
			v, err := sh.vsd.Get(sig)
			if err == nil {
				fmt.Fprintf(sh.out, "%s = %s\n", args[0], v)
			}
			return err
		})
	case "set", "s":
		err = sh.withSignal(args, 2, func(sig model.Signal) error {
			return sh.vsd.SetString(sig, strings.Join(args[1:], " "))
		})
	case "pub", "p":
		err = sh.withSignal(args, 1, sh.vsd.Publish)
	case "sub":
		err = sh.withSignal(args, 1, sh.vsd.Subscribe)
	case "unsub":
		err = sh.cmdUnsub(args)
	case "subs":
		for _, p := range sh.vsd.Subscriptions() {
			fmt.Fprintln(sh.out, p)
		}
	case "status":
		fmt.Fprintf(sh.out, "id:            %s\n", sh.vsd.LocalID())
		fmt.Fprintf(sh.out, "signals:       %d\n", sh.vsd.Len())
		fmt.Fprintf(sh.out, "peers:         %d\n", sh.vsd.Peers())
		fmt.Fprintf(sh.out, "subscriptions: %d\n", len(sh.vsd.Subscriptions()))
		fmt.Fprintf(sh.out, "processor:     %s\n", sh.vsd.ProcessorState())
	case "quit", "exit", "q":
		fmt.Fprintln(sh.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return false
}

func (sh *shell) withSignal(args []string, want int, fn func(model.Signal) error) error {
	if len(args) < want {
		return fmt.Errorf("expected %d argument(s)", want)
	}
	sig, err := sh.vsd.Signal(args[0])
	if err != nil {
		return err
	}
	return fn(sig)
}

func (sh *shell) cmdTree(args []string, values bool) error {
	var root model.Signal
	if len(args) > 0 {
		var err error
		if root, err = sh.vsd.Signal(args[0]); err != nil {
			return err
		}
	}
	if values {
		return printTree(sh.out, sh.vsd, root, true)
	}

	nodes := sh.vsd.Roots()
	if !root.IsZero() {
		var err error
		if nodes, err = sh.vsd.Children(root); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		info, err := sh.vsd.Info(n)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%s%s\n", info.Name, describe(sh.vsd, n, info, false))
	}
	return nil
}

func (sh *shell) cmdUnsub(args []string) error {
	if len(args) != 1 {
		return errors.New("expected a path")
	}
	if !slices.Contains(sh.vsd.Subscriptions(), args[0]) {
		return fmt.Errorf("not subscribed to %s", args[0])
	}
	return sh.withSignal(args, 1, sh.vsd.Unsubscribe)
}

func (sh *shell) printHelp() {
	fmt.Fprint(sh.out, `
Signal Commands:
  ls [path]          - List the children of path (or the roots)
  tree [path]        - Print the subtree with current values
  info <path>        - Show the attributes of a signal
  get <path>         - Read a value
  set <path> <value> - Write a value
  pub <path>         - Publish a signal or branch to subscribed peers

Subscriptions:
  sub <path>         - Subscribe and print updates
  unsub <path>       - Cancel a subscription
  subs               - List subscribed paths

Other:
  status             - Show node status
  help               - Show this help
  quit               - Exit
`)
}
