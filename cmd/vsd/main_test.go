package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PDXostc/vehicle-signal-distribution/cmd/vsd/logview"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/catalog"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/config"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/model"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/vsd"
)

const testCatalog = `path,id,elem_type,data_type,unit,min,max,desc,enum,sensor,actuator,default
Vehicle,1,branch,na,,,,Vehicle,,,,
Vehicle.Speed,2,sensor,float,km/h,0,250,Speed,,,,0
Vehicle.Cabin,3,branch,na,,,,Cabin,,,,
Vehicle.Cabin.Lights,4,actuator,boolean,,,,Lights,,,,false
Vehicle.Gear,5,sensor,string,,,,Gear,P/R/N/D,,,P
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vehicle.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))
	return path
}

// runConfig parses args against a fresh command carrying the node flags.
func runConfig(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var (
		cfg    config.Config
		cfgErr error
	)
	cmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cfgErr = loadConfig(cmd)
			return nil
		},
	}
	addNodeFlags(cmd)
	cmd.SetArgs(append([]string{}, args...))
	require.NoError(t, cmd.Execute())
	return cfg, cfgErr
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := runConfig(t)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: from-file
transport:
  kind: redis
  redis:
    addr: "redis:6379"
log_level: warn
`), 0o600))

	cfg, err := runConfig(t,
		"--config", path,
		"--transport", "tcp",
		"--listen", "127.0.0.1:0",
		"--peer", "10.0.0.2:7460",
		"--peer", "10.0.0.3:7460",
		"--auto-publish",
	)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.ID)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, config.TransportTCP, cfg.Transport.Kind)
	assert.Equal(t, "127.0.0.1:0", cfg.Transport.TCP.Listen)
	assert.Equal(t, []string{"10.0.0.2:7460", "10.0.0.3:7460"}, cfg.Transport.TCP.Peers)
	assert.Equal(t, "redis:6379", cfg.Transport.Redis.Addr)
	assert.True(t, cfg.AutoPublish)
	assert.False(t, cfg.MDNS.Enabled)
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	_, err := runConfig(t, "--transport", "carrier-pigeon")
	assert.ErrorIs(t, err, config.ErrInvalidTransport)

	_, err = runConfig(t, "--log-level", "loud")
	assert.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestParseAssignment(t *testing.T) {
	path, value, err := parseAssignment("Vehicle.Gear=D")
	require.NoError(t, err)
	assert.Equal(t, "Vehicle.Gear", path)
	assert.Equal(t, "D", value)

	_, value, err = parseAssignment("Vehicle.Cabin.Name=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", value)

	for _, bad := range []string{"Vehicle.Gear", "=D", ""} {
		_, _, err := parseAssignment(bad)
		assert.Error(t, err, bad)
	}
}

func loadTree(t *testing.T) *model.Tree {
	t.Helper()
	entries, err := catalog.LoadFile(writeCatalog(t))
	require.NoError(t, err)
	tree := model.NewTree()
	require.NoError(t, tree.Load(entries))
	return tree
}

func TestPrintTree(t *testing.T) {
	tree := loadTree(t)

	var buf bytes.Buffer
	require.NoError(t, printTree(&buf, tree, model.Signal{}, true))
	want := `Vehicle/
  Speed [sensor float #2] km/h = 0
  Cabin/
    Lights [actuator boolean #4] = false
  Gear [sensor string #5] = P
`
	assert.Equal(t, want, buf.String())

	cabin, err := tree.Lookup("Vehicle.Cabin")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, printTree(&buf, tree, cabin, false))
	assert.Equal(t, "Cabin/\n  Lights [actuator boolean #4]\n", buf.String())
}

func TestFormatInfo(t *testing.T) {
	tree := loadTree(t)
	gear, err := tree.Lookup("Vehicle.Gear")
	require.NoError(t, err)
	info, err := tree.Info(gear)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatInfo(&buf, info)
	out := buf.String()
	assert.Contains(t, out, "Path:        Vehicle.Gear")
	assert.Contains(t, out, "ID:          5")
	assert.Contains(t, out, "Allowed:     P, R, N, D")
	assert.NotContains(t, out, "Range:")
}

func TestDumpCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"dump", writeCatalog(t), "Vehicle.Cabin"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Cabin/\n  Lights [actuator boolean #4]\n", buf.String())
}

func newShellNode(t *testing.T, bus *transport.Bus, id string, out *bytes.Buffer) (*vsd.Context, *shell) {
	t.Helper()
	ep, err := bus.Endpoint(id)
	require.NoError(t, err)
	c := vsd.New(ep)
	require.NoError(t, c.LoadFile(writeCatalog(t)))
	t.Cleanup(func() {
		c.Close()
		ep.Close()
	})
	return c, newShell(c, out)
}

func TestShellLocalCommands(t *testing.T) {
	var out bytes.Buffer
	_, sh := newShellNode(t, transport.NewBus(0), "a", &out)

	run := func(line string) string {
		out.Reset()
		assert.False(t, sh.exec(line))
		return out.String()
	}

	assert.Equal(t, "Vehicle.Speed = 0\n", run("get Vehicle.Speed"))
	assert.Empty(t, run("set Vehicle.Speed 88.5"))
	assert.Equal(t, "Vehicle.Speed = 88.5\n", run("get Vehicle.Speed"))
	assert.Contains(t, run("set Vehicle.Speed 999"), "error:")
	assert.Contains(t, run("set Vehicle.Gear X"), "error:")

	assert.Equal(t, "Speed [sensor float #2] km/h\nCabin/\nGear [sensor string #5]\n", run("ls Vehicle"))
	assert.Contains(t, run("tree Vehicle"), "Speed [sensor float #2] km/h = 88.5")
	assert.Contains(t, run("info Vehicle.Speed"), "Range:       0 .. 250")

	assert.Empty(t, run("sub Vehicle.Cabin"))
	assert.Equal(t, "Vehicle.Cabin\n", run("subs"))
	assert.Empty(t, run("unsub Vehicle.Cabin"))
	assert.Empty(t, run("subs"))
	assert.Contains(t, run("unsub Vehicle.Cabin"), "not subscribed")

	assert.Contains(t, run("get Vehicle.Nope"), "error:")
	assert.Contains(t, run("get"), "expected 1 argument")
	assert.Contains(t, run("frobnicate"), "Unknown command: frobnicate")
	assert.Contains(t, run("status"), "processor:     IDLE")

	out.Reset()
	assert.True(t, sh.exec("quit"))
}

func TestShellsExchangeUpdates(t *testing.T) {
	bus := transport.NewBus(0)
	var outA, outB bytes.Buffer
	a, shA := newShellNode(t, bus, "a", &outA)
	b, shB := newShellNode(t, bus, "b", &outB)

	shB.exec("sub Vehicle.Speed")
	_, err := a.ProcessEvents(0)
	require.NoError(t, err)

	shA.exec("set Vehicle.Speed 42")
	shA.exec("pub Vehicle.Speed")
	require.Empty(t, outA.String())

	n, err := b.ProcessEvents(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, outB.String(), "Vehicle.Speed = 42 (from a)")

	outB.Reset()
	shB.exec("get Vehicle.Speed")
	assert.Equal(t, "Vehicle.Speed = 42\n", outB.String())
}

func TestStartAppMemoryTransport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.ID = "body-ecu"
	cfg.LogLevel = "error"
	cfg.Transport.Kind = config.TransportMemory
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.ProtocolLog = filepath.Join(dir, "node.vlog")

	a, err := startApp(context.Background(), cfg, writeCatalog(t))
	require.NoError(t, err)
	assert.Equal(t, "body-ecu", a.vsd.LocalID())
	assert.Equal(t, 5, a.vsd.Len())
	require.NoError(t, a.Close())

	stats, err := logview.Collect(cfg.ProtocolLog)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EventsByCategory[log.CategoryState], "catalog load is captured")
}

func TestStartAppMissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "error"
	cfg.Transport.Kind = config.TransportMemory

	_, err := startApp(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "open catalog"), err.Error())
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "protocol: 1.0\nalpn:     vsd/1\n", buf.String())
}
