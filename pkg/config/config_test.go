package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vsd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, TransportTCP, cfg.Transport.Kind)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
id: body-ecu
catalog: /etc/vsd/vss.csv
log_level: debug
auto_publish: true
metrics_addr: ":9460"
transport:
  kind: tcp
  tcp:
    listen: "127.0.0.1:7000"
    peers: ["10.0.0.2:7460", "10.0.0.3:7460"]
    handshake_timeout: 2s
    tls:
      cert: node.pem
      key: node.key
mdns:
  enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "body-ecu", cfg.ID)
	assert.Equal(t, "/etc/vsd/vss.csv", cfg.Catalog)
	assert.True(t, cfg.AutoPublish)
	assert.True(t, cfg.MDNS.Enabled)
	assert.Equal(t, []string{"10.0.0.2:7460", "10.0.0.3:7460"}, cfg.Transport.TCP.Peers)
	assert.Equal(t, 2*time.Second, cfg.Transport.TCP.HandshakeTimeout)
	assert.True(t, cfg.Transport.TCP.TLS.Enabled())
	assert.Equal(t, "vsd:", cfg.Transport.Redis.Prefix, "untouched sections keep defaults")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"bad kind", "transport:\n  kind: carrier-pigeon\n", ErrInvalidTransport},
		{"bad level", "log_level: loud\n", ErrInvalidLogLevel},
		{"redis without addr", "transport:\n  kind: redis\n  redis:\n    addr: \"\"\n", ErrMissingSetting},
		{"tcp without endpoints", "transport:\n  kind: tcp\n  tcp:\n    listen: \"\"\n", ErrMissingSetting},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = Load(writeFile(t, "transport: [\n"))
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}
