package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/version"
)

// ErrNoCertificate is returned when a TLS config has no certificate to present.
var ErrNoCertificate = errors.New("tls certificate is required")

// TLSFiles names PEM files for a node's TLS identity.
type TLSFiles struct {
	CertFile string `yaml:"cert"`
	KeyFile  string `yaml:"key"`

	// CAFile verifies the remote side. When set, servers require client
	// certificates signed by it.
	CAFile string `yaml:"ca"`

	// ServerName overrides the expected name of dialed peers.
	ServerName string `yaml:"server_name"`

	// Insecure skips verification of the remote certificate. Test links only.
	Insecure bool `yaml:"insecure"`
}

// Enabled reports whether any TLS material is configured.
func (f TLSFiles) Enabled() bool {
	return f.CertFile != "" || f.KeyFile != "" || f.CAFile != "" || f.Insecure
}

func baseTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:             tls.VersionTLS13,
		MaxVersion:             tls.VersionTLS13,
		NextProtos:             version.SupportedALPNProtocols(),
		CurvePreferences:       []tls.CurveID{tls.X25519, tls.CurveP256},
		SessionTicketsDisabled: true,
	}
}

// NewServerTLSConfig builds the listener side config from f.
func NewServerTLSConfig(f TLSFiles) (*tls.Config, error) {
	if f.CertFile == "" || f.KeyFile == "" {
		return nil, ErrNoCertificate
	}
	cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}

	cfg := baseTLSConfig()
	cfg.Certificates = []tls.Certificate{cert}
	if f.CAFile != "" {
		pool, err := loadPool(f.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	if f.Insecure {
		cfg.ClientAuth = tls.RequestClientCert
	}
	return cfg, nil
}

// NewClientTLSConfig builds the dialing side config from f. A certificate is
// optional unless the remote listener requires one.
func NewClientTLSConfig(f TLSFiles) (*tls.Config, error) {
	cfg := baseTLSConfig()
	cfg.ServerName = f.ServerName
	cfg.InsecureSkipVerify = f.Insecure

	if f.CertFile != "" || f.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if f.CAFile != "" {
		pool, err := loadPool(f.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func loadPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("ca %s: no certificates found", path)
	}
	return pool, nil
}

// VerifyConnection checks that a TLS link negotiated TLS 1.3 and our ALPN.
func VerifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("tls version %#x is not TLS 1.3", state.Version)
	}
	major, err := version.MajorFromALPN(state.NegotiatedProtocol)
	if err != nil {
		return err
	}
	if major != version.MustCurrent().Major {
		return fmt.Errorf("%w: alpn %q", version.ErrIncompatible, state.NegotiatedProtocol)
	}
	return nil
}
