package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/PDXostc/vehicle-signal-distribution/pkg/catalog"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/config"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/discovery"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/log"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/metrics"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport/natsbus"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/transport/redisbus"
	"github.com/PDXostc/vehicle-signal-distribution/pkg/vsd"
)

// app is a running node: a signal context on a transport plus the
// optional metrics server, protocol capture and mDNS.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	vsd    *vsd.Context
	tr     transport.Adapter

	closers []func() error
}

// newLogger builds the operational logger on stderr.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// startApp brings up the node described by cfg and loads catalogPath.
func startApp(ctx context.Context, cfg config.Config, catalogPath string) (*app, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(os.Stderr, level)}
	if err := a.start(ctx, catalogPath); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) start(ctx context.Context, catalogPath string) error {
	var plog log.Logger
	if a.cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(a.cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("protocol log: %w", err)
		}
		a.closers = append(a.closers, fl.Close)
		plog = fl
		if a.logger.Enabled(ctx, slog.LevelDebug) {
			plog = log.NewMultiLogger(fl, log.NewSlogAdapter(a.logger))
		}
	}

	var coll *metrics.Collector
	if a.cfg.MetricsAddr != "" {
		coll = metrics.New(true)
		if err := a.serveMetrics(coll); err != nil {
			return err
		}
	}

	tr, node, err := openTransport(ctx, a.cfg, a.logger, plog)
	if err != nil {
		return err
	}
	a.tr = tr
	a.closers = append(a.closers, tr.Close)

	a.vsd = vsd.New(tr,
		vsd.WithLogger(a.logger),
		vsd.WithProtocolLogger(plog),
		vsd.WithMetrics(coll),
		vsd.WithAutoPublish(a.cfg.AutoPublish),
	)
	a.closers = append(a.closers, a.vsd.Close)
	if err := a.vsd.LoadFile(catalogPath); err != nil {
		return err
	}

	if a.cfg.MDNS.Enabled {
		if node == nil {
			a.logger.Warn("mdns needs the tcp transport; discovery disabled", "transport", a.cfg.Transport.Kind)
		} else if err := a.discover(ctx, node, catalogPath); err != nil {
			return err
		}
	}

	a.logger.Info("node started",
		"id", tr.LocalID(),
		"transport", a.cfg.Transport.Kind,
		"catalog", catalogPath,
		"signals", a.vsd.Len())
	return nil
}

// openTransport builds the adapter selected by cfg. The *transport.Node is
// returned as well for the tcp kind so discovery can add peers to it.
func openTransport(ctx context.Context, cfg config.Config, logger *slog.Logger, plog log.Logger) (transport.Adapter, *transport.Node, error) {
	tc := cfg.Transport
	switch tc.Kind {
	case config.TransportMemory:
		ep, err := transport.NewBus(tc.QueueLimit).Endpoint(cfg.ID)
		return ep, nil, err

	case config.TransportTCP:
		nc := transport.NodeConfig{
			ID:               cfg.ID,
			ListenAddr:       tc.TCP.Listen,
			Peers:            tc.TCP.Peers,
			MaxMessageSize:   tc.TCP.MaxMessageSize,
			HandshakeTimeout: tc.TCP.HandshakeTimeout,
			Backoff:          transport.BackoffConfig{Max: tc.TCP.RedialMax},
			QueueLimit:       tc.QueueLimit,
			Logger:           logger,
			ProtocolLogger:   plog,
		}
		if tc.TCP.TLS.Enabled() {
			var err error
			if tc.TCP.Listen != "" {
				if nc.ServerTLS, err = transport.NewServerTLSConfig(tc.TCP.TLS); err != nil {
					return nil, nil, err
				}
			}
			if nc.ClientTLS, err = transport.NewClientTLSConfig(tc.TCP.TLS); err != nil {
				return nil, nil, err
			}
		}
		node := transport.NewNode(nc)
		if err := node.Start(ctx); err != nil {
			node.Close()
			return nil, nil, err
		}
		return node, node, nil

	case config.TransportRedis:
		opts := []redisbus.Option{
			redisbus.WithQueueLimit(tc.QueueLimit),
			redisbus.WithLogger(logger),
		}
		if tc.Redis.Prefix != "" {
			opts = append(opts, redisbus.WithPrefix(tc.Redis.Prefix))
		}
		if cfg.ID != "" {
			opts = append(opts, redisbus.WithID(cfg.ID))
		}
		ad, err := redisbus.Dial(ctx, tc.Redis.Addr, tc.Redis.Password, tc.Redis.DB, opts...)
		return ad, nil, err

	case config.TransportNATS:
		nc := natsbus.DefaultConfig()
		nc.URL = tc.NATS.URL
		nc.ID = cfg.ID
		nc.QueueLimit = tc.QueueLimit
		nc.Logger = logger
		if tc.NATS.SubjectPrefix != "" {
			nc.SubjectPrefix = tc.NATS.SubjectPrefix
		}
		ad, err := natsbus.Connect(ctx, nc)
		return ad, nil, err
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidTransport, tc.Kind)
}

func (a *app) serveMetrics(coll *metrics.Collector) error {
	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", coll.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

// discover advertises the node and dials every node found whose id sorts
// after ours; the other side of each pair dials us.
func (a *app) discover(ctx context.Context, node *transport.Node, catalogPath string) error {
	var port uint16
	if tcp, ok := node.Addr().(*net.TCPAddr); ok {
		port = uint16(tcp.Port)
	}
	dcfg := discovery.DefaultConfig()
	dcfg.Interface = a.cfg.MDNS.Interface
	dcfg.Logger = a.logger

	adv := discovery.NewAdvertiser(dcfg)
	if port != 0 {
		if err := adv.Advertise(&discovery.NodeInfo{
			ID:      node.LocalID(),
			Port:    port,
			Catalog: catalog.Name(catalogPath),
		}); err != nil {
			return fmt.Errorf("mdns advertise: %w", err)
		}
		a.closers = append(a.closers, func() error { adv.Stop(); return nil })
	}

	bctx, cancel := context.WithCancel(ctx)
	a.closers = append(a.closers, func() error { cancel(); return nil })
	events, err := discovery.NewBrowser(dcfg).Browse(bctx, node.LocalID())
	if err != nil {
		return fmt.Errorf("mdns browse: %w", err)
	}

	go func() {
		var dialed []string
		for ev := range events {
			peer := ev.Peer
			a.logger.Debug("mdns peer", "event", ev.Kind, "id", peer.ID, "catalog", peer.Catalog, "addresses", peer.Addresses)
			if ev.Kind != discovery.PeerAdded || peer.ID <= node.LocalID() || slices.Contains(dialed, peer.ID) {
				continue
			}
			endpoints := peer.Endpoints()
			if len(endpoints) == 0 {
				continue
			}
			if peer.Catalog != catalog.Name(catalogPath) {
				a.logger.Warn("peer uses a different catalog", "id", peer.ID, "catalog", peer.Catalog)
			}
			if err := node.Dial(endpoints[0]); err != nil {
				a.logger.Warn("dial discovered peer", "id", peer.ID, "error", err)
				continue
			}
			dialed = append(dialed, peer.ID)
		}
	}()
	return nil
}

// Close shuts everything down in reverse start order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
