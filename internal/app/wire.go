package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"deskwire/internal/config"
	"deskwire/internal/domain"
	"deskwire/internal/handshake"
	"deskwire/internal/rendezvous"
	"deskwire/internal/session"
	"deskwire/internal/store"
	"deskwire/internal/transport"
)

// Wire bundles the stores, clients and engines shared by sessions.
type Wire struct {
	Config     *config.Config
	Log        *zap.Logger
	Store      domain.OptionStore
	Selector   *rendezvous.Selector
	Rendezvous *rendezvous.Client
	Handshake  *handshake.Engine

	closeStore func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg *config.Config, log *zap.Logger) (*Wire, error) {
	if log == nil {
		log = zap.NewNop()
	}
	st, closeStore, err := store.Open(store.Config{
		Driver:     cfg.Store.Driver,
		Path:       cfg.Store.Path,
		Home:       cfg.Home,
		Passphrase: cfg.Store.Passphrase,
	})
	if err != nil {
		return nil, fmt.Errorf("open option store: %w", err)
	}

	w := &Wire{
		Config:     cfg,
		Log:        log,
		Store:      st,
		closeStore: closeStore,
	}
	w.Selector = rendezvous.NewSelector(rendezvous.SelectorConfig{
		Scheme:       cfg.Rendezvous.Scheme,
		Hosts:        cfg.Rendezvous.Hosts,
		Custom:       cfg.Rendezvous.CustomServer,
		ProbeTimeout: cfg.Rendezvous.ProbeTimeout,
		Probe:        w.probe,
		Settings:     st,
		Logger:       log.Named("selector"),
	})
	w.Rendezvous = rendezvous.NewClient(rendezvous.Config{
		Hosts:          w.Selector,
		Dial:           w.Dial,
		LicenceKey:     cfg.Rendezvous.Key,
		Token:          cfg.Rendezvous.Token,
		ConnectTimeout: cfg.Rendezvous.ConnectTimeout,
		Logger:         log.Named("rendezvous"),
	})
	w.Handshake = handshake.NewEngine(cfg.Rendezvous.Key, log.Named("handshake"))
	return w, nil
}

// Dial opens a transport connection with the configured timeouts.
func (w *Wire) Dial(ctx context.Context, uri string) (*transport.Conn, error) {
	return transport.Dial(ctx, uri, transport.DialOptions{
		Conn: transport.Options{
			ReadTimeout:   w.Config.Session.ReadTimeout,
			FlushInterval: w.Config.Session.FlushInterval,
			Logger:        w.Log.Named("transport"),
		},
	})
}

func (w *Wire) probe(ctx context.Context, uri string) error {
	conn, err := w.Dial(ctx, uri)
	if err != nil {
		return err
	}
	return conn.Close()
}

// NewSession creates a session handle for peer id.
func (w *Wire) NewSession(id string, fe session.Frontend) (*session.Session, error) {
	return session.New(id, session.Deps{
		Negotiator: w.Rendezvous,
		Dial:       w.Dial,
		Handshake:  w.Handshake,
		Store:      w.Store,
		Logger:     w.Log.Named("session"),
	}, fe, session.Config{
		MyID:           w.Config.Session.MyID,
		MyName:         w.Config.Session.MyName,
		QueueInterval:  w.Config.Session.QueueInterval,
		ConnectTimeout: w.Config.Rendezvous.ConnectTimeout,
	})
}

// Close releases the option store.
func (w *Wire) Close() error {
	return w.closeStore()
}
