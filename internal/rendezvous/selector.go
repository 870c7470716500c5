package rendezvous

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"deskwire/internal/domain"
)

// Settings is the slice of domain.OptionStore the selector needs.
type Settings interface {
	Setting(key string) (string, error)
	SetSetting(key, value string) error
}

// ProbeFunc checks that a rendezvous URI accepts connections.
type ProbeFunc func(ctx context.Context, uri string) error

// ErrNoHostReachable is returned by Probe when every host failed.
var ErrNoHostReachable = errors.New("rendezvous: no host reachable")

// Selector picks the rendezvous host for new sessions.
type Selector struct {
	scheme   string
	hosts    []string
	custom   string
	timeout  time.Duration
	probe    ProbeFunc
	settings Settings
	log      *zap.Logger

	once     sync.Once
	mu       sync.Mutex
	selected string
}

// SelectorConfig configures NewSelector.
type SelectorConfig struct {
	Scheme       string
	Hosts        []string
	Custom       string
	ProbeTimeout time.Duration
	Probe        ProbeFunc
	Settings     Settings
	Logger       *zap.Logger
}

// NewSelector seeds the selection from the persisted setting, falling back
// to the first configured host.
func NewSelector(cfg SelectorConfig) *Selector {
	if len(cfg.Hosts) == 0 {
		cfg.Hosts = DefaultHosts
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Selector{
		scheme:   cfg.Scheme,
		hosts:    cfg.Hosts,
		custom:   cfg.Custom,
		timeout:  cfg.ProbeTimeout,
		probe:    cfg.Probe,
		settings: cfg.Settings,
		log:      cfg.Logger,
		selected: cfg.Hosts[0],
	}
	if cfg.Settings != nil {
		if v, err := cfg.Settings.Setting(domain.SettingRendezvousServer); err == nil && v != "" {
			s.selected = v
		}
	}
	return s
}

// Scheme returns the URI scheme endpoints use.
func (s *Selector) Scheme() string {
	if s.scheme == "" {
		return "ws"
	}
	return s.scheme
}

// Host returns the custom server when configured. Otherwise the first call
// probes the host list and later calls reuse the result.
func (s *Selector) Host(ctx context.Context) string {
	if s.custom != "" {
		return s.custom
	}
	s.once.Do(func() {
		if s.probe == nil {
			return
		}
		if _, err := s.Probe(ctx); err != nil {
			s.log.Warn("rendezvous probe failed, keeping previous host",
				zap.String("host", s.current()), zap.Error(err))
		}
	})
	return s.current()
}

func (s *Selector) current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Probe dials every configured host concurrently. The first to accept wins
// and is persisted.
func (s *Selector) Probe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		host    string
		latency time.Duration
		err     error
	}
	results := make(chan result, len(s.hosts))
	for _, h := range s.hosts {
		go func(h string) {
			start := time.Now()
			err := s.probe(ctx, RendezvousURI(s.Scheme(), h))
			results <- result{host: h, latency: time.Since(start), err: err}
		}(h)
	}

	var errs []error
	for range s.hosts {
		r := <-results
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		s.log.Info("rendezvous host selected",
			zap.String("host", r.host), zap.Duration("latency", r.latency))
		s.mu.Lock()
		s.selected = r.host
		s.mu.Unlock()
		if s.settings != nil {
			if err := s.settings.SetSetting(domain.SettingRendezvousServer, r.host); err != nil {
				s.log.Warn("persist rendezvous host", zap.Error(err))
			}
		}
		return r.host, nil
	}
	return "", errors.Join(append([]error{ErrNoHostReachable}, errs...)...)
}
