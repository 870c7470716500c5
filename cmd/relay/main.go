package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskwire/internal/hoststub"
	"deskwire/internal/rendezvous"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		cfg      hoststub.Config
		host     string
		basePort int
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Development rendezvous server, relay and emulated host",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg.Logger = log.Named("host")
			cfg.RelayServer = net.JoinHostPort(host, strconv.Itoa(basePort+1))
			srv, err := hoststub.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			servers := []*http.Server{
				newServer(host, basePort+2, srv.RendezvousHandler(), log.Named("rendezvous")),
				newServer(host, basePort+3, srv.RelayHandler(), log.Named("relay")),
			}
			errc := make(chan error, len(servers))
			for _, s := range servers {
				go func(s *http.Server) {
					log.Info("listening", zap.String("addr", s.Addr))
					if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errc <- err
					}
				}(s)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Host ID:      %s\n", cfg.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Trust anchor: %s\n", srv.TrustAnchor())
			fmt.Fprintf(cmd.OutOrStdout(), "Server:       %s\n", net.JoinHostPort(host, strconv.Itoa(basePort)))

			select {
			case <-ctx.Done():
			case err = <-errc:
			}
			srv.Disconnect()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			for _, s := range servers {
				_ = s.Shutdown(shutdownCtx)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.ID, "id", "123456789", "host id clients connect to")
	f.StringVar(&cfg.Password, "password", "", "host password; empty accepts any login")
	f.StringVar(&cfg.Version, "version", hoststub.DefaultVersion, "host version to advertise")
	f.IntVar(&cfg.VideoBatch, "frames", 3, "frames in the video batch sent after login")
	f.StringVar(&host, "host", "127.0.0.1", "listen and advertised host")
	f.IntVar(&basePort, "base-port", rendezvous.BasePort, "base port; listeners use base+2 and base+3")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newServer(host string, port int, h http.Handler, log *zap.Logger) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           accessLog(h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// accessLog records each request once its handler returns. Websocket
// handlers return when the peer disconnects.
func accessLog(next http.Handler, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}
