package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskwire/internal/app"
	"deskwire/internal/config"
	"deskwire/internal/observability"
)

var (
	cfgPath      string
	home         string
	customServer string
	licenceKey   string
	storeDriver  string
	logLevel     string

	wire   *app.Wire
	logger *zap.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "deskwire",
		Short:        "Remote desktop session client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)
			if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
				return err
			}
			logger, err = observability.SetupLogger(cfg.Log, cfg.Home)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			wire, err = app.NewWire(cfg, logger)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Sync() }()
			if wire != nil {
				return wire.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default deskwire.yaml in ., ./configs or ~/.deskwire)")
	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.deskwire)")
	root.PersistentFlags().StringVar(&customServer, "server", "", "custom rendezvous server host[:port]")
	root.PersistentFlags().StringVar(&licenceKey, "key", "", "licence key and trust anchor of the rendezvous server")
	root.PersistentFlags().StringVar(&storeDriver, "store", "", "option store driver: file or sqlite")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(connectCmd(), peersCmd(), probeCmd(), fingerprintCmd())
	return root.Execute()
}

// applyFlags lets explicitly set flags override the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("home") {
		cfg.Home = home
	}
	if flags.Changed("server") {
		cfg.Rendezvous.CustomServer = customServer
	}
	if flags.Changed("key") {
		cfg.Rendezvous.Key = licenceKey
	}
	if flags.Changed("store") {
		cfg.Store.Driver = storeDriver
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
}
