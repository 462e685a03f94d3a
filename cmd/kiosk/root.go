package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/config"
	"kiosk/agent/internal/logging"
)

// app is what every subcommand starts from.
type app struct {
	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		logLevel    string
		catalogPath string
	)

	root := &cobra.Command{
		Use:   "kiosk",
		Short: "Avatar kiosk intent engine and session orchestrator",
		Long: `kiosk turns visitor speech and button presses into avatar speech, menus
and training videos.

Examples:
  kiosk serve                        # HTTP, websocket and gRPC front ends
  kiosk console                      # talk to the orchestrator in a terminal
  kiosk resolve "module one please"  # show how an utterance is understood
  kiosk health                       # check HeyGen and OpenAI credentials`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			if logLevel != "" {
				a.cfg.Server.LogLevel = logLevel
			}
			if catalogPath != "" {
				a.cfg.Kiosk.CatalogPath = catalogPath
			}
			log, err := logging.New(a.cfg.Server.LogLevel)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog YAML file; overrides KIOSK_CATALOG_PATH")

	root.AddCommand(
		newServeCmd(a),
		newConsoleCmd(a),
		newResolveCmd(a),
		newHealthCmd(a),
	)
	return root
}

func (a *app) loadCatalog() (*catalog.Catalog, error) {
	return catalog.LoadOrDefault(a.cfg.Kiosk.CatalogPath)
}
