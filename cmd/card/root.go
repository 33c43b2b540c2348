package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"card/internal/backend"
	"card/internal/cli"
	"card/internal/config"
	"card/internal/core"
	"card/internal/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "card",
	Short: "Show this month's card usage",
	Long: `card fetches the monthly card usage total and the itemized usage list
from the card usage API and presents them as a web UI (serve) or in the
terminal (show).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_FILE or ./config.yaml)")
}

// app is what every command needs before it can fetch.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	locale  language.Tag
	backend backend.Backend
	cleanup backend.CleanupFunc
}

// bootstrap loads configuration, sets up logging to logOut and opens the
// configured backend.
func bootstrap(ctx context.Context, logOut io.Writer) (*app, error) {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel, logOut)

	locale, err := core.ParseLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		locale:  locale,
		backend: res.Backend,
		cleanup: res.Cleanup,
	}, nil
}

func (a *app) close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
}
