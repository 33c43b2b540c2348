package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"card/internal/amqp"
	"card/internal/cli"
	"card/internal/config"
	"card/internal/feed"
	"card/internal/fetch"
	apphttp "card/internal/http"
	"card/internal/log"
	"card/internal/metrics"
	"card/internal/mqtt"
	"card/internal/services"
	"card/internal/ui"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the main and detail screens over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	m := metrics.New()

	// Fetches outlive the requests that trigger them.
	lifetime, cancelLifetime := context.WithCancel(context.Background())
	defer cancelLifetime()

	loop := ui.NewLoop(logger)
	loop.Start(lifetime)
	defer loop.Stop()

	summary := fetch.NewSummaryFetcher(lifetime, loop, a.backend, logger, m)
	list := fetch.NewListFetcher(lifetime, loop, a.backend, logger, m)

	publishers, closePublishers, err := openPublishers(a.cfg, logger)
	if err != nil {
		return err
	}
	defer closePublishers()

	hub := feed.NewHub(logger)
	publishers = append(publishers, hub)

	broadcaster := services.NewBroadcaster(summary.Store(), list.Store(), publishers, m, logger, services.DefaultBroadcasterConfig())
	if err := broadcaster.Start(lifetime); err != nil {
		return err
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + a.cfg.Port,
		Loop:               loop,
		Summary:            summary,
		List:               list,
		Locale:             a.locale,
		Logger:             logger,
		Metrics:            m,
		Feed:               hub,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		// Hijacked sockets are not drained by the server.
		_ = hub.Close()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := broadcaster.Stop(ctx); err != nil {
			logger.Warn("Broadcaster stop error", log.FieldError, err)
		}
	})

	logger.Info("Starting card server",
		"port", a.cfg.Port,
		"backend", a.cfg.DataBackend,
		"locale", a.locale.String(),
		"publishers", len(publishers))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", a.cfg.Port)
		return err
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}

// openPublishers connects the sinks enabled in cfg. The returned func closes
// every one that was opened.
func openPublishers(cfg *config.Config, logger *log.Logger) ([]services.Publisher, func(), error) {
	var (
		publishers []services.Publisher
		closers    []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Publisher close failed", log.FieldError, err)
			}
		}
	}

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		publishers = append(publishers, client)
		closers = append(closers, client.Close)
		logger.Info("AMQP publisher enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	if cfg.MQTTEnabled() {
		pub, err := mqtt.New(mqtt.Config{
			Broker:      cfg.MQTTBroker,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
		}, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		publishers = append(publishers, pub)
		closers = append(closers, pub.Close)
		logger.Info("MQTT publisher enabled", "broker", cfg.MQTTBroker, "prefix", cfg.MQTTTopicPrefix)
	}

	return publishers, closeAll, nil
}
