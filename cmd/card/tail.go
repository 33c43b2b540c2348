package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"card/internal/amqp"
	"card/internal/cli"
	"card/internal/core"
	"card/internal/worker"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print state changes published by a running server",
	Long: `tail consumes the state changes a running "card serve" publishes to the
configured AMQP queue and prints one line per change until interrupted.`,
	RunE: runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig(cfgFile)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())

	if !cfg.AMQPEnabled() {
		return fmt.Errorf("tail needs AMQP_URL to be set")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)
	w := worker.NewTailWorker(cmd.OutOrStdout(), logger)

	logger.Info("Tailing state changes", "queue", cfg.AMQPQueue)
	err = client.Consume(ctx, func(msg *core.StateChanged) error {
		return w.HandleStateChange(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Tail stopped", "handled", w.Handled())
	return nil
}
