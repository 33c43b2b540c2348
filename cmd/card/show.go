package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"card/internal/core"
	"card/internal/fetch"
	"card/internal/term"
	"card/internal/ui"
)

var errFetchFailed = errors.New("one or more fetches failed")

var showScreen string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch once and print the screens to the terminal",
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showScreen, "screen", "all", "screen to print: main, details or all")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	wantMain, wantDetails := showScreen == "main" || showScreen == "all", showScreen == "details" || showScreen == "all"
	if !wantMain && !wantDetails {
		return fmt.Errorf("unknown screen %q", showScreen)
	}

	a, err := bootstrap(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.UpstreamTimeout+5*time.Second)
	defer cancel()

	loop := ui.NewLoop(a.logger)
	loop.Start(ctx)
	defer loop.Stop()

	summary := fetch.NewSummaryFetcher(ctx, loop, a.backend, a.logger, nil)
	list := fetch.NewListFetcher(ctx, loop, a.backend, a.logger, nil)

	g, gctx := errgroup.WithContext(ctx)
	await := func(trigger func() <-chan struct{}) func() error {
		return func() error {
			select {
			case <-trigger():
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	}
	if wantMain {
		g.Go(await(summary.Trigger))
	}
	if wantDetails {
		g.Go(await(list.Trigger))
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("waiting for fetches: %w", err)
	}

	out := cmd.OutOrStdout()
	r := term.New(out)
	now := time.Now()
	failed := false

	if wantMain {
		st := summary.Store().Snapshot()
		fmt.Fprintln(out, r.Main(core.NewMainScreen(now, a.locale, st.Display)))
		failed = failed || !st.OK
	}
	if wantDetails {
		if wantMain {
			fmt.Fprintln(out)
		}
		st := list.Store().Snapshot()
		fmt.Fprintln(out, r.Detail(core.NewDetailScreen(now, st.Loading, st.Err, st.Usages)))
		failed = failed || st.Err != ""
	}

	if failed {
		return errFetchFailed
	}
	return nil
}
