package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediacache/internal/httpapi"
	"mediacache/internal/logging"
	"mediacache/internal/processor"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and item endpoints, optionally processing the queue periodically",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if strings.TrimSpace(bind) == "" {
					bind = rt.cfg.HTTP.Bind
				}
				if !cmd.Flags().Changed("interval") {
					interval = rt.cfg.RunInterval()
				}

				server := httpapi.New(httpapi.Options{
					Bind:       bind,
					Items:      rt.cache,
					LastRun:    rt.props,
					MaxAge:     rt.cfg.StaleAfter(),
					Gatherer:   rt.registry,
					LogPath:    filepath.Join(rt.cfg.Paths.LogDir, logging.LogFileName),
					Registerer: rt.registry,
					Logger:     rt.logger,
				})
				runCtx := cmd.Context()
				if err := server.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", server.Addr())

				if interval > 0 {
					runPeriodically(runCtx, rt, interval)
				} else {
					<-runCtx.Done()
				}
				server.Stop()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to http.bind)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Queue run interval; 0 disables periodic runs (defaults to processor.run_interval)")
	return cmd
}

// runPeriodically drains the queue every interval until ctx ends. A run
// refused because another processor holds the lock is not an error.
func runPeriodically(ctx context.Context, rt *runtime, interval time.Duration) {
	logger := logging.NewComponentLogger(rt.logger, "scheduler")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		summary, err := runQueue(ctx, rt, 0, nil)
		switch {
		case err == nil:
			if summary.Total > 0 {
				logger.Info("scheduled queue run finished",
					logging.Int("completed", summary.Completed),
					logging.Int("failed", summary.Failed),
					logging.Int("skipped", summary.Skipped),
					logging.String(logging.FieldEventType, "scheduled_run_finished"),
				)
			}
		case errors.Is(err, processor.ErrAlreadyRunning):
			logger.Info("scheduled queue run skipped; processor busy",
				logging.String(logging.FieldEventType, "scheduled_run_skipped"),
			)
		case ctx.Err() != nil:
			return
		default:
			logging.ErrorWithContext(logger, "scheduled queue run failed", "scheduled_run_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `mediacache doctor` to check configuration"),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
