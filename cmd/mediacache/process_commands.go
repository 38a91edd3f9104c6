package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mediacache/internal/logging"
	"mediacache/internal/mediacache"
	"mediacache/internal/notifications"
	"mediacache/internal/preflight"
	"mediacache/internal/processor"
)

// outcomeView is the JSON shape of a processing outcome.
type outcomeView struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
	Worker string `json:"worker,omitempty"`
	ItemID string `json:"itemId,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newOutcomeView(o processor.Outcome) outcomeView {
	view := outcomeView{
		Kind:   string(o.Kind),
		Reason: o.Reason,
		Worker: o.Worker,
		Status: string(o.Status),
	}
	if o.Item != nil {
		view.ItemID = o.Item.ID
		view.Error = o.Item.Error
	}
	if o.Err != nil {
		view.Error = o.Err.Error()
	}
	return view
}

type runSummary struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Outcomes  []outcomeView `json:"outcomes"`
}

func (s *runSummary) failedIDs() []string {
	var ids []string
	for _, o := range s.Outcomes {
		if o.Kind == string(processor.Failed) && o.ItemID != "" {
			ids = append(ids, o.ItemID)
		}
	}
	return ids
}

func (s *runSummary) add(o processor.Outcome) {
	switch o.Kind {
	case processor.Completed:
		s.Completed++
	case processor.Failed:
		s.Failed++
	case processor.Skipped:
		s.Skipped++
	}
	s.Outcomes = append(s.Outcomes, newOutcomeView(o))
}

// runQueue drains up to limit queued items and prunes expired logs and
// scratch files afterwards.
func runQueue(ctx context.Context, rt *runtime, limit int, callback processor.Callback) (*runSummary, error) {
	if limit <= 0 {
		limit = rt.cfg.Processor.BatchSize
	}
	queue, err := rt.cache.Queue(ctx, limit)
	if err != nil {
		return nil, err
	}
	summary := &runSummary{Total: queue.Len(), Outcomes: []outcomeView{}}
	started := time.Now()
	err = rt.processor.ProcessQueue(ctx, queue, func(o processor.Outcome) {
		summary.add(o)
		if callback != nil {
			callback(o)
		}
	})
	notifyRun(ctx, rt, summary, time.Since(started), err)
	pruneExpired(rt)
	return summary, err
}

func notifyRun(ctx context.Context, rt *runtime, summary *runSummary, elapsed time.Duration, runErr error) {
	var err error
	switch {
	case runErr == nil:
		err = rt.notifier.NotifyQueueCompleted(ctx, notifications.RunSummary{
			Completed:   summary.Completed,
			Failed:      summary.Failed,
			Skipped:     summary.Skipped,
			Duration:    elapsed,
			FailedItems: summary.failedIDs(),
		})
	case errors.Is(runErr, processor.ErrAlreadyRunning), ctx.Err() != nil:
		return
	default:
		err = rt.notifier.NotifyRunAborted(ctx, runErr)
	}
	if err != nil {
		logging.WarnWithContext(rt.logger, "queue notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "run summary was not delivered"),
		)
	}
}

func pruneExpired(rt *runtime) {
	logging.CleanupOldLogs(rt.logger, rt.cfg.Logging.RetentionDays,
		logging.RetentionTarget{
			Dir:     rt.cfg.Paths.LogDir,
			Pattern: "*.log",
			Exclude: []string{filepath.Join(rt.cfg.Paths.LogDir, logging.LogFileName)},
		},
		logging.RetentionTarget{Dir: rt.cfg.Paths.TempDir},
	)
}

func printOutcome(out io.Writer, o processor.Outcome, colorize bool) {
	id := ""
	if o.Item != nil {
		id = o.Item.ID
	}
	switch o.Kind {
	case processor.Skipped:
		fmt.Fprintf(out, "%s skipped (%s)\n", id, o.Reason)
	case processor.Failed:
		detail := ""
		if o.Err != nil {
			detail = o.Err.Error()
		} else if o.Item != nil {
			detail = o.Item.Error
		}
		fmt.Fprintf(out, "%s %s via %s: %s\n", id, renderStatus(mediacache.StatusError, colorize), o.Worker, detail)
	default:
		fmt.Fprintf(out, "%s %s via %s\n", id, renderStatus(o.Status, colorize), o.Worker)
	}
}

// checkPreflight fails when a required directory or template check fails.
func checkPreflight(cmd *cobra.Command, rt *runtime) error {
	var blocking []string
	for _, result := range preflight.Failed(preflight.RunAll(cmd.Context(), rt.cfg)) {
		if result.Optional {
			logging.WarnWithContext(rt.logger, "preflight check failed", "preflight_warning",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "run `mediacache doctor` for details"),
				logging.String(logging.FieldImpact, "some items may not be processed"),
			)
			continue
		}
		blocking = append(blocking, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	if len(blocking) > 0 {
		return fmt.Errorf("preflight failed: %s", strings.Join(blocking, "; "))
	}
	return nil
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process queued cache items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				if !skipPreflight {
					if err := checkPreflight(cmd, rt); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				var callback processor.Callback
				if !ctx.JSONMode() {
					callback = func(o processor.Outcome) { printOutcome(out, o, colorize) }
				}
				summary, err := runQueue(cmd.Context(), rt, limit, callback)
				if err != nil {
					if errors.Is(err, processor.ErrAlreadyRunning) {
						return fmt.Errorf("another processor is running: %w", err)
					}
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, summary)
				}
				if summary.Total == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				fmt.Fprintf(out, "Processed %d items: %d completed, %d failed, %d skipped\n",
					summary.Total, summary.Completed, summary.Failed, summary.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum items to process (defaults to processor.batch_size)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and template checks")
	return cmd
}

func newProcessItemCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process-item <id>",
		Short: "Process a single cache item regardless of its queue status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				item, err := rt.cache.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("cache item %s not found", args[0])
				}
				var outcome *processor.Outcome
				result, err := rt.processor.ProcessItem(cmd.Context(), item, func(o processor.Outcome) {
					outcome = &o
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if outcome == nil {
						return writeJSON(cmd, outcomeView{Kind: string(processor.Skipped)})
					}
					return writeJSON(cmd, newOutcomeView(*outcome))
				}
				out := cmd.OutOrStdout()
				if outcome != nil {
					printOutcome(out, *outcome, shouldColorize(out))
				}
				if result == nil {
					fmt.Fprintln(out, "No worker produced a cache item")
				}
				return nil
			})
		},
	}
}
