package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediacache/internal/api"
	"mediacache/internal/deps"
	"mediacache/internal/preflight"
	"mediacache/internal/processor"
)

var errUnhealthy = errors.New("mediacache is unhealthy")

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report whether the processor has run recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				report, err := processor.CheckLastRun(cmd.Context(), rt.props, time.Now(), rt.cfg.StaleAfter())
				if err != nil {
					return err
				}
				resp := api.HealthResponse{Status: "ok", Problems: report.Problems}
				if !report.LastRun.IsZero() {
					resp.LastRun = api.FormatTime(report.LastRun)
				}
				if !report.Healthy() {
					resp.Status = "degraded"
				}
				if ctx.JSONMode() {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					lastRun := resp.LastRun
					if lastRun == "" {
						lastRun = "never"
					}
					if report.Healthy() {
						fmt.Fprintln(out, renderCheck("Last run", checkOK, lastRun, colorize))
					}
					for _, problem := range report.Problems {
						fmt.Fprintln(out, renderCheck("Last run", checkFail, problem, colorize))
					}
				}
				if !report.Healthy() {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

type doctorReport struct {
	Checks   []preflight.Result `json:"checks"`
	Tools    []deps.Status      `json:"tools"`
	Database any                `json:"database"`
	Healthy  bool               `json:"healthy"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, templates, external tools and the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				report := doctorReport{
					Checks:  preflight.RunAll(cmd.Context(), rt.cfg),
					Tools:   preflight.CheckSystemDeps(cmd.Context(), rt.cfg, ctx.runner),
					Healthy: true,
				}
				dbHealth, dbErr := rt.db.CheckHealth(cmd.Context())
				report.Database = dbHealth

				for _, check := range report.Checks {
					if !check.Passed && !check.Optional {
						report.Healthy = false
					}
				}
				for _, tool := range deps.Missing(report.Tools) {
					if !tool.Optional {
						report.Healthy = false
					}
				}
				dbOK := dbErr == nil && dbHealth.IntegrityCheck && len(dbHealth.MissingTables) == 0
				if !dbOK {
					report.Healthy = false
				}

				if ctx.JSONMode() {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					fmt.Fprintln(out, "Checks")
					for _, check := range report.Checks {
						fmt.Fprintln(out, renderCheck(check.Name, resultKind(check.Passed, check.Optional), check.Detail, colorize))
					}
					fmt.Fprintln(out, "Tools")
					for _, tool := range report.Tools {
						detail := tool.Version
						if !tool.Available {
							detail = tool.Detail
						}
						fmt.Fprintln(out, renderCheck(tool.Name, resultKind(tool.Available, tool.Optional), detail, colorize))
					}
					fmt.Fprintln(out, "Database")
					detail := fmt.Sprintf("%s (schema v%d, %d items, %d files)", dbHealth.DBPath, dbHealth.SchemaVersion, dbHealth.CacheItems, dbHealth.Files)
					if dbErr != nil {
						detail = dbErr.Error()
					} else if dbHealth.Error != "" {
						detail = dbHealth.Error
					}
					fmt.Fprintln(out, renderCheck("Integrity", resultKind(dbOK, false), detail, colorize))
				}
				if !report.Healthy {
					return errUnhealthy
				}
				return nil
			})
		},
	}
}

func resultKind(passed, optional bool) checkKind {
	switch {
	case passed:
		return checkOK
	case optional:
		return checkWarn
	default:
		return checkFail
	}
}
