// Package deps reports whether the external tools the workers shell out to
// are installed.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"mediacache/internal/config"
	"mediacache/internal/execx"
)

// Requirement defines an external tool mediacache relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are run to capture the tool version.
	VersionArgs []string
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// Requirements lists the tools used by the configured workers.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for video and audio renditions",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required to inspect rendered media",
			VersionArgs: []string{"-hide_banner", "-version"},
		},
		{
			Name:        "LibreOffice",
			Command:     cfg.SofficeBinary(),
			Description: "Converts office documents to PDF",
			Optional:    true,
		},
		{
			Name:        "pdftoppm",
			Command:     cfg.PdftoppmBinary(),
			Description: "Renders document previews for image templates",
			Optional:    true,
			VersionArgs: []string{"-v"},
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// A nil runner skips version probing.
func CheckBinaries(ctx context.Context, runner execx.Runner, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		if runner != nil && len(req.VersionArgs) > 0 {
			output, err := runner.Run(ctx, resolved, req.VersionArgs...)
			if err != nil {
				status.Detail = fmt.Sprintf("version probe failed: %v", err)
			} else {
				status.Version = firstLine(string(output))
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required tools that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			out = append(out, status)
		}
	}
	return out
}

func firstLine(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(line)
}
