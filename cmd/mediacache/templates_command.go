package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type templateView struct {
	Key        string         `json:"key"`
	Type       string         `json:"type"`
	Revision   int            `json:"revision"`
	Storage    string         `json:"storage"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect configured templates",
	}
	templatesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates from the templates file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(func(rt *runtime) error {
				templates := rt.templates.All()
				if ctx.JSONMode() {
					views := make([]templateView, 0, len(templates))
					for _, tpl := range templates {
						views = append(views, templateView{
							Key:        tpl.Key,
							Type:       tpl.Type,
							Revision:   tpl.Revision,
							Storage:    tpl.Storage,
							Parameters: tpl.Parameters,
						})
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(templates) == 0 {
					fmt.Fprintf(out, "No templates defined in %s\n", rt.cfg.Paths.TemplatesFile)
					return nil
				}
				rows := make([][]string, 0, len(templates))
				for _, tpl := range templates {
					rows = append(rows, []string{
						tpl.Key,
						tpl.Type,
						strconv.Itoa(tpl.Revision),
						tpl.Storage,
						formatParameters(tpl.Parameters),
					})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Key", "Type", "Revision", "Storage", "Parameters"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	})
	return templatesCmd
}

func formatParameters(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return strings.Join(parts, " ")
}
