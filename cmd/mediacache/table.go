package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"mediacache/internal/mediacache"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

// shouldColorize reports whether writer is an interactive terminal. NO_COLOR
// disables colour regardless.
func shouldColorize(writer io.Writer) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColors(status mediacache.CacheStatus) text.Colors {
	switch status {
	case mediacache.StatusOK:
		return text.Colors{text.FgGreen}
	case mediacache.StatusError:
		return text.Colors{text.FgRed}
	case mediacache.StatusMissing:
		return text.Colors{text.FgYellow}
	case mediacache.StatusPending:
		return text.Colors{text.FgBlue}
	default:
		return nil
	}
}

func renderStatus(status mediacache.CacheStatus, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	if colors := statusColors(status); colors != nil {
		return colors.Sprint(label)
	}
	return label
}

type checkKind int

const (
	checkOK checkKind = iota
	checkWarn
	checkFail
)

func renderCheck(label string, kind checkKind, detail string, colorize bool) string {
	var tag string
	var colors text.Colors
	switch kind {
	case checkOK:
		tag, colors = "OK", text.Colors{text.FgGreen}
	case checkWarn:
		tag, colors = "WARN", text.Colors{text.FgYellow}
	default:
		tag, colors = "FAIL", text.Colors{text.FgRed}
	}
	line := "  " + padRight(label+":", 22) + " [" + tag + "]"
	if detail != "" {
		line += " " + detail
	}
	if colorize {
		return colors.Sprint(line)
	}
	return line
}

func padRight(value string, width int) string {
	for len(value) < width {
		value += " "
	}
	return value
}
