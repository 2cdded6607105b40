// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report prints one poll cycle for non-interactive use.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/internal/tui/layout"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// Document is the machine readable form of a cycle.
type Document struct {
	Cycle      string                  `json:"cycle" yaml:"cycle"`
	FinishedAt time.Time               `json:"finished_at" yaml:"finished_at"`
	Watched    int                     `json:"watched" yaml:"watched"`
	Pipelines  []pipeline.Row          `json:"pipelines" yaml:"pipelines"`
	Failures   []pipeline.FetchFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// NewDocument builds the document for c.
func NewDocument(c *pipeline.Cycle) Document {
	rows := c.Rows()
	if rows == nil {
		rows = []pipeline.Row{}
	}
	return Document{
		Cycle:      c.ID,
		FinishedAt: c.FinishedAt,
		Watched:    c.Watched,
		Pipelines:  rows,
		Failures:   c.Failures,
	}
}

// Write prints c to w in the given format.
func Write(w io.Writer, c *pipeline.Cycle, format Format, now time.Time) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewDocument(c))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(c)); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		_, err := fmt.Fprintln(w, renderTable(c, now))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderTable(c *pipeline.Cycle, now time.Time) string {
	rows := c.Rows()
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{r.Name, r.Status}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(layout.BorderColor)).
		StyleFunc(func(row, col int) lipgloss.Style {
			cell := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return layout.HeaderCellStyle.Padding(0, 1)
			case col == 1:
				return cell.Foreground(layout.StatusColor(rows[row].Status))
			default:
				return cell
			}
		}).
		Headers("PIPELINE", "STATUS").
		Rows(cells...)

	footer := fmt.Sprintf("%d watched, fetched %s", c.Watched, humanize.RelTime(c.FinishedAt, now, "ago", "from now"))
	out := t.String() + "\n" + layout.LabelStyle.Render(footer)
	for _, f := range c.Failures {
		out += "\n" + layout.WarningStyle.Render("dropped "+f.Pipeline+": "+f.Message)
	}
	return out
}
