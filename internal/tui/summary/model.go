// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package summary renders one selectable row per watched pipeline with its
// aggregated status.
package summary

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/internal/tui/layout"
	"github.com/noldarim/pipewatch/internal/tui/messages"
)

// StatusWidth is the padded width of the status column.
const StatusWidth = 12

// KeyMap defines the summary table bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Select key.Binding
}

// DefaultKeyMap is the default summary key map.
var DefaultKeyMap = KeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Top:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	Bottom: key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
}

// Model is the summary table.
type Model struct {
	rows    []pipeline.Row
	cursor  int
	offset  int
	height  int
	focused bool
	keys    KeyMap
}

// New creates an empty, focused summary table.
func New() Model {
	return Model{height: 10, focused: true, keys: DefaultKeyMap}
}

// SetRows replaces the table content. The cursor stays on the same pipeline
// when it is still present. A row with an empty name is a programming error
// and panics.
func (m *Model) SetRows(rows []pipeline.Row) {
	for i, r := range rows {
		if r.Name == "" {
			panic(fmt.Sprintf("summary: row %d has an empty pipeline name", i))
		}
	}

	var current string
	if r, ok := m.Selected(); ok {
		current = r.Name
	}

	m.rows = rows
	m.cursor = 0
	for i, r := range rows {
		if r.Name == current {
			m.cursor = i
			break
		}
	}
	m.clampOffset()
}

// Rows returns the rows currently shown.
func (m Model) Rows() []pipeline.Row {
	return m.rows
}

// Cursor returns the index of the highlighted row.
func (m Model) Cursor() int {
	return m.cursor
}

// Selected returns the highlighted row.
func (m Model) Selected() (pipeline.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return pipeline.Row{}, false
	}
	return m.rows[m.cursor], true
}

// SetHeight sets the number of lines available, header included.
func (m *Model) SetHeight(h int) {
	m.height = max(h, 3)
	m.clampOffset()
}

// Focus makes the table react to navigation keys.
func (m *Model) Focus() { m.focused = true }

// Blur stops the table from reacting to navigation keys.
func (m *Model) Blur() { m.focused = false }

// Focused reports whether the table has focus.
func (m Model) Focused() bool { return m.focused }

// HelpItems lists the bindings for the footer.
func (m Model) HelpItems() []layout.HelpItem {
	return []layout.HelpItem{
		{Key: m.keys.Up.Help().Key + " " + m.keys.Down.Help().Key, Description: "navigate"},
		{Key: m.keys.Select.Help().Key, Description: m.keys.Select.Help().Desc},
	}
}

// visibleRows is the number of data rows that fit below the header.
func (m Model) visibleRows() int {
	return max(m.height-2, 1)
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	m.offset = max(min(m.offset, len(m.rows)-visible), 0)
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update moves the cursor and emits SelectPipelineMsg on select.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused || len(m.rows) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(keyMsg, m.keys.Down):
		m.cursor = min(m.cursor+1, len(m.rows)-1)
	case key.Matches(keyMsg, m.keys.Top):
		m.cursor = 0
	case key.Matches(keyMsg, m.keys.Bottom):
		m.cursor = len(m.rows) - 1
	case key.Matches(keyMsg, m.keys.Select):
		display := dashboard.DisplayName(m.rows[m.cursor].Name)
		return m, func() tea.Msg {
			return messages.SelectPipelineMsg{Display: display}
		}
	}
	m.clampOffset()
	return m, nil
}

// PadStatus pads a status label to StatusWidth.
func PadStatus(status string) string {
	return fmt.Sprintf("%-*s", StatusWidth, status)
}

// View renders the visible window of rows.
func (m Model) View() string {
	if len(m.rows) == 0 {
		return layout.LabelStyle.Render("No watched pipelines yet.")
	}

	end := min(m.offset+m.visibleRows(), len(m.rows))
	window := m.rows[m.offset:end]

	cells := make([][]string, len(window))
	for i, r := range window {
		cells[i] = []string{dashboard.DisplayName(r.Name), PadStatus(r.Status)}
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers("PIPELINE", "STATUS").
		Rows(cells...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().PaddingRight(2)
			if row == table.HeaderRow {
				return layout.HeaderCellStyle.PaddingRight(2)
			}
			if col == 0 {
				base = base.Width(dashboard.DisplayWidth + 2)
			}
			if m.offset+row == m.cursor {
				base = base.Inherit(layout.SelectedStyle)
			}
			if col == 1 {
				base = base.Foreground(layout.StatusColor(window[row].Status))
			}
			return base
		})
	return t.String()
}
