// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noldarim/pipewatch/internal/dashboard"
	"github.com/noldarim/pipewatch/internal/logger"
	"github.com/noldarim/pipewatch/internal/refresh"
	"github.com/noldarim/pipewatch/internal/tui/detail"
	"github.com/noldarim/pipewatch/internal/tui/layout"
	"github.com/noldarim/pipewatch/internal/tui/messages"
	"github.com/noldarim/pipewatch/internal/tui/summary"
)

// Pane is the component receiving navigation keys.
type Pane int

const (
	SummaryPane Pane = iota
	DetailPane
)

// sideBySideWidth is the terminal width from which the detail pane is drawn
// next to the table instead of below it.
const sideBySideWidth = 100

// KeyMap defines the global bindings.
type KeyMap struct {
	Quit    key.Binding
	Refresh key.Binding
	Switch  key.Binding
}

// DefaultKeyMap is the default global key map.
var DefaultKeyMap = KeyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "quit")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Switch:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
}

// Model is the dashboard: the summary table, the detail pane and the status
// line, driven by refresh ticks and cycle results.
type Model struct {
	ctx     context.Context
	engine  *refresh.Engine
	summary summary.Model
	detail  detail.Model
	focus   Pane
	keys    KeyMap

	width, height int
	notice        string
}

// NewModel creates the dashboard model. ctx bounds every fetch it starts.
func NewModel(ctx context.Context, engine *refresh.Engine) Model {
	return Model{
		ctx:     ctx,
		engine:  engine,
		summary: summary.New(),
		detail:  detail.New(),
		focus:   SummaryPane,
		keys:    DefaultKeyMap,
		width:   layout.MinimumWidth,
		height:  layout.MinimumHeight,
	}
}

// Init starts the first cycle immediately and schedules the first tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startCycle(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.engine.Interval(), func(t time.Time) tea.Msg {
		return messages.TickMsg(t)
	})
}

// startCycle returns a command running one cycle, or nil when a cycle is
// already running.
func (m Model) startCycle() tea.Cmd {
	if !m.engine.TryBegin() {
		return nil
	}
	ctx, engine := m.ctx, m.engine
	return func() tea.Msg {
		c, err := engine.Fetch(ctx)
		return messages.CycleDoneMsg{Cycle: c, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case messages.TickMsg:
		return m, tea.Batch(m.tick(), m.startCycle())

	case messages.CycleDoneMsg:
		m.engine.Complete(msg.Cycle, msg.Err)
		if msg.Err == nil {
			m.summary.SetRows(m.engine.State().Rows())
		}
		m.notice = ""
		return m, nil

	case messages.CyclePublishedMsg:
		// Rows always come from the state's latest cycle, the same one Lookup reads.
		m.summary.SetRows(m.engine.State().Rows())
		return m, nil

	case messages.SelectPipelineMsg:
		m.selectPipeline(msg.Display)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			cmd := m.startCycle()
			if cmd == nil {
				m.notice = "refresh already in progress"
			}
			return m, cmd
		case key.Matches(msg, m.keys.Switch):
			m.switchFocus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.focus == SummaryPane {
		m.summary, cmd = m.summary.Update(msg)
	} else {
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

// selectPipeline resolves the selected row against the latest published
// cycle and rebuilds the detail pane from it.
func (m *Model) selectPipeline(display string) {
	m.detail.Clear()
	snap, ok := m.engine.State().Lookup(display)
	if !ok {
		l := logger.GetTUILogger()
		l.Warn().Str("display", display).Msg("Selected pipeline not in latest cycle")
		m.detail.ShowNotFound(display)
		return
	}
	m.detail.Show(snap)
}

func (m *Model) switchFocus() {
	if m.focus == SummaryPane {
		m.focus = DetailPane
		m.summary.Blur()
	} else {
		m.focus = SummaryPane
		m.summary.Focus()
	}
}

// Focus returns the pane receiving navigation keys.
func (m Model) Focus() Pane {
	return m.focus
}

// Detail returns the detail pane.
func (m Model) Detail() detail.Model {
	return m.detail
}

// Summary returns the summary table.
func (m Model) Summary() summary.Model {
	return m.summary
}

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height

	dims := layout.GetContentArea(m.layoutInfo(), width, height)
	if !dims.Valid {
		return
	}
	if width >= sideBySideWidth {
		m.summary.SetHeight(dims.Height)
		m.detail.SetSize(dims.Width-summaryWidth(), dims.Height)
		return
	}
	top := dims.Height / 2
	m.summary.SetHeight(top)
	m.detail.SetSize(dims.Width, dims.Height-top-1)
}

func summaryWidth() int {
	// name column, status column, cell padding and a gutter
	return dashboard.DisplayWidth + 2 + summary.StatusWidth + 2 + 2
}

func (m Model) statusLine() string {
	st := m.engine.Status()
	var parts []string

	if c := m.engine.State().Latest(); c != nil {
		parts = append(parts,
			"updated "+st.LastSuccess.Format("15:04:05"),
			fmt.Sprintf("%d watched", c.Watched))
		if n := len(c.Failures); n > 0 {
			parts = append(parts, fmt.Sprintf("%d dropped", n))
		}
	} else {
		parts = append(parts, "waiting for first cycle")
	}
	if st.Fetching {
		parts = append(parts, "refreshing…")
	}
	if st.LastError != nil {
		parts = append(parts, layout.ErrorStyle.Render("error: "+st.LastError.Error()))
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	return strings.Join(parts, " · ")
}

func (m Model) layoutInfo() layout.LayoutInfo {
	help := m.summary.HelpItems()
	help = append(help,
		layout.HelpItem{Key: m.keys.Switch.Help().Key, Description: m.keys.Switch.Help().Desc},
		layout.HelpItem{Key: m.keys.Refresh.Help().Key, Description: m.keys.Refresh.Help().Desc},
		layout.HelpItem{Key: m.keys.Quit.Help().Key, Description: m.keys.Quit.Help().Desc},
	)
	return layout.LayoutInfo{
		Title:     fmt.Sprintf("pipewatch · every %s", m.engine.Interval()),
		Status:    m.statusLine(),
		HelpItems: help,
	}
}

func (m Model) View() string {
	var content string
	if m.width >= sideBySideWidth {
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(summaryWidth()).Render(m.summary.View()),
			m.detail.View())
	} else {
		content = lipgloss.JoinVertical(lipgloss.Left,
			m.summary.View(),
			layout.GetDivider(m.width),
			m.detail.View())
	}
	return layout.RenderLayout(content, m.layoutInfo(), m.width, m.height)
}
