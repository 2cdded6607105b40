// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package detail renders the per-action breakdown of one pipeline.
package detail

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/noldarim/pipewatch/internal/pipeline"
	"github.com/noldarim/pipewatch/internal/tui/layout"
)

// Block is the rendered summary of one action.
type Block struct {
	Stage   string
	Action  string
	Status  string
	Changed string
	Link    string
}

// BuildBlocks returns one block per action in stage and action order.
func BuildBlocks(snap pipeline.Snapshot, now time.Time) []Block {
	blocks := make([]Block, 0, snap.ActionCount())
	for _, st := range snap.Stages {
		for _, a := range st.Actions {
			b := Block{
				Stage:  st.Name,
				Action: a.Name,
				Status: pipeline.Label(a.Status),
				Link:   a.Link(),
			}
			if a.LastStatusChange != nil {
				b.Changed = humanize.RelTime(*a.LastStatusChange, now, "ago", "from now")
			}
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// Model shows the blocks of the selected pipeline in a scrollable viewport.
type Model struct {
	viewport viewport.Model
	pipeline string
	blocks   []Block
	notFound string
	now      func() time.Time
}

// New creates an empty detail view.
func New() Model {
	return Model{viewport: viewport.New(40, 10), now: time.Now}
}

// Clear drops the current content.
func (m *Model) Clear() {
	m.pipeline = ""
	m.blocks = nil
	m.notFound = ""
	m.refresh()
}

// Show replaces the content with the blocks of snap.
func (m *Model) Show(snap pipeline.Snapshot) {
	m.Clear()
	m.pipeline = snap.Name
	m.blocks = BuildBlocks(snap, m.now())
	m.refresh()
}

// ShowNotFound reports that the selected row is no longer in the state.
func (m *Model) ShowNotFound(display string) {
	m.Clear()
	m.notFound = display
	m.refresh()
}

// Pipeline returns the name of the pipeline shown, if any.
func (m Model) Pipeline() string {
	return m.pipeline
}

// Blocks returns the blocks shown.
func (m Model) Blocks() []Block {
	return m.blocks
}

// SetSize resizes the viewport.
func (m *Model) SetSize(width, height int) {
	m.viewport.Width = max(width, 1)
	m.viewport.Height = max(height, 1)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoTop()
}

func (m Model) render() string {
	if m.notFound != "" {
		return layout.WarningStyle.Render("No data for " + m.notFound + " in the latest cycle.")
	}
	if m.pipeline == "" {
		return layout.LabelStyle.Render("Select a pipeline to see its actions.")
	}

	var b strings.Builder
	b.WriteString(layout.TitleStyle.Render(m.pipeline))
	b.WriteString("\n")
	if len(m.blocks) == 0 {
		b.WriteString(layout.LabelStyle.Render("No actions."))
		return b.String()
	}
	for _, blk := range m.blocks {
		b.WriteString("\n")
		b.WriteString(renderBlock(blk))
	}
	return b.String()
}

func renderBlock(blk Block) string {
	lines := []string{
		layout.LabelStyle.Render("Stage:  ") + blk.Stage,
		layout.LabelStyle.Render("Action: ") + blk.Action,
		layout.LabelStyle.Render("Status: ") + layout.StatusStyle(blk.Status).Render(blk.Status),
	}
	if blk.Changed != "" {
		lines = append(lines, layout.LabelStyle.Render("Change: ")+blk.Changed)
	}
	if blk.Link != "" {
		lines = append(lines, layout.LabelStyle.Render("Link:   ")+layout.LinkStyle.Render(blk.Link))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Update scrolls the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the viewport.
func (m Model) View() string {
	return m.viewport.View()
}
