// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/noldarim/pipewatch/internal/pipeline"
)

var (
	// Color palette
	PrimaryColor   = lipgloss.Color("#7C3AED")
	SecondaryColor = lipgloss.Color("#A78BFA")
	AccentColor    = lipgloss.Color("#10B981")
	TextColor      = lipgloss.Color("#F3F4F6")
	MutedColor     = lipgloss.Color("#9CA3AF")
	BorderColor    = lipgloss.Color("#4B5563")
	ErrorColor     = lipgloss.Color("#EF4444")
	WarningColor   = lipgloss.Color("#F59E0B")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	StatsStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(BorderColor).
			PaddingLeft(1).
			PaddingRight(1)

	HelpTextStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	HeaderCellStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(PrimaryColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	LinkStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Underline(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)
)

// StatusColor maps a pipeline status to its display colour.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case pipeline.StatusSucceeded:
		return AccentColor
	case pipeline.StatusFailed:
		return ErrorColor
	case pipeline.StatusInProgress:
		return WarningColor
	default:
		return MutedColor
	}
}

// StatusStyle returns the style for a status label.
func StatusStyle(status string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(StatusColor(status)).Bold(status == pipeline.StatusFailed)
}

// GetDivider returns a horizontal divider of the specified width
func GetDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(BorderColor).
		Render(strings.Repeat("─", width))
}
