// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package layout

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	// MinimumWidth fits the name and status columns of the summary table.
	MinimumWidth = 50
	// MinimumHeight is the minimum terminal height required (header + footer + some space)
	MinimumHeight = 12
)

// LayoutInfo contains all the information needed to render a layout
type LayoutInfo struct {
	Title     string
	Status    string
	HelpItems []HelpItem
}

// Dimensions represents the available space for content
type Dimensions struct {
	Width  int
	Height int
	Valid  bool
	Error  string
}

// ValidateSpace checks if the terminal has enough space to render properly
func ValidateSpace(width, height int) Dimensions {
	dims := Dimensions{Width: width, Height: height, Valid: true}
	switch {
	case width < MinimumWidth:
		dims.Valid = false
		dims.Error = fmt.Sprintf("Terminal too narrow (%d cols). Minimum: %d cols", width, MinimumWidth)
	case height < MinimumHeight:
		dims.Valid = false
		dims.Error = fmt.Sprintf("Terminal too short (%d lines). Minimum: %d lines", height, MinimumHeight)
	}
	return dims
}

// RenderLayout stacks header, content and footer. The content is clipped to
// the height left between header and footer.
func RenderLayout(content string, info LayoutInfo, width, height int) string {
	dims := ValidateSpace(width, height)
	if !dims.Valid {
		return renderSpaceError(dims.Error, width, height)
	}

	header := RenderHeader(info.Title, info.Status, width)
	footer := RenderFooter(info.HelpItems, width)
	contentHeight := max(height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	// MaxHeight clips, Height pads.
	body := lipgloss.NewStyle().
		Width(width).
		MaxHeight(contentHeight).
		Height(contentHeight).
		Align(lipgloss.Left, lipgloss.Top).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// GetContentArea returns the space left for content once header and footer
// are drawn.
func GetContentArea(info LayoutInfo, totalWidth, totalHeight int) Dimensions {
	dims := ValidateSpace(totalWidth, totalHeight)
	if !dims.Valid {
		return dims
	}

	used := lipgloss.Height(RenderHeader(info.Title, info.Status, totalWidth))
	if len(info.HelpItems) > 0 {
		used += lipgloss.Height(RenderFooter(info.HelpItems, totalWidth))
	}
	dims.Height = max(totalHeight-used, 1)
	return dims
}

func renderSpaceError(message string, width, height int) string {
	lines := []string{
		"⚠ Terminal Too Small ⚠",
		"",
		message,
		"",
		fmt.Sprintf("Current: %dx%d", width, height),
		fmt.Sprintf("Minimum: %dx%d", MinimumWidth, MinimumHeight),
	}
	return ErrorStyle.
		Align(lipgloss.Center, lipgloss.Center).
		Width(width).
		Height(height).
		Render(strings.Join(lines, "\n"))
}
