// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

// DisplayWidth is the number of runes of a pipeline name shown in the
// summary table.
const DisplayWidth = 30

// Ellipsis marks a truncated display name.
const Ellipsis = "…"

// DisplayName truncates name to DisplayWidth runes. Truncated names end with
// Ellipsis, which counts towards the width.
func DisplayName(name string) string {
	runes := []rune(name)
	if len(runes) <= DisplayWidth {
		return name
	}
	return string(runes[:DisplayWidth-1]) + Ellipsis
}
