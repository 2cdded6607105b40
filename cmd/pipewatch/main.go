// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"

	"github.com/noldarim/pipewatch/internal/cli"
)

func main() {
	// cobra already printed the error.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
