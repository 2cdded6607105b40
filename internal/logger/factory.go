// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package logger

import (
	"github.com/rs/zerolog"
)

// Static logger getters that map directly to the log.levels keys in the config.

// GetFetcherLogger returns a logger for pipeline fetching
func GetFetcherLogger() zerolog.Logger {
	return GetLogger("fetcher")
}

// GetRefreshLogger returns a logger for the refresh engine
func GetRefreshLogger() zerolog.Logger {
	return GetLogger("refresh")
}

// GetTUILogger returns a logger for TUI components
func GetTUILogger() zerolog.Logger {
	return GetLogger("tui")
}

// GetAPILogger returns a logger for the HTTP API
func GetAPILogger() zerolog.Logger {
	return GetLogger("api")
}

// GetAWSLogger returns a logger for AWS client calls
func GetAWSLogger() zerolog.Logger {
	return GetLogger("aws")
}
