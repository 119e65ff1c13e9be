// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package services adapts the server's long-running components to the
// suture.Service interface. Each wrapper translates a blocking or
// Start/Stop lifecycle into suture's context-aware Serve pattern so the
// supervision tree can restart the component on failure.
package services
