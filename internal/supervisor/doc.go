// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

// Package supervisor builds the suture supervision tree that keeps the
// long-running parts of the server alive.
//
// The tree has two child supervisors under the root:
//
//   - data: the history consumer draining query.executed events into the
//     audit store
//   - api: the HTTP server
//
// The split isolates failures: a crashing consumer restarts under the data
// supervisor without ever taking the HTTP listener down, and vice versa.
// Supervisor events are logged through sutureslog into the zerolog-backed
// slog handler from internal/logging.
package supervisor
