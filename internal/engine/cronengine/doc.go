// Package cronengine is an embedded implementation of the engine.Engine
// query contract backed by robfig/cron.
//
// # Overview
//
// It lets schedview run self-contained ("local engine" mode): jobs are
// registered under a (name, group) key with one or more triggers, each
// trigger driven by a cron entry. Job definitions name a handler registered
// via RegisterHandler; the handler is invoked on every trigger fire.
//
// # Schedule formats
//
// Trigger schedules accept multiple syntaxes:
//
//   - Cron expressions: 5-field (min hour dom mon dow) or 6-field with
//     optional seconds. Example: "55 * * * *" or "0 */5 * * * *".
//   - Cron descriptors: "@hourly", "@daily", "@every 55m".
//   - Interval durations: Go duration strings like "55m" or "2h30m".
//   - Interval HH:MM: a compact duration format where "00:50" means every 50
//     minutes and "02:30" means every 2 hours 30 minutes.
//
// To force interpretation, callers may prefix the string with "cron:",
// "interval:", or "every:".
//
// # Lifecycle
//
// A new engine is Ready (initialized, not firing). Start() begins firing,
// Shutdown() is terminal. Query methods keep answering after shutdown so a
// snapshot layer can still report the shutdown state.
package cronengine
