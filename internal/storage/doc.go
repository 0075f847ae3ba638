package storage

// Package storage archives scheduler snapshot summaries so operators can see
// how the scheduler looked across restarts.
//
// It currently supports:
//   - Append-only snapshot history (one summary row per refresh)
//   - Bounded retention (keep the most recent N records)
