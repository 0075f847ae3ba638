package snapshot

import "schedview/internal/engine"

// SchedulerStatusOf derives the display status of the engine from its raw
// liveness flags. Precedence is strict: shutdown beats emptiness beats
// started-state (decreasing severity), so a shut-down engine with zero
// groups is Shutdown, not Empty.
func SchedulerStatusOf(shutdown, noJobGroups, started bool) SchedulerStatus {
	switch {
	case shutdown:
		return StatusShutdown
	case noJobGroups:
		return StatusEmpty
	case started:
		return StatusStarted
	default:
		return StatusReady
	}
}

// ActivityStatusOf collapses a raw trigger state to the coarse display
// status. Only Paused and Complete survive the projection; everything else
// (normal, blocked, error, none, and any state added in the future) renders
// as Active.
func ActivityStatusOf(state engine.TriggerState) ActivityStatus {
	switch state {
	case engine.TriggerStatePaused:
		return ActivityPaused
	case engine.TriggerStateComplete:
		return ActivityComplete
	default:
		return ActivityActive
	}
}
