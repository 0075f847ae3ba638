package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"schedview/internal/engine"
)

func TestSchedulerStatusPrecedence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name                           string
		shutdown, noJobGroups, started bool
		want                           SchedulerStatus
	}{
		{"shutdown wins over everything", true, true, true, StatusShutdown},
		{"shutdown with no groups", true, true, false, StatusShutdown},
		{"empty wins over started", false, true, true, StatusEmpty},
		{"empty not started", false, true, false, StatusEmpty},
		{"started with groups", false, false, true, StatusStarted},
		{"initialized but not started", false, false, false, StatusReady},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SchedulerStatusOf(tt.shutdown, tt.noJobGroups, tt.started))
		})
	}
}

func TestActivityStatusProjection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		state engine.TriggerState
		want  ActivityStatus
	}{
		{engine.TriggerStatePaused, ActivityPaused},
		{engine.TriggerStateComplete, ActivityComplete},
		{engine.TriggerStateNormal, ActivityActive},
		{engine.TriggerStateNone, ActivityActive},
		{engine.TriggerStateError, ActivityActive},
		{engine.TriggerStateBlocked, ActivityActive},
		// States added in the future must still render as active.
		{engine.TriggerState(99), ActivityActive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ActivityStatusOf(tt.state), "state %v", tt.state)
	}
}
