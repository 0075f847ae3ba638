package snapshot

import (
	"reflect"

	"schedview/internal/engine"
)

// TypeTagger lets a custom engine.Schedule implementation name its own
// display tag. Implementations outside this repo can plug into the
// classifier without touching it.
type TypeTagger interface {
	TypeTag() string
}

// Display tags for the recognized schedule variants.
const (
	TriggerTypeCron              = "cron"
	TriggerTypeInterval          = "interval"
	TriggerTypeCalendarInterval  = "calendar-interval"
	TriggerTypeDailyTimeInterval = "daily-time-interval"
)

// TriggerTypeOf maps a trigger's schedule variant to a display tag.
//
// The classification is total: unrecognized variants degrade to their Go
// type name rather than failing, so a new engine trigger kind shows up with
// a less specific label instead of breaking the snapshot.
func TriggerTypeOf(s engine.Schedule) string {
	if s == nil {
		return "none"
	}
	if t, ok := s.(TypeTagger); ok {
		if tag := t.TypeTag(); tag != "" {
			return tag
		}
	}
	switch s.(type) {
	case engine.CronSchedule, *engine.CronSchedule:
		return TriggerTypeCron
	case engine.IntervalSchedule, *engine.IntervalSchedule:
		return TriggerTypeInterval
	case engine.CalendarIntervalSchedule, *engine.CalendarIntervalSchedule:
		return TriggerTypeCalendarInterval
	case engine.DailyTimeIntervalSchedule, *engine.DailyTimeIntervalSchedule:
		return TriggerTypeDailyTimeInterval
	}
	return rawTypeName(s)
}

func rawTypeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	// Anonymous types have no name; the full string form is still non-empty.
	return t.String()
}
