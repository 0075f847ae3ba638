package cronengine

import (
	"testing"
	"time"

	"schedview/internal/engine"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "*/5 * * * *", kind: SpecCron, source: "cron"},
		{name: "cron with seconds", raw: "0 */5 * * * *", kind: SpecCron, source: "cron"},
		{name: "descriptor", raw: "@hourly", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:0 0 * * *", kind: SpecCron, source: "cron"},
		{name: "duration", raw: "10m", kind: SpecInterval, source: "duration", duration: 10 * time.Minute},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "prefixed every", raw: "every:90s", kind: SpecInterval, source: "duration", duration: 90 * time.Second},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
		{name: "hhmm sub-hour", raw: "00:50", kind: SpecInterval, source: "hhmm", duration: 50 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "00:99", "cron:", "interval:", "-5m"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParsedSpecCronSpec(t *testing.T) {
	t.Parallel()
	ps, err := ParseSchedule("55m")
	if err != nil {
		t.Fatalf("ParseSchedule error: %v", err)
	}
	if got := ps.CronSpec(); got != "@every 55m0s" {
		t.Fatalf("CronSpec = %q", got)
	}
	if _, ok := ps.Schedule().(engine.IntervalSchedule); !ok {
		t.Fatalf("Schedule = %T, want IntervalSchedule", ps.Schedule())
	}

	ps, err = ParseSchedule("*/5 * * * *")
	if err != nil {
		t.Fatalf("ParseSchedule error: %v", err)
	}
	if got := ps.CronSpec(); got != "*/5 * * * *" {
		t.Fatalf("CronSpec = %q", got)
	}
	if _, ok := ps.Schedule().(engine.CronSchedule); !ok {
		t.Fatalf("Schedule = %T, want CronSchedule", ps.Schedule())
	}
}
