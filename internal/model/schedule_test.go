package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	hour, minute, err := ParseTimeOfDay("09:45")
	require.NoError(t, err)
	require.Equal(t, 9, hour)
	require.Equal(t, 45, minute)

	hour, minute, err = ParseTimeOfDay("23:59")
	require.NoError(t, err)
	require.Equal(t, 23, hour)
	require.Equal(t, 59, minute)

	for _, bad := range []string{"24:00", "9:45", "09:60", "18.00", "", "18:00:00"} {
		_, _, err := ParseTimeOfDay(bad)
		require.Error(t, err, "ожидалась ошибка для %q", bad)
	}
}

func TestWeeklySlotValidate(t *testing.T) {
	require.NoError(t, WeeklySlot{Time: "18:00", DurationMinutes: 90}.Validate())
	require.NoError(t, WeeklySlot{Time: "06:00", DurationMinutes: MinSlotDurationMinutes}.Validate())
	require.NoError(t, WeeklySlot{Time: "06:00", DurationMinutes: MaxSlotDurationMinutes}.Validate())

	require.Error(t, WeeklySlot{Time: "18:00", DurationMinutes: 29}.Validate())
	require.Error(t, WeeklySlot{Time: "18:00", DurationMinutes: 301}.Validate())
	require.Error(t, WeeklySlot{Time: "25:00", DurationMinutes: 90}.Validate())
}

func TestScheduleTemplateValidate(t *testing.T) {
	tmpl := &ScheduleTemplate{
		WeeklyPattern: WeeklyPattern{
			Monday: []WeeklySlot{{Time: "18:00", DurationMinutes: 90}},
		},
		ValidFrom:  NewDate(2025, time.January, 1),
		ValidUntil: NewDate(2025, time.December, 31),
	}
	require.NoError(t, tmpl.Validate())

	noPeriod := &ScheduleTemplate{WeeklyPattern: tmpl.WeeklyPattern}
	require.Error(t, noPeriod.Validate())

	inverted := &ScheduleTemplate{
		WeeklyPattern: tmpl.WeeklyPattern,
		ValidFrom:     NewDate(2025, time.December, 31),
		ValidUntil:    NewDate(2025, time.January, 1),
	}
	require.Error(t, inverted.Validate())

	badTz := *tmpl
	badTz.Timezone = "Mars/Olympus"
	require.Error(t, badTz.Validate())

	badSlot := *tmpl
	badSlot.WeeklyPattern = WeeklyPattern{Friday: []WeeklySlot{{Time: "18:00", DurationMinutes: 5}}}
	require.Error(t, badSlot.Validate())
}

func TestScheduleTemplateJSONRoundTrip(t *testing.T) {
	tmpl := ScheduleTemplate{
		WeeklyPattern: WeeklyPattern{
			Monday:    []WeeklySlot{{Time: "18:00", DurationMinutes: 90}},
			Wednesday: []WeeklySlot{{Time: "19:30", DurationMinutes: 60}},
		},
		ValidFrom:  NewDate(2025, time.January, 1),
		ValidUntil: NewDate(2025, time.June, 30),
		Timezone:   "Asia/Almaty",
	}

	raw, err := json.Marshal(tmpl)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"valid_from":"2025-01-01"`)

	var decoded ScheduleTemplate
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, tmpl.WeeklyPattern, decoded.WeeklyPattern)
	require.Equal(t, tmpl.ValidFrom.String(), decoded.ValidFrom.String())
	require.Equal(t, tmpl.Timezone, decoded.Timezone)
}

func TestWeeklyPatternSlots(t *testing.T) {
	p := WeeklyPattern{
		Monday: []WeeklySlot{{Time: "18:00", DurationMinutes: 90}},
		Sunday: []WeeklySlot{{Time: "10:00", DurationMinutes: 60}, {Time: "12:00", DurationMinutes: 60}},
	}
	require.Len(t, p.SlotsFor(time.Monday), 1)
	require.Len(t, p.SlotsFor(time.Sunday), 2)
	require.Empty(t, p.SlotsFor(time.Tuesday))
	require.Equal(t, 3, p.TotalSlots())
}
