package model

import (
	"regexp"
	"time"

	"github.com/sportclub/club_scheduler/internal/apperrors"
)

const (
	// MinSlotDurationMinutes минимальная длительность занятия
	MinSlotDurationMinutes = 30
	// MaxSlotDurationMinutes максимальная длительность занятия
	MaxSlotDurationMinutes = 300

	// DefaultTimezone часовой пояс по умолчанию для шаблонов
	DefaultTimezone = "Asia/Almaty"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ParseTimeOfDay разбирает время формата HH:MM
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	if !timeOfDayRe.MatchString(s) {
		return 0, 0, apperrors.Validationf("invalid time format %q, expected HH:MM", s)
	}
	hour = int(s[0]-'0')*10 + int(s[1]-'0')
	minute = int(s[3]-'0')*10 + int(s[4]-'0')
	return hour, minute, nil
}

// WeeklySlot временной слот в недельном расписании
type WeeklySlot struct {
	Time            string `json:"time"`     // HH:MM
	DurationMinutes int    `json:"duration"` // длительность в минутах
}

// Validate проверяет корректность слота
func (s WeeklySlot) Validate() error {
	if _, _, err := ParseTimeOfDay(s.Time); err != nil {
		return err
	}
	if s.DurationMinutes < MinSlotDurationMinutes || s.DurationMinutes > MaxSlotDurationMinutes {
		return apperrors.Validationf(
			"slot duration must be between %d and %d minutes, got %d",
			MinSlotDurationMinutes, MaxSlotDurationMinutes, s.DurationMinutes,
		)
	}
	return nil
}

// WeeklyPattern шаблон недельного расписания: слоты по дням недели
type WeeklyPattern struct {
	Monday    []WeeklySlot `json:"monday,omitempty"`
	Tuesday   []WeeklySlot `json:"tuesday,omitempty"`
	Wednesday []WeeklySlot `json:"wednesday,omitempty"`
	Thursday  []WeeklySlot `json:"thursday,omitempty"`
	Friday    []WeeklySlot `json:"friday,omitempty"`
	Saturday  []WeeklySlot `json:"saturday,omitempty"`
	Sunday    []WeeklySlot `json:"sunday,omitempty"`
}

// SlotsFor возвращает слоты для дня недели
func (p *WeeklyPattern) SlotsFor(weekday time.Weekday) []WeeklySlot {
	switch weekday {
	case time.Monday:
		return p.Monday
	case time.Tuesday:
		return p.Tuesday
	case time.Wednesday:
		return p.Wednesday
	case time.Thursday:
		return p.Thursday
	case time.Friday:
		return p.Friday
	case time.Saturday:
		return p.Saturday
	case time.Sunday:
		return p.Sunday
	}
	return nil
}

// TotalSlots общее количество слотов в неделе
func (p *WeeklyPattern) TotalSlots() int {
	total := 0
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		total += len(p.SlotsFor(wd))
	}
	return total
}

// ScheduleTemplate шаблон расписания группы: недельный паттерн + период действия.
// Хранится в JSONB на строке группы, сам по себе в занятия не материализуется -
// это делает генератор.
type ScheduleTemplate struct {
	WeeklyPattern WeeklyPattern `json:"weekly_pattern"`
	ValidFrom     Date          `json:"valid_from"`
	ValidUntil    Date          `json:"valid_until"`
	Timezone      string        `json:"timezone,omitempty"`
}

// Validate проверяет структурную корректность шаблона
func (t *ScheduleTemplate) Validate() error {
	if t.ValidFrom.Time.IsZero() || t.ValidUntil.Time.IsZero() {
		return apperrors.Validationf("schedule template requires valid_from and valid_until")
	}
	if !t.ValidUntil.After(t.ValidFrom.Time) {
		return apperrors.Validationf(
			"valid_until %s must be after valid_from %s", t.ValidUntil, t.ValidFrom,
		)
	}
	if t.Timezone != "" {
		if _, err := time.LoadLocation(t.Timezone); err != nil {
			return apperrors.Validationf("unknown timezone %q", t.Timezone)
		}
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		for _, slot := range t.WeeklyPattern.SlotsFor(wd) {
			if err := slot.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Location возвращает локацию шаблона (или локацию по умолчанию)
func (t *ScheduleTemplate) Location() *time.Location {
	tz := t.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
