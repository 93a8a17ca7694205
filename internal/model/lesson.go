package model

import "time"

type LessonStatus string

const (
	LessonStatusScheduled   LessonStatus = "scheduled"   // Запланировано
	LessonStatusCompleted   LessonStatus = "completed"   // Проведено
	LessonStatusCancelled   LessonStatus = "cancelled"   // Отменено
	LessonStatusRescheduled LessonStatus = "rescheduled" // Перенесено на другое время
)

// Lesson представляет одно занятие группы.
// planned_* хранят то, что выдал шаблон, и не меняются после создания;
// actual_* заполняются при переносе и используются для всех проверок времени.
type Lesson struct {
	ID               int64  `json:"id"`
	GroupID          int64  `json:"group_id"`
	PlannedDate      Date   `json:"planned_date"`
	PlannedStartTime string `json:"planned_start_time"` // HH:MM

	ActualDate      *Date   `json:"actual_date"`       // указатель - может быть nil
	ActualStartTime *string `json:"actual_start_time"` // HH:MM

	DurationMinutes int          `json:"duration_minutes"`
	CoachID         int64        `json:"coach_id"`
	Status          LessonStatus `json:"status"`
	Location        *string      `json:"location"`
	Notes           *string      `json:"notes"`

	CreatedFromTemplate bool      `json:"created_from_template"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// EffectiveDate возвращает актуальную дату (actual_date если есть, иначе planned_date)
func (l *Lesson) EffectiveDate() Date {
	if l.ActualDate != nil {
		return *l.ActualDate
	}
	return l.PlannedDate
}

// EffectiveStartTime возвращает актуальное время начала
func (l *Lesson) EffectiveStartTime() string {
	if l.ActualStartTime != nil {
		return *l.ActualStartTime
	}
	return l.PlannedStartTime
}

// IsRescheduled проверяет, было ли занятие перенесено
func (l *Lesson) IsRescheduled() bool {
	if l.ActualDate != nil && !l.ActualDate.Equal(l.PlannedDate.Time) {
		return true
	}
	return l.ActualStartTime != nil && *l.ActualStartTime != l.PlannedStartTime
}

// StartsAt возвращает оперативное время начала занятия в заданной локации.
// Время начала валидируется на входе, поэтому ошибка разбора здесь невозможна.
func (l *Lesson) StartsAt(loc *time.Location) time.Time {
	d := l.EffectiveDate()
	hour, minute, _ := ParseTimeOfDay(l.EffectiveStartTime())
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc)
}

// EndsAt возвращает время окончания занятия
func (l *Lesson) EndsAt(loc *time.Location) time.Time {
	return l.StartsAt(loc).Add(time.Duration(l.DurationMinutes) * time.Minute)
}
