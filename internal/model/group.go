package model

import "time"

// Group тренировочная группа клуба. Шаблон расписания принадлежит группе
// и заменяется целиком либо правится по полям.
type Group struct {
	ID        int64             `json:"id"`
	ClubID    int64             `json:"club_id"`
	Name      string            `json:"name"`
	CoachID   int64             `json:"coach_id"`
	Capacity  *int              `json:"capacity"` // указатель - nil означает без лимита мест
	Schedule  *ScheduleTemplate `json:"schedule"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
