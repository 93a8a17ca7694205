package model

import "time"

type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "booked"    // Записан на занятие
	BookingStatusWaitlist  BookingStatus = "waitlist"  // В листе ожидания
	BookingStatusExcused   BookingStatus = "excused"   // Предупредил об отсутствии, место сохранено
	BookingStatusCancelled BookingStatus = "cancelled" // Запись отменена
)

// Booking запись студента на конкретное занятие.
// На пару (student_id, lesson_id) существует не более одной строки -
// повторная запись реактивирует отменённую строку, а не создаёт дубликат.
type Booking struct {
	ID               int64         `json:"id"`
	StudentID        int64         `json:"student_id"`
	LessonID         int64         `json:"lesson_id"`
	Status           BookingStatus `json:"status"`
	WaitlistPosition *int          `json:"waitlist_position"` // указатель - только для waitlist
	Notified         bool          `json:"notified"`
	ExcuseNote       *string       `json:"excuse_note"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	CancelledAt      *time.Time    `json:"cancelled_at"`
	ExcusedAt        *time.Time    `json:"excused_at"`
}

// IsActive проверяет, удерживает ли запись место или позицию в очереди
func (b *Booking) IsActive() bool {
	switch b.Status {
	case BookingStatusBooked, BookingStatusWaitlist, BookingStatusExcused:
		return true
	}
	return false
}
