package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/repository/base"
)

const bookingColumns = `id, student_id, lesson_id, status, waitlist_position, notified, excuse_note,
		created_at, updated_at, cancelled_at, excused_at`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.StudentID,
		&booking.LessonID,
		&booking.Status,
		&booking.WaitlistPosition,
		&booking.Notified,
		&booking.ExcuseNote,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
		&booking.ExcusedAt,
	)
	if err != nil {
		return nil, err
	}

	return &booking, nil
}

// Create создаёт новую запись на занятие
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO lesson_bookings (student_id, lesson_id, status, waitlist_position, notified, excuse_note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	q := base.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.LessonID,
		booking.Status,
		booking.WaitlistPosition,
		booking.Notified,
		booking.ExcuseNote,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByStudentAndLesson получает запись студента на занятие в любом статусе.
// Уникальный индекс гарантирует не более одной строки на пару.
func (r *BookingRepository) GetByStudentAndLesson(ctx context.Context, studentID, lessonID int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM lesson_bookings WHERE student_id = $1 AND lesson_id = $2`

	q := base.QuerierFromContext(ctx, r.pool)
	booking, err := scanBooking(q.QueryRow(ctx, query, studentID, lessonID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by student and lesson: %w", err)
	}

	return booking, nil
}

// Update обновляет статус и сопутствующие поля записи
func (r *BookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE lesson_bookings
		SET status = $1,
		    waitlist_position = $2,
		    notified = $3,
		    excuse_note = $4,
		    cancelled_at = $5,
		    excused_at = $6,
		    updated_at = now()
		WHERE id = $7
	`

	q := base.QuerierFromContext(ctx, r.pool)
	result, err := q.Exec(
		ctx, query,
		booking.Status,
		booking.WaitlistPosition,
		booking.Notified,
		booking.ExcuseNote,
		booking.CancelledAt,
		booking.ExcusedAt,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking not found")
	}

	return nil
}

// CountBooked считает занятые места. Счётчик нигде не кэшируется -
// вместимость всегда проверяется пересчётом строк со статусом booked.
func (r *BookingRepository) CountBooked(ctx context.Context, lessonID int64) (int, error) {
	query := `SELECT count(*) FROM lesson_bookings WHERE lesson_id = $1 AND status = 'booked'`

	q := base.QuerierFromContext(ctx, r.pool)
	var count int
	if err := q.QueryRow(ctx, query, lessonID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count booked: %w", err)
	}

	return count, nil
}

// MaxWaitlistPosition возвращает максимальную занятую позицию в листе ожидания
func (r *BookingRepository) MaxWaitlistPosition(ctx context.Context, lessonID int64) (int, error) {
	query := `
		SELECT coalesce(max(waitlist_position), 0)
		FROM lesson_bookings
		WHERE lesson_id = $1 AND status = 'waitlist'
	`

	q := base.QuerierFromContext(ctx, r.pool)
	var max int
	if err := q.QueryRow(ctx, query, lessonID).Scan(&max); err != nil {
		return 0, fmt.Errorf("max waitlist position: %w", err)
	}

	return max, nil
}

// FirstInWaitlist получает запись с наименьшей позицией в листе ожидания
func (r *BookingRepository) FirstInWaitlist(ctx context.Context, lessonID int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM lesson_bookings
		WHERE lesson_id = $1 AND status = 'waitlist'
		ORDER BY waitlist_position ASC
		LIMIT 1
	`

	q := base.QuerierFromContext(ctx, r.pool)
	booking, err := scanBooking(q.QueryRow(ctx, query, lessonID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("first in waitlist: %w", err)
	}

	return booking, nil
}

// ListByLessonAndStatuses получает записи занятия с заданными статусами
func (r *BookingRepository) ListByLessonAndStatuses(ctx context.Context, lessonID int64, statuses []model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM lesson_bookings
		WHERE lesson_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC
	`

	statusStrings := make([]string, 0, len(statuses))
	for _, st := range statuses {
		statusStrings = append(statusStrings, string(st))
	}

	q := base.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, lessonID, statusStrings)
	if err != nil {
		return nil, fmt.Errorf("get bookings by lesson: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListByStudent получает все записи студента
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM lesson_bookings
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	q := base.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by student: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
