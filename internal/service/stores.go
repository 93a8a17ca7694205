package service

import (
	"context"
	"time"

	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/repository"
)

// Интерфейсы хранилищ, которые сервисы ожидают от слоя репозиториев.
// Реализуются pgx-репозиториями, тесты подставляют in-memory фейки.

type LessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id int64) (*model.Lesson, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error)
	ListByGroupAndRange(ctx context.Context, groupID int64, from, to model.Date) ([]*model.Lesson, error)
	ListByCoachAndRange(ctx context.Context, coachID int64, from, to model.Date, statuses []model.LessonStatus) ([]*model.Lesson, error)
	List(ctx context.Context, f repository.LessonFilters) ([]*model.Lesson, error)
	Update(ctx context.Context, lesson *model.Lesson) error
	Delete(ctx context.Context, id int64) error
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByStudentAndLesson(ctx context.Context, studentID, lessonID int64) (*model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error
	CountBooked(ctx context.Context, lessonID int64) (int, error)
	MaxWaitlistPosition(ctx context.Context, lessonID int64) (int, error)
	FirstInWaitlist(ctx context.Context, lessonID int64) (*model.Booking, error)
	ListByLessonAndStatuses(ctx context.Context, lessonID int64, statuses []model.BookingStatus) ([]*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error)
}

type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*model.Group, error)
	UpdateSchedule(ctx context.Context, groupID int64, tmpl *model.ScheduleTemplate) error
}

// EnrollmentChecker внешний коллаборатор: проверка действующего абонемента
type EnrollmentChecker interface {
	HasActiveEnrollment(ctx context.Context, studentID, clubID int64) (bool, error)
}

// groupLocation часовой пояс группы для всей арифметики времени занятий
func groupLocation(group *model.Group) *time.Location {
	if group.Schedule != nil {
		return group.Schedule.Location()
	}
	loc, err := time.LoadLocation(model.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
