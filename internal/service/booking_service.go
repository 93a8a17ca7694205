package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/notify"
	"github.com/sportclub/club_scheduler/internal/repository/base"
)

// CancellationCutoff минимальный запас времени до начала занятия для отмены записи
const CancellationCutoff = time.Hour

type BookingService struct {
	tx          base.Transactor
	lessons     LessonStore
	bookings    BookingStore
	groups      GroupStore
	enrollments EnrollmentChecker
	notifier    notify.Notifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewBookingService(
	tx base.Transactor,
	lessons LessonStore,
	bookings BookingStore,
	groups GroupStore,
	enrollments EnrollmentChecker,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:          tx,
		lessons:     lessons,
		bookings:    bookings,
		groups:      groups,
		enrollments: enrollments,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// withLockRetry выполняет транзакцию и повторяет её, если она проиграла
// гонку за блокировку строки занятия
func (s *BookingService) withLockRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewConstant(25*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.tx.WithinTransaction(ctx, fn)
		if base.IsLockConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if base.IsLockConflict(err) {
		return apperrors.Conflictf("seat is no longer available, please retry")
	}
	return err
}

// checkBookable общие проверки записи: занятие существует, не отменено,
// ещё не началось, у студента действующий абонемент клуба.
// Занятие читается с блокировкой строки: она делает атомарными
// проверку вместимости и выдачу позиции листа ожидания.
func (s *BookingService) checkBookable(ctx context.Context, studentID, lessonID int64) (*model.Lesson, *model.Group, error) {
	lesson, err := s.lessons.GetByIDForUpdate(ctx, lessonID)
	if err != nil {
		return nil, nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, nil, apperrors.NotFound("lesson", lessonID)
	}
	if lesson.Status == model.LessonStatusCancelled {
		return nil, nil, apperrors.BusinessRulef("lesson %d is cancelled", lessonID)
	}

	group, err := s.groups.GetByID(ctx, lesson.GroupID)
	if err != nil {
		return nil, nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, nil, apperrors.NotFound("group", lesson.GroupID)
	}

	if !lesson.StartsAt(groupLocation(group)).After(s.now()) {
		return nil, nil, apperrors.BusinessRulef("lesson %d has already started", lessonID)
	}

	enrolled, err := s.enrollments.HasActiveEnrollment(ctx, studentID, group.ClubID)
	if err != nil {
		return nil, nil, fmt.Errorf("check enrollment: %w", err)
	}
	if !enrolled {
		return nil, nil, apperrors.BusinessRulef(
			"student %d has no active membership in club %d", studentID, group.ClubID,
		)
	}

	return lesson, group, nil
}

// Book записывает студента на занятие. Вместимость проверяется пересчётом
// занятых мест под блокировкой строки занятия, поэтому две конкурентные
// записи на последнее место не пройдут обе.
func (s *BookingService) Book(ctx context.Context, studentID, lessonID int64) (*model.Booking, error) {
	var booking *model.Booking
	err := s.withLockRetry(ctx, func(ctx context.Context) error {
		_, group, err := s.checkBookable(ctx, studentID, lessonID)
		if err != nil {
			return err
		}

		existing, err := s.bookings.GetByStudentAndLesson(ctx, studentID, lessonID)
		if err != nil {
			return fmt.Errorf("get existing booking: %w", err)
		}
		if existing != nil {
			switch existing.Status {
			case model.BookingStatusBooked:
				return apperrors.BusinessRulef("student %d is already booked for lesson %d", studentID, lessonID)
			case model.BookingStatusWaitlist:
				return apperrors.BusinessRulef("student %d is already in the waitlist for lesson %d", studentID, lessonID)
			}
		}

		if group.Capacity != nil {
			booked, err := s.bookings.CountBooked(ctx, lessonID)
			if err != nil {
				return fmt.Errorf("count booked: %w", err)
			}
			if booked >= *group.Capacity {
				return apperrors.BusinessRule("all seats for the lesson are taken", map[string]any{
					"lesson_id": lessonID,
					"capacity":  *group.Capacity,
					"booked":    booked,
				})
			}
		}

		if existing != nil {
			// Реактивируем строку вместо вставки дубликата
			existing.Status = model.BookingStatusBooked
			existing.WaitlistPosition = nil
			existing.CancelledAt = nil
			existing.ExcusedAt = nil
			existing.ExcuseNote = nil
			if err := s.bookings.Update(ctx, existing); err != nil {
				return fmt.Errorf("reactivate booking: %w", err)
			}
			booking = existing
			return nil
		}

		booking = &model.Booking{
			StudentID: studentID,
			LessonID:  lessonID,
			Status:    model.BookingStatusBooked,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lesson booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("lesson_id", lessonID),
	)

	return booking, nil
}

// JoinWaitlist ставит студента в лист ожидания. Разрешён и для незаполненного
// занятия - выбор между записью и очередью остаётся за вызывающим.
func (s *BookingService) JoinWaitlist(ctx context.Context, studentID, lessonID int64) (*model.Booking, error) {
	var booking *model.Booking
	err := s.withLockRetry(ctx, func(ctx context.Context) error {
		if _, _, err := s.checkBookable(ctx, studentID, lessonID); err != nil {
			return err
		}

		existing, err := s.bookings.GetByStudentAndLesson(ctx, studentID, lessonID)
		if err != nil {
			return fmt.Errorf("get existing booking: %w", err)
		}
		if existing != nil {
			switch existing.Status {
			case model.BookingStatusBooked:
				return apperrors.BusinessRulef("student %d is already booked for lesson %d", studentID, lessonID)
			case model.BookingStatusWaitlist:
				return apperrors.BusinessRulef("student %d is already in the waitlist for lesson %d", studentID, lessonID)
			case model.BookingStatusExcused:
				return apperrors.BusinessRulef("student %d holds an excused seat for lesson %d", studentID, lessonID)
			}
		}

		maxPosition, err := s.bookings.MaxWaitlistPosition(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("max waitlist position: %w", err)
		}
		position := maxPosition + 1

		if existing != nil {
			// Реактивация: позиция пересчитывается в хвост очереди, а не в старый слот
			existing.Status = model.BookingStatusWaitlist
			existing.WaitlistPosition = &position
			existing.CancelledAt = nil
			if err := s.bookings.Update(ctx, existing); err != nil {
				return fmt.Errorf("reactivate booking: %w", err)
			}
			booking = existing
			return nil
		}

		booking = &model.Booking{
			StudentID:        studentID,
			LessonID:         lessonID,
			Status:           model.BookingStatusWaitlist,
			WaitlistPosition: &position,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Joined waitlist",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("lesson_id", lessonID),
		zap.Intp("position", booking.WaitlistPosition),
	)

	return booking, nil
}

// Cancel отменяет запись студента. Дедлайн отмены действует одинаково для
// записанных и ожидающих. Освобождённое место продвигает ровно одного
// студента из листа ожидания, строго по позиции; продвижение выполняется
// в той же транзакции, что и отмена.
func (s *BookingService) Cancel(ctx context.Context, studentID, lessonID int64) error {
	var (
		lesson   *model.Lesson
		promoted *model.Booking
	)
	err := s.withLockRetry(ctx, func(ctx context.Context) error {
		promoted = nil

		var err error
		lesson, err = s.lessons.GetByIDForUpdate(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("get lesson: %w", err)
		}
		if lesson == nil {
			return apperrors.NotFound("lesson", lessonID)
		}

		group, err := s.groups.GetByID(ctx, lesson.GroupID)
		if err != nil {
			return fmt.Errorf("get group: %w", err)
		}
		if group == nil {
			return apperrors.NotFound("group", lesson.GroupID)
		}

		booking, err := s.bookings.GetByStudentAndLesson(ctx, studentID, lessonID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil ||
			(booking.Status != model.BookingStatusBooked && booking.Status != model.BookingStatusWaitlist) {
			return apperrors.NotFound("booking", fmt.Sprintf("student=%d lesson=%d", studentID, lessonID))
		}

		startsAt := lesson.StartsAt(groupLocation(group))
		if startsAt.Sub(s.now()) < CancellationCutoff {
			return apperrors.BusinessRule(
				"cancellation is allowed no later than 1 hour before the lesson",
				map[string]any{"lesson_id": lessonID, "starts_at": startsAt},
			)
		}

		wasBooked := booking.Status == model.BookingStatusBooked

		cancelledAt := s.now()
		booking.Status = model.BookingStatusCancelled
		booking.CancelledAt = &cancelledAt
		booking.WaitlistPosition = nil
		if err := s.bookings.Update(ctx, booking); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}

		if !wasBooked {
			return nil
		}

		// Освободилось место - продвигаем первого в очереди
		next, err := s.bookings.FirstInWaitlist(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("first in waitlist: %w", err)
		}
		if next == nil {
			return nil
		}

		next.Status = model.BookingStatusBooked
		next.WaitlistPosition = nil
		next.Notified = true
		if err := s.bookings.Update(ctx, next); err != nil {
			return fmt.Errorf("promote from waitlist: %w", err)
		}
		promoted = next

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("student_id", studentID),
		zap.Int64("lesson_id", lessonID),
		zap.Bool("promoted_from_waitlist", promoted != nil),
	)

	payload := map[string]any{
		"lesson_id":  lessonID,
		"date":       lesson.EffectiveDate().String(),
		"start_time": lesson.EffectiveStartTime(),
	}
	if promoted != nil {
		s.notifier.Notify(ctx, promoted.StudentID, notify.EventWaitlistPromoted, payload)
	}
	s.notifier.Notify(ctx, lesson.CoachID, notify.EventBookingCancelled, payload)

	return nil
}

// Excuse отмечает запланированное отсутствие: место остаётся за студентом,
// очередь не продвигается. Дедлайна нет - отметиться можно вплоть до начала.
func (s *BookingService) Excuse(ctx context.Context, studentID, lessonID int64, note *string) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		lesson, err := s.lessons.GetByID(ctx, lessonID)
		if err != nil {
			return fmt.Errorf("get lesson: %w", err)
		}
		if lesson == nil {
			return apperrors.NotFound("lesson", lessonID)
		}

		group, err := s.groups.GetByID(ctx, lesson.GroupID)
		if err != nil {
			return fmt.Errorf("get group: %w", err)
		}
		if group == nil {
			return apperrors.NotFound("group", lesson.GroupID)
		}

		booking, err := s.bookings.GetByStudentAndLesson(ctx, studentID, lessonID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if booking == nil || booking.Status != model.BookingStatusBooked {
			return apperrors.NotFound("booking", fmt.Sprintf("student=%d lesson=%d", studentID, lessonID))
		}

		if !lesson.StartsAt(groupLocation(group)).After(s.now()) {
			return apperrors.BusinessRulef("cannot excuse after lesson %d has started", lessonID)
		}

		excusedAt := s.now()
		booking.Status = model.BookingStatusExcused
		booking.ExcuseNote = note
		booking.ExcusedAt = &excusedAt
		if err := s.bookings.Update(ctx, booking); err != nil {
			return fmt.Errorf("excuse booking: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Booking excused",
		zap.Int64("student_id", studentID),
		zap.Int64("lesson_id", lessonID),
	)

	return nil
}

// Participants состав занятия для экрана журнала
type Participants struct {
	Booked       []*model.Booking `json:"booked"`
	Excused      []*model.Booking `json:"excused"`
	BookedCount  int              `json:"booked_count"`
	ExcusedCount int              `json:"excused_count"`
	Capacity     *int             `json:"capacity"`
}

// LessonParticipants возвращает записанных и отсутствующих по занятию
func (s *BookingService) LessonParticipants(ctx context.Context, lessonID int64) (*Participants, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, apperrors.NotFound("lesson", lessonID)
	}

	group, err := s.groups.GetByID(ctx, lesson.GroupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, apperrors.NotFound("group", lesson.GroupID)
	}

	bookings, err := s.bookings.ListByLessonAndStatuses(ctx, lessonID,
		[]model.BookingStatus{model.BookingStatusBooked, model.BookingStatusExcused})
	if err != nil {
		return nil, fmt.Errorf("get lesson bookings: %w", err)
	}

	result := &Participants{Capacity: group.Capacity}
	for _, b := range bookings {
		if b.Status == model.BookingStatusBooked {
			result.Booked = append(result.Booked, b)
		} else {
			result.Excused = append(result.Excused, b)
		}
	}
	result.BookedCount = len(result.Booked)
	result.ExcusedCount = len(result.Excused)

	return result, nil
}

// StudentBookings возвращает все записи студента
func (s *BookingService) StudentBookings(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	return s.bookings.ListByStudent(ctx, studentID)
}

// BookingStatusFor проверяет, записан ли студент на занятие или ждёт в очереди
func (s *BookingService) BookingStatusFor(ctx context.Context, studentID, lessonID int64) (isBooked, isWaitlisted bool, err error) {
	booking, err := s.bookings.GetByStudentAndLesson(ctx, studentID, lessonID)
	if err != nil {
		return false, false, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return false, false, nil
	}
	return booking.Status == model.BookingStatusBooked, booking.Status == model.BookingStatusWaitlist, nil
}
