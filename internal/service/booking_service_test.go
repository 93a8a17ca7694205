package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/notify"
)

type bookingFixture struct {
	svc      *BookingService
	lessons  *fakeLessonStore
	bookings *fakeBookingStore
	groups   *fakeGroupStore
	enrolled *fakeEnrollments
	notifier *fakeNotifier
	lesson   *model.Lesson
	loc      *time.Location
}

// Фикстура: группа вместимостью 2, занятие 2 июня 2025 в 18:00 по Алматы,
// часы сервиса зафиксированы на утре того же дня.
func newBookingFixture(t *testing.T, capacity int) *bookingFixture {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	lessons := newFakeLessonStore()
	bookings := newFakeBookingStore()
	groups := newFakeGroupStore()
	enrolled := newFakeEnrollments()
	notifier := &fakeNotifier{}

	groups.groups[1] = &model.Group{
		ID: 1, ClubID: 1, Name: "Юниоры", CoachID: 10,
		Capacity: &capacity, Schedule: testTemplate(),
	}

	lesson := &model.Lesson{
		GroupID:          1,
		PlannedDate:      model.NewDate(2025, time.June, 2),
		PlannedStartTime: "18:00",
		DurationMinutes:  90,
		CoachID:          10,
		Status:           model.LessonStatusScheduled,
	}
	require.NoError(t, lessons.Create(context.Background(), lesson))

	svc := NewBookingService(fakeTransactor{}, lessons, bookings, groups, enrolled, notifier, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 2, 10, 0, 0, 0, loc)
	}

	return &bookingFixture{
		svc: svc, lessons: lessons, bookings: bookings, groups: groups,
		enrolled: enrolled, notifier: notifier, lesson: lesson, loc: loc,
	}
}

func (f *bookingFixture) setNow(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

func TestBook_HappyPath(t *testing.T) {
	f := newBookingFixture(t, 2)
	f.enrolled.enroll(100, 1)

	booking, err := f.svc.Book(context.Background(), 100, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusBooked, booking.Status)
	require.Nil(t, booking.WaitlistPosition)

	isBooked, isWaitlisted, err := f.svc.BookingStatusFor(context.Background(), 100, f.lesson.ID)
	require.NoError(t, err)
	require.True(t, isBooked)
	require.False(t, isWaitlisted)
}

func TestBook_Guards(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()

	t.Run("без абонемента", func(t *testing.T) {
		_, err := f.svc.Book(ctx, 100, f.lesson.ID)
		require.True(t, apperrors.IsBusinessRule(err))
	})

	f.enrolled.enroll(100, 1)

	t.Run("занятие не найдено", func(t *testing.T) {
		_, err := f.svc.Book(ctx, 100, 999)
		require.True(t, apperrors.IsNotFound(err))
	})

	t.Run("повторная запись", func(t *testing.T) {
		_, err := f.svc.Book(ctx, 100, f.lesson.ID)
		require.NoError(t, err)
		_, err = f.svc.Book(ctx, 100, f.lesson.ID)
		require.True(t, apperrors.IsBusinessRule(err))
	})

	t.Run("занятие уже началось", func(t *testing.T) {
		f.enrolled.enroll(101, 1)
		f.setNow(time.Date(2025, time.June, 2, 18, 0, 0, 0, f.loc))
		_, err := f.svc.Book(ctx, 101, f.lesson.ID)
		require.True(t, apperrors.IsBusinessRule(err))
	})

	t.Run("отменённое занятие", func(t *testing.T) {
		f.lesson.Status = model.LessonStatusCancelled
		require.NoError(t, f.lessons.Update(ctx, f.lesson))
		_, err := f.svc.Book(ctx, 101, f.lesson.ID)
		require.True(t, apperrors.IsBusinessRule(err))
	})
}

func TestBook_CapacityIsEnforced(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	for _, id := range []int64{100, 101, 102} {
		f.enrolled.enroll(id, 1)
	}

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, 101, f.lesson.ID)
	require.NoError(t, err)

	_, err = f.svc.Book(ctx, 102, f.lesson.ID)
	require.True(t, apperrors.IsBusinessRule(err))

	// Третьему остаётся лист ожидания
	booking, err := f.svc.JoinWaitlist(ctx, 102, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusWaitlist, booking.Status)
	require.Equal(t, 1, *booking.WaitlistPosition)
}

func TestBook_NilCapacityMeansUnlimited(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()

	f.groups.groups[1].Capacity = nil

	for id := int64(100); id < 110; id++ {
		f.enrolled.enroll(id, 1)
		_, err := f.svc.Book(ctx, id, f.lesson.ID)
		require.NoError(t, err)
	}
}

func TestWaitlist_PromotionIsFIFO(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()
	for _, id := range []int64{100, 101, 102, 103} {
		f.enrolled.enroll(id, 1)
	}

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)

	// Очередь: 101, 102, 103 - позиции строго по порядку вступления
	for i, id := range []int64{101, 102, 103} {
		booking, err := f.svc.JoinWaitlist(ctx, id, f.lesson.ID)
		require.NoError(t, err)
		require.Equal(t, i+1, *booking.WaitlistPosition)
	}

	// Отмена записанного продвигает ровно первого из очереди
	require.NoError(t, f.svc.Cancel(ctx, 100, f.lesson.ID))

	isBooked, _, err := f.svc.BookingStatusFor(ctx, 101, f.lesson.ID)
	require.NoError(t, err)
	require.True(t, isBooked)

	_, isWaitlisted, err := f.svc.BookingStatusFor(ctx, 102, f.lesson.ID)
	require.NoError(t, err)
	require.True(t, isWaitlisted)

	// Продвинутый уведомлён, тренер получил уведомление об отмене
	require.Len(t, f.notifier.sent, 2)
	require.Equal(t, notify.EventWaitlistPromoted, f.notifier.sent[0].Event)
	require.Equal(t, int64(101), f.notifier.sent[0].RecipientID)
	require.Equal(t, notify.EventBookingCancelled, f.notifier.sent[1].Event)
	require.Equal(t, int64(10), f.notifier.sent[1].RecipientID)
}

func TestCancel_WaitlistedDoesNotPromote(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()
	for _, id := range []int64{100, 101, 102} {
		f.enrolled.enroll(id, 1)
	}

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 101, f.lesson.ID)
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 102, f.lesson.ID)
	require.NoError(t, err)

	// Уход из очереди не освобождает место - продвижения нет
	require.NoError(t, f.svc.Cancel(ctx, 101, f.lesson.ID))

	isBooked, isWaitlisted, err := f.svc.BookingStatusFor(ctx, 102, f.lesson.ID)
	require.NoError(t, err)
	require.False(t, isBooked)
	require.True(t, isWaitlisted)
}

func TestCancel_CutoffOneHourBeforeStart(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)

	// За 59 минут до начала - поздно
	f.setNow(time.Date(2025, time.June, 2, 17, 1, 0, 0, f.loc))
	err = f.svc.Cancel(ctx, 100, f.lesson.ID)
	require.True(t, apperrors.IsBusinessRule(err))

	// За 61 минуту - ещё можно
	f.setNow(time.Date(2025, time.June, 2, 16, 59, 0, 0, f.loc))
	require.NoError(t, f.svc.Cancel(ctx, 100, f.lesson.ID))
}

func TestCancel_UsesRescheduledTimeForCutoff(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)

	// Занятие перенесено с 18:00 на 21:00 - дедлайн считается от нового времени
	newTime := "21:00"
	f.lesson.ActualStartTime = &newTime
	f.lesson.Status = model.LessonStatusRescheduled
	require.NoError(t, f.lessons.Update(ctx, f.lesson))

	f.setNow(time.Date(2025, time.June, 2, 17, 30, 0, 0, f.loc))
	require.NoError(t, f.svc.Cancel(ctx, 100, f.lesson.ID))
}

func TestCancel_UnknownBooking(t *testing.T) {
	f := newBookingFixture(t, 2)
	err := f.svc.Cancel(context.Background(), 100, f.lesson.ID)
	require.True(t, apperrors.IsNotFound(err))
}

func TestExcuse_KeepsSeatAndQueue(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)
	f.enrolled.enroll(101, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 101, f.lesson.ID)
	require.NoError(t, err)

	note := "командировка"
	require.NoError(t, f.svc.Excuse(ctx, 100, f.lesson.ID, &note))

	// Место сохранено за отпросившимся, очередь не продвинута
	booking, err := f.bookings.GetByStudentAndLesson(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusExcused, booking.Status)
	require.Equal(t, "командировка", *booking.ExcuseNote)
	require.NotNil(t, booking.ExcusedAt)

	_, isWaitlisted, err := f.svc.BookingStatusFor(ctx, 101, f.lesson.ID)
	require.NoError(t, err)
	require.True(t, isWaitlisted)

	// Отпроситься может только записанный
	err = f.svc.Excuse(ctx, 101, f.lesson.ID, nil)
	require.True(t, apperrors.IsNotFound(err))
}

func TestExcuse_FreesSeatForBooking(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)
	f.enrolled.enroll(101, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Excuse(ctx, 100, f.lesson.ID, nil))

	// Вместимость считается только по записанным, отпросившийся её не занимает
	booking, err := f.svc.Book(ctx, 101, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusBooked, booking.Status)
}

func TestExcuse_NotAfterStart(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)

	// Отпроситься можно вплоть до начала, дедлайна в час нет
	f.setNow(time.Date(2025, time.June, 2, 17, 59, 0, 0, f.loc))
	require.NoError(t, f.svc.Excuse(ctx, 100, f.lesson.ID, nil))

	// Но не после начала
	f2 := newBookingFixture(t, 2)
	f2.enrolled.enroll(100, 1)
	_, err = f2.svc.Book(ctx, 100, f2.lesson.ID)
	require.NoError(t, err)
	f2.setNow(time.Date(2025, time.June, 2, 18, 0, 0, 0, f2.loc))
	err = f2.svc.Excuse(ctx, 100, f2.lesson.ID, nil)
	require.True(t, apperrors.IsBusinessRule(err))
}

func TestBook_ReactivatesCancelledRow(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)

	first, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx, 100, f.lesson.ID))

	// Повторная запись оживляет ту же строку, дубликат не создаётся
	second, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, model.BookingStatusBooked, second.Status)
	require.Nil(t, second.CancelledAt)

	all, err := f.svc.StudentBookings(ctx, 100)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestBook_ExcusedCanRebook(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Excuse(ctx, 100, f.lesson.ID, nil))

	booking, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusBooked, booking.Status)
	require.Nil(t, booking.ExcusedAt)
	require.Nil(t, booking.ExcuseNote)
}

func TestJoinWaitlist_RejectsExcused(t *testing.T) {
	f := newBookingFixture(t, 2)
	ctx := context.Background()
	f.enrolled.enroll(100, 1)

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Excuse(ctx, 100, f.lesson.ID, nil))

	_, err = f.svc.JoinWaitlist(ctx, 100, f.lesson.ID)
	require.True(t, apperrors.IsBusinessRule(err))
}

func TestJoinWaitlist_ReactivationGoesToTail(t *testing.T) {
	f := newBookingFixture(t, 1)
	ctx := context.Background()
	for _, id := range []int64{100, 101, 102} {
		f.enrolled.enroll(id, 1)
	}

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	_, err = f.svc.JoinWaitlist(ctx, 101, f.lesson.ID)
	require.NoError(t, err)

	// 101 уходит из очереди и возвращается после 102 - его место в хвосте
	require.NoError(t, f.svc.Cancel(ctx, 101, f.lesson.ID))
	_, err = f.svc.JoinWaitlist(ctx, 102, f.lesson.ID)
	require.NoError(t, err)

	back, err := f.svc.JoinWaitlist(ctx, 101, f.lesson.ID)
	require.NoError(t, err)

	ahead, err := f.bookings.GetByStudentAndLesson(ctx, 102, f.lesson.ID)
	require.NoError(t, err)
	require.Greater(t, *back.WaitlistPosition, *ahead.WaitlistPosition)
}

func TestLessonParticipants(t *testing.T) {
	f := newBookingFixture(t, 3)
	ctx := context.Background()
	for _, id := range []int64{100, 101, 102} {
		f.enrolled.enroll(id, 1)
	}

	_, err := f.svc.Book(ctx, 100, f.lesson.ID)
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, 101, f.lesson.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Excuse(ctx, 101, f.lesson.ID, nil))
	_, err = f.svc.Book(ctx, 102, f.lesson.ID)
	require.NoError(t, err)

	participants, err := f.svc.LessonParticipants(ctx, f.lesson.ID)
	require.NoError(t, err)
	require.Equal(t, 2, participants.BookedCount)
	require.Equal(t, 1, participants.ExcusedCount)
	require.NotNil(t, participants.Capacity)
	require.Equal(t, 3, *participants.Capacity)
}
