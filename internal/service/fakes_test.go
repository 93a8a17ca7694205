package service

// In-memory фейки хранилищ для тестов сервисов.
// Блокировок нет: тесты проверяют бизнес-правила, а не конкурентность.

import (
	"context"
	"sort"

	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/notify"
	"github.com/sportclub/club_scheduler/internal/repository"
)

type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLessonStore struct {
	nextID  int64
	lessons map[int64]*model.Lesson
}

func newFakeLessonStore() *fakeLessonStore {
	return &fakeLessonStore{lessons: map[int64]*model.Lesson{}}
}

func (f *fakeLessonStore) Create(_ context.Context, lesson *model.Lesson) error {
	f.nextID++
	lesson.ID = f.nextID
	cp := *lesson
	f.lessons[lesson.ID] = &cp
	return nil
}

func (f *fakeLessonStore) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	lesson, ok := f.lessons[id]
	if !ok {
		return nil, nil
	}
	cp := *lesson
	return &cp, nil
}

func (f *fakeLessonStore) GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeLessonStore) ListByGroupAndRange(_ context.Context, groupID int64, from, to model.Date) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, lesson := range f.lessons {
		if lesson.GroupID != groupID {
			continue
		}
		if lesson.PlannedDate.Before(from.Time) || lesson.PlannedDate.After(to.Time) {
			continue
		}
		cp := *lesson
		out = append(out, &cp)
	}
	sortLessons(out)
	return out, nil
}

func (f *fakeLessonStore) ListByCoachAndRange(_ context.Context, coachID int64, from, to model.Date, statuses []model.LessonStatus) ([]*model.Lesson, error) {
	allowed := map[model.LessonStatus]bool{}
	for _, st := range statuses {
		allowed[st] = true
	}
	var out []*model.Lesson
	for _, lesson := range f.lessons {
		if lesson.CoachID != coachID || !allowed[lesson.Status] {
			continue
		}
		if lesson.PlannedDate.Before(from.Time) || lesson.PlannedDate.After(to.Time) {
			continue
		}
		cp := *lesson
		out = append(out, &cp)
	}
	sortLessons(out)
	return out, nil
}

func (f *fakeLessonStore) List(_ context.Context, filters repository.LessonFilters) ([]*model.Lesson, error) {
	var out []*model.Lesson
	for _, lesson := range f.lessons {
		if lesson.PlannedDate.Before(filters.From.Time) || lesson.PlannedDate.After(filters.To.Time) {
			continue
		}
		if filters.GroupID != nil && lesson.GroupID != *filters.GroupID {
			continue
		}
		if filters.CoachID != nil && lesson.CoachID != *filters.CoachID {
			continue
		}
		if filters.Status != nil && lesson.Status != *filters.Status {
			continue
		}
		cp := *lesson
		out = append(out, &cp)
	}
	sortLessons(out)
	return out, nil
}

func (f *fakeLessonStore) Update(_ context.Context, lesson *model.Lesson) error {
	cp := *lesson
	f.lessons[lesson.ID] = &cp
	return nil
}

func (f *fakeLessonStore) Delete(_ context.Context, id int64) error {
	delete(f.lessons, id)
	return nil
}

func sortLessons(lessons []*model.Lesson) {
	sort.Slice(lessons, func(i, j int) bool {
		if !lessons[i].PlannedDate.Equal(lessons[j].PlannedDate.Time) {
			return lessons[i].PlannedDate.Before(lessons[j].PlannedDate.Time)
		}
		return lessons[i].PlannedStartTime < lessons[j].PlannedStartTime
	})
}

type fakeBookingStore struct {
	nextID   int64
	bookings map[int64]*model.Booking
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: map[int64]*model.Booking{}}
}

func (f *fakeBookingStore) Create(_ context.Context, booking *model.Booking) error {
	f.nextID++
	booking.ID = f.nextID
	cp := *booking
	f.bookings[booking.ID] = &cp
	return nil
}

func (f *fakeBookingStore) GetByStudentAndLesson(_ context.Context, studentID, lessonID int64) (*model.Booking, error) {
	for _, b := range f.bookings {
		if b.StudentID == studentID && b.LessonID == lessonID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeBookingStore) Update(_ context.Context, booking *model.Booking) error {
	cp := *booking
	f.bookings[booking.ID] = &cp
	return nil
}

func (f *fakeBookingStore) CountBooked(_ context.Context, lessonID int64) (int, error) {
	count := 0
	for _, b := range f.bookings {
		if b.LessonID == lessonID && b.Status == model.BookingStatusBooked {
			count++
		}
	}
	return count, nil
}

func (f *fakeBookingStore) MaxWaitlistPosition(_ context.Context, lessonID int64) (int, error) {
	max := 0
	for _, b := range f.bookings {
		if b.LessonID == lessonID && b.Status == model.BookingStatusWaitlist &&
			b.WaitlistPosition != nil && *b.WaitlistPosition > max {
			max = *b.WaitlistPosition
		}
	}
	return max, nil
}

func (f *fakeBookingStore) FirstInWaitlist(_ context.Context, lessonID int64) (*model.Booking, error) {
	var first *model.Booking
	for _, b := range f.bookings {
		if b.LessonID != lessonID || b.Status != model.BookingStatusWaitlist || b.WaitlistPosition == nil {
			continue
		}
		if first == nil || *b.WaitlistPosition < *first.WaitlistPosition {
			first = b
		}
	}
	if first == nil {
		return nil, nil
	}
	cp := *first
	return &cp, nil
}

func (f *fakeBookingStore) ListByLessonAndStatuses(_ context.Context, lessonID int64, statuses []model.BookingStatus) ([]*model.Booking, error) {
	allowed := map[model.BookingStatus]bool{}
	for _, st := range statuses {
		allowed[st] = true
	}
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.LessonID == lessonID && allowed[b.Status] {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookingStore) ListByStudent(_ context.Context, studentID int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.StudentID == studentID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeGroupStore struct {
	groups map[int64]*model.Group
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{groups: map[int64]*model.Group{}}
}

func (f *fakeGroupStore) GetByID(_ context.Context, id int64) (*model.Group, error) {
	group, ok := f.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *group
	return &cp, nil
}

func (f *fakeGroupStore) UpdateSchedule(_ context.Context, groupID int64, tmpl *model.ScheduleTemplate) error {
	group, ok := f.groups[groupID]
	if !ok {
		return nil
	}
	group.Schedule = tmpl
	return nil
}

type fakeEnrollments struct {
	active map[[2]int64]bool // [studentID, clubID]
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{active: map[[2]int64]bool{}}
}

func (f *fakeEnrollments) enroll(studentID, clubID int64) {
	f.active[[2]int64{studentID, clubID}] = true
}

func (f *fakeEnrollments) HasActiveEnrollment(_ context.Context, studentID, clubID int64) (bool, error) {
	return f.active[[2]int64{studentID, clubID}], nil
}

type sentNotification struct {
	RecipientID int64
	Event       notify.Event
	Payload     map[string]any
}

type fakeNotifier struct {
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID int64, event notify.Event, payload map[string]any) {
	f.sent = append(f.sent, sentNotification{RecipientID: recipientID, Event: event, Payload: payload})
}
