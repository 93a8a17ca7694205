package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/notify"
	"github.com/sportclub/club_scheduler/internal/repository"
)

// MinCancelReasonLength минимальная длина причины отмены занятия
const MinCancelReasonLength = 3

// Capabilities набор прав вызывающего, разрешённый внешним слоем авторизации
// один раз на вызов. Проверки переходов - чистые функции от
// (статус, запрошенный переход, права).
type Capabilities struct {
	ActorID       int64
	CanManageClub bool
}

type LessonService struct {
	lessons  LessonStore
	groups   GroupStore
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewLessonService(
	lessons LessonStore,
	groups GroupStore,
	notifier notify.Notifier,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		lessons:  lessons,
		groups:   groups,
		notifier: notifier,
		logger:   logger,
	}
}

// transitionError называет текущий и запрошенный статусы
func transitionError(from, to model.LessonStatus) error {
	return apperrors.BusinessRule(
		fmt.Sprintf("illegal transition: lesson is %s, requested %s", from, to),
		map[string]any{"current_status": string(from), "requested_status": string(to)},
	)
}

// canTransition проверяет допустимость перехода статуса.
// Других переходов, кроме перечисленных, не существует.
func canTransition(from, to model.LessonStatus) error {
	switch to {
	case model.LessonStatusRescheduled, model.LessonStatusCancelled:
		if from == model.LessonStatusCompleted || from == model.LessonStatusCancelled {
			return transitionError(from, to)
		}
		return nil
	case model.LessonStatusCompleted:
		if from == model.LessonStatusCancelled || from == model.LessonStatusCompleted {
			return transitionError(from, to)
		}
		return nil
	}
	return transitionError(from, to)
}

// CreateLessonRequest параметры ручного создания занятия
type CreateLessonRequest struct {
	GroupID         int64
	Date            model.Date
	StartTime       string
	DurationMinutes int
	CoachID         *int64
	Location        *string
	Notes           *string
}

// Create создаёт занятие вручную, вне шаблона
func (s *LessonService) Create(ctx context.Context, req CreateLessonRequest, caps Capabilities) (*model.Lesson, error) {
	if !caps.CanManageClub {
		return nil, apperrors.Permissionf("no permission to create lessons")
	}
	if _, _, err := model.ParseTimeOfDay(req.StartTime); err != nil {
		return nil, err
	}
	if req.DurationMinutes < model.MinSlotDurationMinutes || req.DurationMinutes > model.MaxSlotDurationMinutes {
		return nil, apperrors.Validationf(
			"lesson duration must be between %d and %d minutes, got %d",
			model.MinSlotDurationMinutes, model.MaxSlotDurationMinutes, req.DurationMinutes,
		)
	}

	group, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, apperrors.NotFound("group", req.GroupID)
	}

	coachID := group.CoachID
	if req.CoachID != nil {
		coachID = *req.CoachID
	}

	lesson := &model.Lesson{
		GroupID:             req.GroupID,
		PlannedDate:         req.Date,
		PlannedStartTime:    req.StartTime,
		DurationMinutes:     req.DurationMinutes,
		CoachID:             coachID,
		Status:              model.LessonStatusScheduled,
		Location:            req.Location,
		Notes:               req.Notes,
		CreatedFromTemplate: false,
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	s.logger.Info("Lesson created manually",
		zap.Int64("lesson_id", lesson.ID),
		zap.Int64("group_id", req.GroupID),
		zap.String("date", req.Date.String()),
		zap.String("start_time", req.StartTime),
	)

	return lesson, nil
}

// GetByID получает занятие по ID
func (s *LessonService) GetByID(ctx context.Context, lessonID int64) (*model.Lesson, error) {
	return s.getLesson(ctx, lessonID)
}

// List получает занятия по фильтрам, диапазон дат обязателен
func (s *LessonService) List(ctx context.Context, f repository.LessonFilters) ([]*model.Lesson, error) {
	if f.From.Time.IsZero() || f.To.Time.IsZero() {
		return nil, apperrors.Validationf("date range is required")
	}
	if f.To.Before(f.From.Time) {
		return nil, apperrors.Validationf("date_to %s must not be before date_from %s", f.To, f.From)
	}
	if f.From.DaysUntil(f.To) > 365 {
		return nil, apperrors.Validationf("date range cannot exceed 365 days")
	}
	return s.lessons.List(ctx, f)
}

// UpdateLessonRequest изменяемые вне переходов статуса поля занятия
type UpdateLessonRequest struct {
	CoachID         *int64
	Location        *string
	Notes           *string
	DurationMinutes *int
}

// Update правит поля занятия, не участвующие в переходах статуса
func (s *LessonService) Update(ctx context.Context, lessonID int64, req UpdateLessonRequest, caps Capabilities) (*model.Lesson, error) {
	if !caps.CanManageClub {
		return nil, apperrors.Permissionf("no permission to update lessons")
	}

	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if req.CoachID != nil {
		lesson.CoachID = *req.CoachID
	}
	if req.Location != nil {
		lesson.Location = req.Location
	}
	if req.Notes != nil {
		lesson.Notes = req.Notes
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes < model.MinSlotDurationMinutes || *req.DurationMinutes > model.MaxSlotDurationMinutes {
			return nil, apperrors.Validationf(
				"lesson duration must be between %d and %d minutes, got %d",
				model.MinSlotDurationMinutes, model.MaxSlotDurationMinutes, *req.DurationMinutes,
			)
		}
		lesson.DurationMinutes = *req.DurationMinutes
	}

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}

	s.logger.Info("Lesson updated", zap.Int64("lesson_id", lessonID))
	return lesson, nil
}

// Reschedule переносит занятие на новые дату и время.
// planned_* остаются историческим следом шаблона, перенос пишется в actual_*.
// Перенесённое занятие остаётся доступным для записи и проведения.
func (s *LessonService) Reschedule(ctx context.Context, lessonID int64, newDate model.Date, newTime, reason string, caps Capabilities) (*model.Lesson, error) {
	if _, _, err := model.ParseTimeOfDay(newTime); err != nil {
		return nil, err
	}

	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !caps.CanManageClub {
		return nil, apperrors.Permissionf("no permission to reschedule lesson %d", lessonID)
	}
	if err := canTransition(lesson.Status, model.LessonStatusRescheduled); err != nil {
		return nil, err
	}

	lesson.ActualDate = &newDate
	lesson.ActualStartTime = &newTime
	lesson.Status = model.LessonStatusRescheduled
	if reason != "" {
		appendNote(lesson, "Rescheduled: "+reason)
	}

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}

	s.logger.Info("Lesson rescheduled",
		zap.Int64("lesson_id", lessonID),
		zap.String("new_date", newDate.String()),
		zap.String("new_time", newTime),
	)

	s.notifier.Notify(ctx, lesson.CoachID, notify.EventLessonRescheduled, map[string]any{
		"lesson_id":  lessonID,
		"date":       newDate.String(),
		"start_time": newTime,
	})

	return lesson, nil
}

// Cancel отменяет занятие с обязательной причиной
func (s *LessonService) Cancel(ctx context.Context, lessonID int64, reason string, caps Capabilities) (*model.Lesson, error) {
	if len(strings.TrimSpace(reason)) < MinCancelReasonLength {
		return nil, apperrors.Validationf(
			"cancellation reason must be at least %d characters", MinCancelReasonLength,
		)
	}

	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !caps.CanManageClub {
		return nil, apperrors.Permissionf("no permission to cancel lesson %d", lessonID)
	}
	if err := canTransition(lesson.Status, model.LessonStatusCancelled); err != nil {
		return nil, err
	}

	lesson.Status = model.LessonStatusCancelled
	appendNote(lesson, "Cancelled: "+reason)

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}

	s.logger.Info("Lesson cancelled",
		zap.Int64("lesson_id", lessonID),
		zap.String("reason", reason),
	)

	s.notifier.Notify(ctx, lesson.CoachID, notify.EventLessonCancelled, map[string]any{
		"lesson_id":  lessonID,
		"date":       lesson.EffectiveDate().String(),
		"start_time": lesson.EffectiveStartTime(),
		"reason":     reason,
	})

	return lesson, nil
}

// Complete отмечает занятие проведённым. Назначенный тренер может закрывать
// свои занятия и без прав управления клубом.
func (s *LessonService) Complete(ctx context.Context, lessonID int64, notes *string, actualDuration *int, caps Capabilities) (*model.Lesson, error) {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	isAssignedCoach := lesson.CoachID == caps.ActorID
	if !caps.CanManageClub && !isAssignedCoach {
		return nil, apperrors.Permissionf("no permission to complete lesson %d", lessonID)
	}
	if err := canTransition(lesson.Status, model.LessonStatusCompleted); err != nil {
		return nil, err
	}

	lesson.Status = model.LessonStatusCompleted
	if notes != nil && *notes != "" {
		appendNote(lesson, "Completed: "+*notes)
	}
	if actualDuration != nil {
		if *actualDuration <= 0 {
			return nil, apperrors.Validationf("actual duration must be positive")
		}
		lesson.DurationMinutes = *actualDuration
	}

	if err := s.lessons.Update(ctx, lesson); err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}

	s.logger.Info("Lesson completed",
		zap.Int64("lesson_id", lessonID),
		zap.Int64("actor_id", caps.ActorID),
		zap.Bool("by_assigned_coach", isAssignedCoach),
	)

	s.notifier.Notify(ctx, lesson.CoachID, notify.EventLessonCompleted, map[string]any{
		"lesson_id": lessonID,
		"date":      lesson.EffectiveDate().String(),
	})

	return lesson, nil
}

// Delete удаляет занятие. История проведённых занятий неприкосновенна.
func (s *LessonService) Delete(ctx context.Context, lessonID int64, caps Capabilities) error {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if !caps.CanManageClub {
		return apperrors.Permissionf("no permission to delete lesson %d", lessonID)
	}
	if lesson.Status == model.LessonStatusCompleted {
		return apperrors.BusinessRulef("cannot delete completed lesson %d", lessonID)
	}

	if err := s.lessons.Delete(ctx, lessonID); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}

	s.logger.Info("Lesson deleted", zap.Int64("lesson_id", lessonID))
	return nil
}

func (s *LessonService) getLesson(ctx context.Context, lessonID int64) (*model.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, apperrors.NotFound("lesson", lessonID)
	}
	return lesson, nil
}

func appendNote(lesson *model.Lesson, line string) {
	if lesson.Notes == nil || *lesson.Notes == "" {
		lesson.Notes = &line
		return
	}
	combined := *lesson.Notes + "\n" + line
	lesson.Notes = &combined
}
