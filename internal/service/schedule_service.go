package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sportclub/club_scheduler/internal/apperrors"
	"github.com/sportclub/club_scheduler/internal/holidays"
	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/repository/base"
)

// MaxGenerationRangeDays максимальный период генерации занятий
const MaxGenerationRangeDays = 180

type ScheduleService struct {
	tx       base.Transactor
	groups   GroupStore
	lessons  LessonStore
	holidays holidays.Calendar
	logger   *zap.Logger
}

func NewScheduleService(
	tx base.Transactor,
	groups GroupStore,
	lessons LessonStore,
	calendar holidays.Calendar,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		tx:       tx,
		groups:   groups,
		lessons:  lessons,
		holidays: calendar,
		logger:   logger,
	}
}

// GenerateRequest параметры генерации занятий из шаблона
type GenerateRequest struct {
	StartDate         model.Date
	EndDate           model.Date
	OverwriteExisting bool
	ExcludeHolidays   bool
}

// GenerateResult счётчики генерации для административного интерфейса
type GenerateResult struct {
	Generated   int `json:"generated"`
	Skipped     int `json:"skipped"`
	Overwritten int `json:"overwritten"`
}

// RegenerateResult счётчики перегенерации
type RegenerateResult struct {
	Generated int `json:"generated"`
	Preserved int `json:"preserved"`
}

// Generate разворачивает шаблон группы в занятия на диапазоне дат.
// Повторный вызов с overwrite=false идемпотентен: все слоты будут посчитаны
// как пропущенные. Все изменения применяются в одной транзакции.
func (s *ScheduleService) Generate(ctx context.Context, groupID int64, req GenerateRequest) (*GenerateResult, error) {
	group, err := s.loadGroupWithTemplate(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if err := validateGenerationPeriod(group.Schedule, req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	var result GenerateResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		r, err := s.generate(ctx, group, req)
		if err != nil {
			return err
		}
		result = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lessons generated",
		zap.Int64("group_id", groupID),
		zap.String("start_date", req.StartDate.String()),
		zap.String("end_date", req.EndDate.String()),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("overwritten", result.Overwritten),
	)

	return &result, nil
}

// generate выполняет проход генерации. Вызывается только внутри транзакции.
func (s *ScheduleService) generate(ctx context.Context, group *model.Group, req GenerateRequest) (*GenerateResult, error) {
	existing, err := s.lessons.ListByGroupAndRange(ctx, group.ID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("get existing lessons: %w", err)
	}

	existingByKey := make(map[string]*model.Lesson, len(existing))
	for _, lesson := range existing {
		existingByKey[lessonKey(lesson.PlannedDate, lesson.PlannedStartTime)] = lesson
	}

	var result GenerateResult
	var toCreate []*model.Lesson

	for d := req.StartDate; !d.After(req.EndDate.Time); d = d.AddDays(1) {
		for _, slot := range group.Schedule.WeeklyPattern.SlotsFor(d.Weekday()) {
			// Праздник проверяется на каждый слот, до поиска существующего занятия
			if req.ExcludeHolidays {
				if _, ok := s.holidays.IsHoliday(d); ok {
					result.Skipped++
					continue
				}
			}

			if found, ok := existingByKey[lessonKey(d, slot.Time)]; ok {
				if !req.OverwriteExisting {
					result.Skipped++
					continue
				}
				if err := s.lessons.Delete(ctx, found.ID); err != nil {
					return nil, fmt.Errorf("delete overwritten lesson: %w", err)
				}
				result.Overwritten++
			}

			toCreate = append(toCreate, &model.Lesson{
				GroupID:             group.ID,
				PlannedDate:         d,
				PlannedStartTime:    slot.Time,
				DurationMinutes:     slot.DurationMinutes,
				CoachID:             group.CoachID,
				Status:              model.LessonStatusScheduled,
				CreatedFromTemplate: true,
			})
		}
	}

	// Сохраняем все созданные занятия одним батчем в конце прохода
	for _, lesson := range toCreate {
		if err := s.lessons.Create(ctx, lesson); err != nil {
			return nil, fmt.Errorf("create lesson: %w", err)
		}
	}
	result.Generated = len(toCreate)

	return &result, nil
}

// Regenerate перегенерирует занятия диапазона по текущему шаблону.
// При preserveModifications=true занятия с ручными правками (смена статуса,
// перенос, ручное создание) не трогаются, их слоты остаются занятыми.
func (s *ScheduleService) Regenerate(ctx context.Context, groupID int64, start, end model.Date, preserveModifications bool) (*RegenerateResult, error) {
	group, err := s.loadGroupWithTemplate(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if err := validateGenerationPeriod(group.Schedule, start, end); err != nil {
		return nil, err
	}

	var result RegenerateResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.lessons.ListByGroupAndRange(ctx, groupID, start, end)
		if err != nil {
			return fmt.Errorf("get existing lessons: %w", err)
		}

		preserved := 0
		for _, lesson := range existing {
			if preserveModifications && isModified(lesson) {
				preserved++
				continue
			}
			if err := s.lessons.Delete(ctx, lesson.ID); err != nil {
				return fmt.Errorf("delete template lesson: %w", err)
			}
		}

		genResult, err := s.generate(ctx, group, GenerateRequest{
			StartDate:         start,
			EndDate:           end,
			OverwriteExisting: false,
			ExcludeHolidays:   true,
		})
		if err != nil {
			return err
		}

		result = RegenerateResult{Generated: genResult.Generated, Preserved: preserved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Lessons regenerated",
		zap.Int64("group_id", groupID),
		zap.String("start_date", start.String()),
		zap.String("end_date", end.String()),
		zap.Int("generated", result.Generated),
		zap.Int("preserved", result.Preserved),
	)

	return &result, nil
}

// isModified занятие считается изменённым, если его трогали руками:
// сменили статус, перенесли либо создали не из шаблона
func isModified(l *model.Lesson) bool {
	return l.Status != model.LessonStatusScheduled ||
		l.ActualDate != nil ||
		l.ActualStartTime != nil ||
		!l.CreatedFromTemplate
}

func lessonKey(d model.Date, startTime string) string {
	return d.String() + " " + startTime
}

func (s *ScheduleService) loadGroupWithTemplate(ctx context.Context, groupID int64) (*model.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, apperrors.NotFound("group", groupID)
	}
	if group.Schedule == nil {
		return nil, apperrors.BusinessRulef("group %d has no schedule template", groupID)
	}
	if err := group.Schedule.Validate(); err != nil {
		return nil, err
	}
	return group, nil
}

func validateGenerationPeriod(tmpl *model.ScheduleTemplate, start, end model.Date) error {
	if !end.After(start.Time) {
		return apperrors.Validationf("end_date %s must be after start_date %s", end, start)
	}
	if start.DaysUntil(end) > MaxGenerationRangeDays {
		return apperrors.Validationf("cannot generate lessons for more than %d days", MaxGenerationRangeDays)
	}
	if start.Before(tmpl.ValidFrom.Time) {
		return apperrors.Validationf(
			"generation start date %s is before template valid_from %s", start, tmpl.ValidFrom,
		)
	}
	if end.After(tmpl.ValidUntil.Time) {
		return apperrors.Validationf(
			"generation end date %s is after template valid_until %s", end, tmpl.ValidUntil,
		)
	}
	return nil
}

// ConflictLesson участник пересечения в расписании тренера
type ConflictLesson struct {
	LessonID        int64  `json:"lesson_id"`
	GroupID         int64  `json:"group_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Conflict пара занятий тренера, пересекающихся по времени в один день
type Conflict struct {
	Date   model.Date     `json:"date"`
	First  ConflictLesson `json:"first"`
	Second ConflictLesson `json:"second"`
}

// CoachConflicts находит пересечения в расписании тренера. Чисто
// информационная проверка, генерацию она не блокирует. Сравнение идёт по
// оперативным дате и времени, поэтому перенесённые занятия учитываются
// на новом месте.
func (s *ScheduleService) CoachConflicts(ctx context.Context, coachID int64, from, to model.Date) ([]Conflict, error) {
	if !to.After(from.Time) && !to.Equal(from.Time) {
		return nil, apperrors.Validationf("end_date %s must not be before start_date %s", to, from)
	}

	lessons, err := s.lessons.ListByCoachAndRange(ctx, coachID, from, to,
		[]model.LessonStatus{model.LessonStatusScheduled, model.LessonStatusRescheduled})
	if err != nil {
		return nil, fmt.Errorf("get coach lessons: %w", err)
	}

	byDate := make(map[string][]*model.Lesson)
	for _, lesson := range lessons {
		key := lesson.EffectiveDate().String()
		byDate[key] = append(byDate[key], lesson)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var conflicts []Conflict
	for _, dateKey := range dates {
		day := byDate[dateKey]
		sort.Slice(day, func(i, j int) bool {
			return startMinutes(day[i]) < startMinutes(day[j])
		})

		for i := 0; i < len(day); i++ {
			for j := i + 1; j < len(day); j++ {
				if startMinutes(day[j]) < startMinutes(day[i])+day[i].DurationMinutes {
					conflicts = append(conflicts, Conflict{
						Date:   day[i].EffectiveDate(),
						First:  conflictLesson(day[i]),
						Second: conflictLesson(day[j]),
					})
				}
			}
		}
	}

	return conflicts, nil
}

func startMinutes(l *model.Lesson) int {
	hour, minute, _ := model.ParseTimeOfDay(l.EffectiveStartTime())
	return hour*60 + minute
}

func conflictLesson(l *model.Lesson) ConflictLesson {
	return ConflictLesson{
		LessonID:        l.ID,
		GroupID:         l.GroupID,
		StartTime:       l.EffectiveStartTime(),
		DurationMinutes: l.DurationMinutes,
	}
}

// GetTemplate возвращает шаблон расписания группы
func (s *ScheduleService) GetTemplate(ctx context.Context, groupID int64) (*model.ScheduleTemplate, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, apperrors.NotFound("group", groupID)
	}
	if group.Schedule == nil {
		return nil, apperrors.NotFound("schedule template for group", groupID)
	}
	return group.Schedule, nil
}

// UpdateTemplate заменяет шаблон расписания группы целиком
func (s *ScheduleService) UpdateTemplate(ctx context.Context, groupID int64, tmpl *model.ScheduleTemplate) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return apperrors.NotFound("group", groupID)
	}

	if err := s.groups.UpdateSchedule(ctx, groupID, tmpl); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}

	s.logger.Info("Schedule template updated", zap.Int64("group_id", groupID))
	return nil
}

// TemplatePatch частичное обновление шаблона
type TemplatePatch struct {
	WeeklyPattern *model.WeeklyPattern
	ValidFrom     *model.Date
	ValidUntil    *model.Date
	Timezone      *string
}

// PatchTemplate правит шаблон по полям, не затрагивая остальные
func (s *ScheduleService) PatchTemplate(ctx context.Context, groupID int64, patch TemplatePatch) (*model.ScheduleTemplate, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if group == nil {
		return nil, apperrors.NotFound("group", groupID)
	}
	if group.Schedule == nil {
		return nil, apperrors.BusinessRulef("group %d has no schedule template to patch", groupID)
	}

	tmpl := *group.Schedule
	if patch.WeeklyPattern != nil {
		tmpl.WeeklyPattern = *patch.WeeklyPattern
	}
	if patch.ValidFrom != nil {
		tmpl.ValidFrom = *patch.ValidFrom
	}
	if patch.ValidUntil != nil {
		tmpl.ValidUntil = *patch.ValidUntil
	}
	if patch.Timezone != nil {
		tmpl.Timezone = *patch.Timezone
	}

	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.groups.UpdateSchedule(ctx, groupID, &tmpl); err != nil {
		return nil, fmt.Errorf("update schedule: %w", err)
	}

	s.logger.Info("Schedule template patched", zap.Int64("group_id", groupID))
	return &tmpl, nil
}
