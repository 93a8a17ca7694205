package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/repository/base"
)

const lessonColumns = `id, group_id, planned_date, planned_start_time, actual_date, actual_start_time,
		duration_minutes, coach_id, status, location, notes, created_from_template, created_at, updated_at`

type LessonRepository struct {
	pool *pgxpool.Pool
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*model.Lesson, error) {
	var (
		lesson      model.Lesson
		plannedDate time.Time
		actualDate  *time.Time
	)

	err := row.Scan(
		&lesson.ID,
		&lesson.GroupID,
		&plannedDate,
		&lesson.PlannedStartTime,
		&actualDate,
		&lesson.ActualStartTime,
		&lesson.DurationMinutes,
		&lesson.CoachID,
		&lesson.Status,
		&lesson.Location,
		&lesson.Notes,
		&lesson.CreatedFromTemplate,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lesson.PlannedDate = model.DateOf(plannedDate)
	if actualDate != nil {
		d := model.DateOf(*actualDate)
		lesson.ActualDate = &d
	}

	return &lesson, nil
}

// Create создаёт новое занятие
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	query := `
		INSERT INTO lessons (group_id, planned_date, planned_start_time, duration_minutes,
			coach_id, status, location, notes, created_from_template)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	q := base.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(
		ctx, query,
		lesson.GroupID,
		lesson.PlannedDate.Time,
		lesson.PlannedStartTime,
		lesson.DurationMinutes,
		lesson.CoachID,
		lesson.Status,
		lesson.Location,
		lesson.Notes,
		lesson.CreatedFromTemplate,
	).Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}

	return nil
}

// GetByID получает занятие по ID
func (r *LessonRepository) GetByID(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	q := base.QuerierFromContext(ctx, r.pool)
	lesson, err := scanLesson(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// GetByIDForUpdate получает занятие по ID и блокирует его строку до конца
// транзакции. Блокировка сериализует проверку вместимости и выдачу позиций
// листа ожидания для одного занятия.
func (r *LessonRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 FOR UPDATE`

	q := base.QuerierFromContext(ctx, r.pool)
	lesson, err := scanLesson(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson for update: %w", err)
	}

	return lesson, nil
}

// ListByGroupAndRange получает занятия группы в диапазоне плановых дат
func (r *LessonRepository) ListByGroupAndRange(ctx context.Context, groupID int64, from, to model.Date) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE group_id = $1
		  AND planned_date >= $2
		  AND planned_date <= $3
		ORDER BY planned_date, planned_start_time
	`

	q := base.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, groupID, from.Time, to.Time)
	if err != nil {
		return nil, fmt.Errorf("get lessons by group: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows)
}

// ListByCoachAndRange получает занятия тренера в диапазоне дат с заданными статусами
func (r *LessonRepository) ListByCoachAndRange(ctx context.Context, coachID int64, from, to model.Date, statuses []model.LessonStatus) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE coach_id = $1
		  AND planned_date >= $2
		  AND planned_date <= $3
		  AND status = ANY($4)
		ORDER BY planned_date, planned_start_time
	`

	statusStrings := make([]string, 0, len(statuses))
	for _, st := range statuses {
		statusStrings = append(statusStrings, string(st))
	}

	q := base.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, coachID, from.Time, to.Time, statusStrings)
	if err != nil {
		return nil, fmt.Errorf("get lessons by coach: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows)
}

// LessonFilters фильтры для списка занятий
type LessonFilters struct {
	From    model.Date
	To      model.Date
	GroupID *int64
	CoachID *int64
	Status  *model.LessonStatus
}

// List получает занятия по фильтрам (диапазон дат обязателен)
func (r *LessonRepository) List(ctx context.Context, f LessonFilters) ([]*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE planned_date >= $1 AND planned_date <= $2`
	args := []any{f.From.Time, f.To.Time}

	if f.GroupID != nil {
		args = append(args, *f.GroupID)
		query += fmt.Sprintf(" AND group_id = $%d", len(args))
	}
	if f.CoachID != nil {
		args = append(args, *f.CoachID)
		query += fmt.Sprintf(" AND coach_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY planned_date, planned_start_time"

	q := base.QuerierFromContext(ctx, r.pool)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows)
}

// Update обновляет изменяемые поля занятия.
// planned_date и planned_start_time не обновляются - это исторический факт шаблона.
func (r *LessonRepository) Update(ctx context.Context, lesson *model.Lesson) error {
	query := `
		UPDATE lessons
		SET actual_date = $1,
		    actual_start_time = $2,
		    duration_minutes = $3,
		    coach_id = $4,
		    status = $5,
		    location = $6,
		    notes = $7,
		    updated_at = now()
		WHERE id = $8
	`

	var actualDate *time.Time
	if lesson.ActualDate != nil {
		actualDate = &lesson.ActualDate.Time
	}

	q := base.QuerierFromContext(ctx, r.pool)
	result, err := q.Exec(
		ctx, query,
		actualDate,
		lesson.ActualStartTime,
		lesson.DurationMinutes,
		lesson.CoachID,
		lesson.Status,
		lesson.Location,
		lesson.Notes,
		lesson.ID,
	)
	if err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("lesson not found")
	}

	return nil
}

// Delete удаляет занятие
func (r *LessonRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM lessons WHERE id = $1`

	q := base.QuerierFromContext(ctx, r.pool)
	result, err := q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("lesson not found")
	}

	return nil
}

func collectLessons(rows pgx.Rows) ([]*model.Lesson, error) {
	var lessons []*model.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}

	return lessons, rows.Err()
}
