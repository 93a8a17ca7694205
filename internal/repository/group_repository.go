package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportclub/club_scheduler/internal/model"
	"github.com/sportclub/club_scheduler/internal/repository/base"
)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create создаёт новую группу
func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	schedule, err := marshalSchedule(group.Schedule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO groups (club_id, name, coach_id, capacity, schedule)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	q := base.QuerierFromContext(ctx, r.pool)
	err = q.QueryRow(
		ctx, query,
		group.ClubID,
		group.Name,
		group.CoachID,
		group.Capacity,
		schedule,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}

	return nil
}

// GetByID получает группу по ID вместе с шаблоном расписания
func (r *GroupRepository) GetByID(ctx context.Context, id int64) (*model.Group, error) {
	query := `
		SELECT id, club_id, name, coach_id, capacity, schedule, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	var (
		group    model.Group
		schedule []byte
	)

	q := base.QuerierFromContext(ctx, r.pool)
	err := q.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.ClubID,
		&group.Name,
		&group.CoachID,
		&group.Capacity,
		&schedule,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}

	if len(schedule) > 0 {
		var tmpl model.ScheduleTemplate
		if err := json.Unmarshal(schedule, &tmpl); err != nil {
			return nil, fmt.Errorf("unmarshal group schedule: %w", err)
		}
		group.Schedule = &tmpl
	}

	return &group, nil
}

// UpdateSchedule заменяет шаблон расписания группы
func (r *GroupRepository) UpdateSchedule(ctx context.Context, groupID int64, tmpl *model.ScheduleTemplate) error {
	schedule, err := marshalSchedule(tmpl)
	if err != nil {
		return err
	}

	query := `UPDATE groups SET schedule = $1, updated_at = now() WHERE id = $2`

	q := base.QuerierFromContext(ctx, r.pool)
	result, err := q.Exec(ctx, query, schedule, groupID)
	if err != nil {
		return fmt.Errorf("update group schedule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("group not found")
	}

	return nil
}

func marshalSchedule(tmpl *model.ScheduleTemplate) ([]byte, error) {
	if tmpl == nil {
		return nil, nil
	}

	data, err := json.Marshal(tmpl)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule template: %w", err)
	}

	return data, nil
}
