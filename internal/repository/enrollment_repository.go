package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sportclub/club_scheduler/internal/repository/base"
)

// EnrollmentRepository проверка абонементов. Управление абонементами живёт
// в другом сервисе, здесь только чтение для гейта записи на занятия.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// HasActiveEnrollment проверяет, есть ли у студента действующий абонемент в клубе
func (r *EnrollmentRepository) HasActiveEnrollment(ctx context.Context, studentID, clubID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM student_enrollments
			WHERE student_id = $1 AND club_id = $2 AND status IN ('active', 'new')
		)
	`

	q := base.QuerierFromContext(ctx, r.pool)
	var exists bool
	if err := q.QueryRow(ctx, query, studentID, clubID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}

	return exists, nil
}
