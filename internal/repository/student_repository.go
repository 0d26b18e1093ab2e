package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/english-korat/ekls-api/internal/models"
)

// StudentRepository handles roster reads. Students are managed elsewhere;
// this service only reports quota impact on them.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.user_id, s.first_name, s.last_name, s.nickname_en, s.nickname_th,
       s.phone, s.created_at, s.updated_at`

// ListBySchedule returns the students enrolled in a schedule's group.
func (r *StudentRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s
	FROM students s
	JOIN group_members gm ON gm.student_id = s.id
	JOIN schedules sc ON sc.group_id = gm.group_id
	WHERE sc.id = $1
	ORDER BY s.first_name, s.last_name`, studentColumns)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list students for schedule: %w", err)
	}
	return students, nil
}
