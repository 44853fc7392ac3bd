package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panotify/exam-backend/internal/model"
)

const examColumns = `id, title, course_id, instructor_id, duration_minutes, deadline, published, created_at, updated_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	if err := row.Scan(&e.ID, &e.Title, &e.CourseID, &e.InstructorID, &e.DurationMinutes,
		&e.Deadline, &e.Published, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Deadline = utcPtr(e.Deadline)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

// CreateExam inserts a new exam.
func (r *ExamRepository) CreateExam(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exams (`+examColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Title, e.CourseID, e.InstructorID, e.DurationMinutes,
		e.Deadline, e.Published, e.CreatedAt, e.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetExam retrieves an exam by its UUID.
func (r *ExamRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// ListExamsByCourse retrieves the exams of a course, newest first.
func (r *ExamRepository) ListExamsByCourse(ctx context.Context, courseID int, publishedOnly bool) ([]model.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams WHERE course_id = $1`
	if publishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}

// UpdateExam writes the editable fields unless the exam is published
// and already has attempts.
func (r *ExamRepository) UpdateExam(ctx context.Context, e *model.Exam) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET title = $2, duration_minutes = $3, deadline = $4, updated_at = $5
		 WHERE id = $1
		   AND (NOT published OR NOT EXISTS (SELECT 1 FROM attempts WHERE exam_id = $1))`,
		e.ID, e.Title, e.DurationMinutes, e.Deadline, e.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetExam(ctx, e.ID); err != nil {
		return err
	}
	return ErrHasAttempts
}

// SetPublished toggles the publish flag. The exam row is locked so a
// concurrent CreateAttempt cannot slip in between the check and the write.
func (r *ExamRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool, at time.Time) (*model.Exam, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := scanExam(tx.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 FOR UPDATE`, id)); err != nil {
		return nil, notFound(err)
	}

	if !published {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM attempts WHERE exam_id = $1)`, id,
		).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrHasAttempts
		}
	}

	e, err := scanExam(tx.QueryRow(ctx,
		`UPDATE exams SET published = $2, updated_at = $3
		 WHERE id = $1
		 RETURNING `+examColumns, id, published, at))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

// DeleteExam removes an exam. Questions, attempts and answers go with it
// through ON DELETE CASCADE.
func (r *ExamRepository) DeleteExam(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
