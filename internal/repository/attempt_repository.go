package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panotify/exam-backend/internal/model"
)

const attemptColumns = `student_id, exam_id, status, started_at, submitted_at, total_score, max_score`

// AttemptRepository handles attempt (report) data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	if err := row.Scan(&a.StudentID, &a.ExamID, &a.Status, &a.StartedAt, &a.SubmittedAt,
		&a.TotalScore, &a.MaxScore); err != nil {
		return nil, err
	}
	a.StartedAt = a.StartedAt.UTC()
	a.SubmittedAt = utcPtr(a.SubmittedAt)
	return a, nil
}

func (r *AttemptRepository) list(ctx context.Context, query string, args ...any) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// CreateAttempt inserts an in-progress attempt. The exam row is share-locked
// so an unpublish cannot interleave, and the (student_id, exam_id) primary
// key keeps concurrent starts for the same pair down to one row.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var published bool
	if err := tx.QueryRow(ctx,
		`SELECT published FROM exams WHERE id = $1 FOR SHARE`, a.ExamID,
	).Scan(&published); err != nil {
		return notFound(err)
	}
	if !published {
		return ErrExamNotOpen
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO attempts (student_id, exam_id, status, started_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (student_id, exam_id) DO NOTHING`,
		a.StudentID, a.ExamID, model.AttemptStatusInProgress, a.StartedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}

	return tx.Commit(ctx)
}

// GetAttempt retrieves the attempt of a student for an exam.
func (r *AttemptRepository) GetAttempt(ctx context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE student_id = $1 AND exam_id = $2`, studentID, examID))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// ListAttemptsByExam retrieves every attempt of an exam, latest submission first.
func (r *AttemptRepository) ListAttemptsByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1
		 ORDER BY submitted_at DESC NULLS LAST, student_id`, examID)
}

// ListAttemptsByStudent retrieves all attempts of a student.
func (r *AttemptRepository) ListAttemptsByStudent(ctx context.Context, studentID int) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID)
}

// ListInProgressAttempts retrieves every attempt still in progress.
func (r *AttemptRepository) ListInProgressAttempts(ctx context.Context) ([]model.Attempt, error) {
	return r.list(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE status = $1
		 ORDER BY started_at`, model.AttemptStatusInProgress)
}

// CountAttempts counts the attempts of an exam regardless of status.
func (r *AttemptRepository) CountAttempts(ctx context.Context, examID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1`, examID).Scan(&n)
	return n, err
}

// FinalizeAttempt performs the in_progress to terminal transition as a
// conditional update and replaces the pair's answers with the graded ones in
// the same transaction. The update's row lock blocks concurrent saves, which
// take FOR SHARE on the attempt.
func (r *AttemptRepository) FinalizeAttempt(ctx context.Context, a *model.Attempt, answers []model.Answer) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET status = $3, submitted_at = $4, total_score = $5, max_score = $6
		 WHERE student_id = $1 AND exam_id = $2 AND status = $7`,
		a.StudentID, a.ExamID, a.Status, a.SubmittedAt, a.TotalScore, a.MaxScore,
		model.AttemptStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInProgress
	}

	// Answers saved after the grader read them are not part of the score.
	graded := make([]uuid.UUID, 0, len(answers))
	for _, ans := range answers {
		graded = append(graded, ans.QuestionID)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM student_answers
		 WHERE student_id = $1 AND exam_id = $2 AND NOT (question_id = ANY($3::uuid[]))`,
		a.StudentID, a.ExamID, graded,
	); err != nil {
		return fmt.Errorf("drop ungraded answers: %w", err)
	}

	if len(answers) > 0 {
		batch := &pgx.Batch{}
		for _, ans := range answers {
			batch.Queue(upsertAnswerSQL,
				ans.StudentID, ans.QuestionID, ans.ExamID, ans.AnswerText, ans.IsCorrect, ans.UpdatedAt)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert answers: %w", err)
		}
	}

	return tx.Commit(ctx)
}
