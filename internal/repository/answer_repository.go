package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panotify/exam-backend/internal/model"
)

const upsertAnswerSQL = `INSERT INTO student_answers (student_id, question_id, exam_id, answer_text, is_correct, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6)
	 ON CONFLICT (student_id, question_id) DO UPDATE
	 SET answer_text = EXCLUDED.answer_text,
	     is_correct = EXCLUDED.is_correct,
	     updated_at = EXCLUDED.updated_at`

// AnswerRepository handles student answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// SaveAnswer upserts a raw answer while the attempt row is share-locked in
// progress, so it cannot land after a concurrent finalize.
func (r *AnswerRepository) SaveAnswer(ctx context.Context, a *model.Answer) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var status model.AttemptStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM attempts
		 WHERE student_id = $1 AND exam_id = $2 AND status = $3
		 FOR SHARE`, a.StudentID, a.ExamID, model.AttemptStatusInProgress,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotInProgress
		}
		return err
	}

	if _, err := tx.Exec(ctx, upsertAnswerSQL,
		a.StudentID, a.QuestionID, a.ExamID, a.AnswerText, false, a.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListAnswers retrieves a student's recorded answers for an exam.
func (r *AnswerRepository) ListAnswers(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, question_id, exam_id, answer_text, is_correct, updated_at
		 FROM student_answers
		 WHERE student_id = $1 AND exam_id = $2`, studentID, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.StudentID, &a.QuestionID, &a.ExamID, &a.AnswerText, &a.IsCorrect, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.UpdatedAt = a.UpdatedAt.UTC()
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// CountAnswersByStudent returns the count of recorded answers for every
// student with at least one answer in the given exam.
func (r *AnswerRepository) CountAnswersByStudent(ctx context.Context, examID uuid.UUID) (map[int]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, COUNT(*)
		 FROM student_answers
		 WHERE exam_id = $1
		 GROUP BY student_id`,
		examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var sid, count int
		if err := rows.Scan(&sid, &count); err != nil {
			return nil, err
		}
		counts[sid] = count
	}
	return counts, rows.Err()
}
