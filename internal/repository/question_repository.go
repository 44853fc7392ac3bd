package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panotify/exam-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListQuestions retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, points, order_num, question_type,
		        options, correct_option_index, correct_answer
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q             model.Question
			options       []byte
			correctIndex  *int
			correctAnswer *string
		)
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Points, &q.OrderNum, &q.Type,
			&options, &correctIndex, &correctAnswer); err != nil {
			return nil, err
		}

		switch q.Type {
		case model.QuestionTypeMultipleChoice:
			key := &model.MultipleChoiceKey{}
			if err := json.Unmarshal(options, &key.Options); err != nil {
				return nil, fmt.Errorf("decode options of question %s: %w", q.ID, err)
			}
			if correctIndex != nil {
				key.CorrectOptionIndex = *correctIndex
			}
			q.MultipleChoice = key
		case model.QuestionTypeIdentification:
			key := &model.IdentificationKey{}
			if correctAnswer != nil {
				key.CorrectAnswer = *correctAnswer
			}
			q.Identification = key
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceQuestions deletes the exam's questions and inserts the new set in
// one transaction, refusing when any attempt exists.
func (r *QuestionRepository) ReplaceQuestions(ctx context.Context, examID uuid.UUID, questions []model.Question) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM exams WHERE id = $1 FOR UPDATE`, examID).Scan(&id); err != nil {
		return notFound(err)
	}

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attempts WHERE exam_id = $1)`, examID,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrHasAttempts
	}

	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}

	batch := &pgx.Batch{}
	for _, q := range questions {
		var (
			options       []byte
			correctIndex  *int
			correctAnswer *string
		)
		if q.MultipleChoice != nil {
			options, err = json.Marshal(q.MultipleChoice.Options)
			if err != nil {
				return fmt.Errorf("encode options: %w", err)
			}
			idx := q.MultipleChoice.CorrectOptionIndex
			correctIndex = &idx
		}
		if q.Identification != nil {
			ans := q.Identification.CorrectAnswer
			correctAnswer = &ans
		}
		batch.Queue(
			`INSERT INTO questions (id, exam_id, question_text, points, order_num, question_type,
			                        options, correct_option_index, correct_answer)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			q.ID, examID, q.Text, q.Points, q.OrderNum, q.Type, options, correctIndex, correctAnswer,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert questions: %w", err)
	}

	return tx.Commit(ctx)
}
