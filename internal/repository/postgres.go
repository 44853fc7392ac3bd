package repository

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	*ExamRepository
	*QuestionRepository
	*AttemptRepository
	*AnswerRepository
	*EnrollmentRepository
}

// NewPostgresStore wires the table repositories over one pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		ExamRepository:       NewExamRepository(pool),
		QuestionRepository:   NewQuestionRepository(pool),
		AttemptRepository:    NewAttemptRepository(pool),
		AnswerRepository:     NewAnswerRepository(pool),
		EnrollmentRepository: NewEnrollmentRepository(pool),
	}
}

var _ Store = (*PostgresStore)(nil)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// notFound maps pgx.ErrNoRows to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
