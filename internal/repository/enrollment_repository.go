package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentRepository reads course enrollments. Enrollment bookkeeping
// itself belongs to the course service.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// CountEnrolled counts the students enrolled in a course.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, courseID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM course_enrollments WHERE course_id = $1`, courseID).Scan(&n)
	return n, err
}

// ListEnrolledStudents lists the IDs of the students enrolled in a course.
func (r *EnrollmentRepository) ListEnrolledStudents(ctx context.Context, courseID int) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM course_enrollments
		 WHERE course_id = $1
		 ORDER BY student_id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Enroll adds a student to a course. Enrolling twice is a no-op.
func (r *EnrollmentRepository) Enroll(ctx context.Context, courseID, studentID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO course_enrollments (course_id, student_id)
		 VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`, courseID, studentID)
	return err
}
