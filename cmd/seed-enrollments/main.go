package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/database"
	"github.com/panotify/exam-backend/internal/logger"
	"github.com/panotify/exam-backend/internal/repository"
)

// seed-enrollments enrolls a contiguous range of student IDs in a course.
func main() {
	var courseID, first, count int
	flag.IntVar(&courseID, "course", 1, "Course ID")
	flag.IntVar(&first, "first", 1, "First student ID")
	flag.IntVar(&count, "count", 50, "Number of students")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if courseID <= 0 || first <= 0 || count <= 0 {
		log.Fatal().Msg("course, first and count must be positive")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	enrollments := repository.NewEnrollmentRepository(pool)

	fmt.Printf("=== Enrolling %d students in course %d ===\n", count, courseID)

	successCount := 0
	for i := 0; i < count; i++ {
		studentID := first + i
		if err := enrollments.Enroll(ctx, courseID, studentID); err != nil {
			fmt.Printf("Error enrolling student %d: %v\n", studentID, err)
			continue
		}
		successCount++
		if (i+1)%10 == 0 {
			fmt.Printf("Enrolled %d students...\n", i+1)
		}
	}

	enrolled, err := enrollments.CountEnrolled(ctx, courseID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count enrollments")
	}
	fmt.Printf("\nSeed completed! Added %d/%d students; course %d now has %d enrolled.\n", successCount, count, courseID, enrolled)
}
