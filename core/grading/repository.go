package grading

import (
	"context"
	"errors"
)

var (
	// errors
	ErrScaleNotFound   = errors.New("grading scale not found")
	ErrGradeNotFound   = errors.New("grade not found")
	ErrSchoolNotFound  = errors.New("school not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrNoEnrollment    = errors.New("student is not enrolled in any class")
	ErrNotAssigned     = errors.New("course not assigned to this grader")
	ErrInvalidScale    = errors.New("each grading rule must have a grade, min and max, with min <= max")
)

type (
	// ScaleRepository stores the current grading scale of each school.
	ScaleRepository interface {
		// GetScale returns ErrScaleNotFound when the school has no scale of its own.
		GetScale(ctx context.Context, schoolID string) (Scale, error)
		// ReplaceScale swaps the whole scale of a school atomically.
		ReplaceScale(ctx context.Context, schoolID string, scale Scale) error
	}

	// GradeRepository stores grade records.
	GradeRepository interface {
		// GetGrade returns ErrGradeNotFound when the student has no grade for the course.
		GetGrade(ctx context.Context, studentID, courseID string) (GradeRecord, error)
		// UpsertGrade creates the record of (StudentID, CourseID) or updates its score, grader and UpdatedAt.
		// Concurrent calls for the same key are serialized.
		UpsertGrade(ctx context.Context, rec GradeRecord) (GradeRecord, error)
		QueryStudentGrades(ctx context.Context, studentID string) ([]GradeRecord, error)
	}

	// Directory gives access to the schools, students, courses and enrollments the engine depends on.
	Directory interface {
		SchoolExists(ctx context.Context, schoolID string) (bool, error)
		// GetStudent returns ErrStudentNotFound for unknown or non-student users.
		GetStudent(ctx context.Context, studentID string) (Student, error)
		// GetCourse returns ErrCourseNotFound for unknown courses.
		GetCourse(ctx context.Context, courseID string) (Course, error)
		// StudentTerms lists the terms a student is enrolled in with their courses, ordered by term key.
		StudentTerms(ctx context.Context, studentID string) ([]TermCourses, error)
		// CanGrade reports whether graderID may grade courseID.
		CanGrade(ctx context.Context, graderID, courseID string) (bool, error)
	}

	// AuditRecorder keeps track of grading actions. Recording must never fail the action.
	AuditRecorder interface {
		Record(ctx context.Context, userID, action, details string)
	}
)
