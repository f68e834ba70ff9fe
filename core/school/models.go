package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
)

// Enrollment statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDropped   = "dropped"
)

type School struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Initials  string    `json:"initials" db:"initials"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Class groups the students of a school for an academic year, which is the term of its courses.
type Class struct {
	ID           string    `json:"id" db:"id"`
	SchoolID     string    `json:"school_id" db:"school_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	AcademicYear string    `json:"academic_year" db:"academic_year"`
	Level        string    `json:"level" db:"level"`
	Department   string    `json:"department" db:"department"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
}

type Course struct {
	ID          string    `json:"id" db:"id"`
	ClassID     string    `json:"class_id" db:"class_id"`
	Title       string    `json:"title" db:"title"`
	Code        string    `json:"code" db:"code"`
	CreditHours int       `json:"credit_hours" db:"credit_hours"`
	TeacherID   string    `json:"teacher_id" db:"teacher_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type Enrollment struct {
	ID         string    `json:"id" db:"id"`
	StudentID  string    `json:"student_id" db:"student_id"`
	ClassID    string    `json:"class_id" db:"class_id"`
	Semester   string    `json:"semester" db:"semester"`
	Status     string    `json:"status" db:"status"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"` // UTC
}

// NewSchool contains information needed to register a school. GradingSystem defaults to the system scale.
type NewSchool struct {
	Name          string              `json:"name" validate:"required,notblank"`
	Initials      string              `json:"initials" validate:"omitempty,max=10,alphanum"`
	GradingSystem *grading.ScaleInput `json:"grading_system"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Initials = core.CleanString(ns.Initials)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.GradingSystem != nil {
		return ns.GradingSystem.Validate(validate)
	}
	return nil
}

type NewClass struct {
	SchoolID     string `json:"school_id" validate:"required"`
	Name         string `json:"name" validate:"required,notblank"`
	Description  string `json:"description"`
	AcademicYear string `json:"academic_year" validate:"required,notblank"`
	Level        string `json:"level"`
	Department   string `json:"department"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.SchoolID = core.CleanString(nc.SchoolID)
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	nc.Level = core.CleanString(nc.Level)
	nc.Department = core.CleanString(nc.Department)
	return validate.Struct(nc)
}

type NewCourse struct {
	ClassID     string `json:"class_id" validate:"required"`
	Title       string `json:"title" validate:"required,notblank"`
	Code        string `json:"code" validate:"required,notblank"`
	CreditHours int    `json:"credit_hours" validate:"required,gt=0"`
	TeacherID   string `json:"teacher_id"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.ClassID = core.CleanString(nc.ClassID)
	nc.Title = core.CleanString(nc.Title)
	nc.Code = core.CleanString(nc.Code)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Semester  string `json:"semester"`
	Status    string `json:"status" validate:"omitempty,oneof=active completed dropped"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.Semester = core.CleanString(ne.Semester)
	ne.Status = core.CleanString(ne.Status, true /* lower */)
	if ne.Status == "" {
		ne.Status = StatusActive
	}
	return validate.Struct(ne)
}
