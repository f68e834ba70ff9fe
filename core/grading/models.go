package grading

import (
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

// GradeRecord is the raw score of a student in a course. There is at most one per (StudentID, CourseID).
type GradeRecord struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	Score     float64   `json:"score" db:"score"`
	GradedBy  string    `json:"graded_by" db:"graded_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Student is the part of a student account the engine needs.
type Student struct {
	ID       string `json:"id"`
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s Student) address() (mail.Address, bool) {
	if s.Email == "" {
		return mail.Address{}, false
	}
	return mail.Address{Name: s.Name, Address: s.Email}, true
}

// Course is a gradable course. CreditHours weighs it in GPA computations.
type Course struct {
	ID          string `json:"id"`
	ClassID     string `json:"class_id"`
	Title       string `json:"title"`
	Code        string `json:"code"`
	CreditHours int    `json:"credit_hours"`
	TeacherID   string `json:"teacher_id,omitempty"`
}

// Term identifies an academic term. Terms are ordered by Key.
type Term struct {
	Key     string `json:"key"`
	ClassID string `json:"class_id"`
	Level   string `json:"level,omitempty"`
}

// TermCourses lists the courses a student takes in a term.
type TermCourses struct {
	Term    Term
	Courses []Course
}

// CourseReport is one course line of a term report.
type CourseReport struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Code        string     `json:"code"`
	CreditHours int        `json:"credit_hours"`
	Score       *float64   `json:"score"`
	LetterGrade *string    `json:"letter_grade"`
	Remarks     *string    `json:"remarks"`
	GradePoints *float64   `json:"grade_points"` // credit weighted
	GradeID     *string    `json:"grade_id"`
	GradedAt    *time.Time `json:"graded_at"`
}

// TermReport aggregates the courses of a term. GPA is nil when no credit bearing course is graded.
type TermReport struct {
	Term         string         `json:"term"`
	Courses      []CourseReport `json:"courses"`
	TotalPoints  float64        `json:"total_points"`
	TotalCredits int            `json:"total_credits"`
	GPA          *float64       `json:"gpa"`

	points float64 // unrounded TotalPoints
}

// Report is a student's academic report.
type Report struct {
	Student       Student               `json:"student"`
	CurrentTerm   TermReport            `json:"current_term"`
	Terms         map[string]TermReport `json:"terms"`
	TotalPoints   float64               `json:"total_points"`
	TotalCredits  int                   `json:"total_credits"`
	CumulativeGPA *float64              `json:"cumulative_gpa"`
}

// GradeView is a GradeRecord evaluated against the current scale of the student's school.
type GradeView struct {
	GradeRecord
	CourseTitle string `json:"course_title"`
	CourseCode  string `json:"course_code"`
	Evaluation
}

// NewGrade contains the information needed to grade a student in a course.
type NewGrade struct {
	StudentID string   `json:"student_id" validate:"required,notblank"`
	CourseID  string   `json:"course_id" validate:"required,notblank"`
	Score     *float64 `json:"score" validate:"required,gte=0,lte=100"`
	GradedBy  string   `json:"-"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.CourseID = core.CleanString(ng.CourseID)
	return validate.Struct(ng)
}

// RuleInput is a grading rule as submitted by a client. Pointers tell missing keys apart from zero values.
type RuleInput struct {
	Grade   *string  `json:"grade" toml:"grade" validate:"required,notblank"`
	Min     *float64 `json:"min" toml:"min" validate:"required"`
	Max     *float64 `json:"max" toml:"max" validate:"required"`
	Points  *float64 `json:"points" toml:"points" validate:"omitempty,gte=0"`
	Remarks *string  `json:"remarks" toml:"remarks"`
}

// ScaleInput is a whole replacement scale.
type ScaleInput struct {
	Rules []RuleInput `json:"grading_system" toml:"rules" validate:"required,min=1,dive"`
}

// Validate checks every rule; the scale is rejected as a whole on the first invalid rule.
func (in *ScaleInput) Validate(validate *validator.Validate) error {
	for _, r := range in.Rules {
		if r.Grade != nil {
			*r.Grade = core.CleanString(*r.Grade)
		}
		if r.Remarks != nil {
			*r.Remarks = core.CleanString(*r.Remarks)
		}
	}
	return validate.Struct(in)
}

// Scale converts a validated input.
func (in ScaleInput) Scale() Scale {
	scale := make(Scale, 0, len(in.Rules))
	for _, r := range in.Rules {
		rule := Rule{Grade: *r.Grade, Min: *r.Min, Max: *r.Max, Points: r.Points}
		if r.Remarks != nil && *r.Remarks != "" {
			rule.Remarks = r.Remarks
		}
		scale = append(scale, rule)
	}
	return scale
}

// Input converts a scale back into its input form.
func (s Scale) Input() ScaleInput {
	in := ScaleInput{Rules: make([]RuleInput, 0, len(s))}
	for _, r := range s {
		r := r
		in.Rules = append(in.Rules, RuleInput{Grade: &r.Grade, Min: &r.Min, Max: &r.Max, Points: r.Points, Remarks: r.Remarks})
	}
	return in
}

// QueryFilter filters student grades.
type QueryFilter struct {
	StudentID string `query:"student_id"`
	CourseID  string `query:"course_id"`
}
