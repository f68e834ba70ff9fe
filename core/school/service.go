package school

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound          = errors.New("school not found")
	ErrClassNotFound     = errors.New("class not found")
	ErrCourseNotFound    = errors.New("course not found")
	ErrAlreadyEnrolled   = errors.New("student already enrolled in this class")
	ErrTeacherNotStaff   = errors.New("teacher must be an active staff member of the school")
	ErrStudentNotStudent = errors.New("student must be an active student of the school")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, s School) (School, error)
		// GetSchool returns ErrNotFound for unknown schools.
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context) ([]School, error)

		CreateClass(ctx context.Context, c Class) (Class, error)
		// GetClass returns ErrClassNotFound for unknown classes.
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, schoolID string) ([]Class, error)

		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetCourse returns ErrCourseNotFound for unknown courses.
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, classID string) ([]Course, error)

		// CreateEnrollment returns ErrAlreadyEnrolled when the student is already in the class.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		QueryStudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	}

	Service struct {
		repo   Repository
		users  user.Repository
		scales grading.ScaleRepository
	}
)

func NewService(repo Repository, users user.Repository, scales grading.ScaleRepository) *Service {
	return &Service{repo: repo, users: users, scales: scales}
}

// Register creates a school. Its grading scale is saved when provided, the system default applies otherwise.
// `ns` must have been validated.
func (svc *Service) Register(ctx context.Context, ns NewSchool) (School, error) {
	initials := ns.Initials
	if initials == "" {
		initials = generateInitials(ns.Name)
	}
	s, err := svc.repo.CreateSchool(ctx, School{
		Name:      ns.Name,
		Initials:  strings.ToUpper(initials),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return School{}, pkgerrors.Wrap(err, "creating school")
	}
	if ns.GradingSystem != nil {
		if err = svc.scales.ReplaceScale(ctx, s.ID, ns.GradingSystem.Scale()); err != nil {
			return School{}, pkgerrors.Wrap(err, "saving grading scale")
		}
	}
	return s, nil
}

func (svc *Service) Get(ctx context.Context, id string) (School, error) {
	s, err := svc.repo.GetSchool(ctx, id)
	if err == ErrNotFound {
		return School{}, core.NewNotFoundError(err)
	}
	return s, err
}

func (svc *Service) Query(ctx context.Context) ([]School, error) {
	return svc.repo.QuerySchools(ctx)
}

// CreateClass creates a class in an existing school. `nc` must have been validated.
func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	if _, err := svc.repo.GetSchool(ctx, nc.SchoolID); err != nil {
		if err == ErrNotFound {
			return Class{}, core.NewValidationError(err, core.FieldError{Field: "school_id", Error: err.Error()})
		}
		return Class{}, pkgerrors.Wrap(err, "getting school")
	}
	return svc.repo.CreateClass(ctx, Class{
		SchoolID:     nc.SchoolID,
		Name:         nc.Name,
		Description:  nc.Description,
		AcademicYear: nc.AcademicYear,
		Level:        nc.Level,
		Department:   nc.Department,
		CreatedAt:    time.Now().UTC(),
	})
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	c, err := svc.repo.GetClass(ctx, id)
	if err == ErrClassNotFound {
		return Class{}, core.NewNotFoundError(err)
	}
	return c, err
}

func (svc *Service) QueryClasses(ctx context.Context, schoolID string) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, schoolID)
}

// CreateCourse creates a course in an existing class. The teacher, when set, must be staff of the class's school.
// `nc` must have been validated.
func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	class, err := svc.repo.GetClass(ctx, nc.ClassID)
	if err != nil {
		if err == ErrClassNotFound {
			return Course{}, core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
		}
		return Course{}, pkgerrors.Wrap(err, "getting class")
	}
	if nc.TeacherID != "" {
		if err = svc.checkMember(ctx, nc.TeacherID, class.SchoolID, user.RoleStaff, ErrTeacherNotStaff, "teacher_id"); err != nil {
			return Course{}, err
		}
	}
	return svc.repo.CreateCourse(ctx, Course{
		ClassID:     nc.ClassID,
		Title:       nc.Title,
		Code:        strings.ToUpper(nc.Code),
		CreditHours: nc.CreditHours,
		TeacherID:   nc.TeacherID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err == ErrCourseNotFound {
		return Course{}, core.NewNotFoundError(err)
	}
	return c, err
}

func (svc *Service) QueryCourses(ctx context.Context, classID string) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, classID)
}

// Enroll adds a student of the class's school to the class. `ne` must have been validated.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	class, err := svc.repo.GetClass(ctx, ne.ClassID)
	if err != nil {
		if err == ErrClassNotFound {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
		}
		return Enrollment{}, pkgerrors.Wrap(err, "getting class")
	}
	if err = svc.checkMember(ctx, ne.StudentID, class.SchoolID, user.RoleStudent, ErrStudentNotStudent, "student_id"); err != nil {
		return Enrollment{}, err
	}
	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:  ne.StudentID,
		ClassID:    ne.ClassID,
		Semester:   ne.Semester,
		Status:     ne.Status,
		EnrolledAt: time.Now().UTC(),
	})
	if err == ErrAlreadyEnrolled {
		return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
	}
	return e, err
}

func (svc *Service) StudentEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryStudentEnrollments(ctx, studentID)
}

// checkMember checks that userID is an active user of the school holding role.
func (svc *Service) checkMember(ctx context.Context, userID, schoolID, role string, failure error, field string) error {
	usr, err := svc.users.GetUserByID(ctx, userID)
	if err != nil && err != user.ErrNotFound {
		return pkgerrors.Wrap(err, "getting user")
	}
	if err == user.ErrNotFound || !usr.IsActive || usr.SchoolID != schoolID || !usr.HasRole(role) {
		return core.NewValidationError(failure, core.FieldError{Field: field, Error: failure.Error()})
	}
	return nil
}

// generateInitials returns the first letter of each word of name: "Green Hills Academy" -> "GHA".
func generateInitials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		b.WriteRune(r[0])
		if b.Len() >= 10 {
			break
		}
	}
	return b.String()
}
