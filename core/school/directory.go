package school

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/user"
)

// Directory exposes schools, courses, enrollments and students to the grading engine.
type Directory struct {
	repo  Repository
	users user.Repository
}

var _ grading.Directory = (*Directory)(nil)

func NewDirectory(repo Repository, users user.Repository) *Directory {
	return &Directory{repo: repo, users: users}
}

func (d *Directory) SchoolExists(ctx context.Context, schoolID string) (bool, error) {
	if _, err := d.repo.GetSchool(ctx, schoolID); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting school")
	}
	return true, nil
}

func (d *Directory) GetStudent(ctx context.Context, studentID string) (grading.Student, error) {
	usr, err := d.users.GetUserByID(ctx, studentID)
	if err != nil {
		if err == user.ErrNotFound {
			return grading.Student{}, grading.ErrStudentNotFound
		}
		return grading.Student{}, errors.Wrap(err, "getting user")
	}
	if !usr.IsStudent() {
		return grading.Student{}, grading.ErrStudentNotFound
	}
	return grading.Student{
		ID:       usr.ID,
		SchoolID: usr.SchoolID,
		Name:     usr.Name,
		Username: usr.Username,
		Email:    usr.Email,
	}, nil
}

func (d *Directory) GetCourse(ctx context.Context, courseID string) (grading.Course, error) {
	c, err := d.repo.GetCourse(ctx, courseID)
	if err != nil {
		if err == ErrCourseNotFound {
			return grading.Course{}, grading.ErrCourseNotFound
		}
		return grading.Course{}, errors.Wrap(err, "getting course")
	}
	return toGradingCourse(c), nil
}

// StudentTerms lists the classes a student is enrolled in (dropped ones excepted) with their courses.
// The academic year of a class is its term.
func (d *Directory) StudentTerms(ctx context.Context, studentID string) ([]grading.TermCourses, error) {
	enrollments, err := d.repo.QueryStudentEnrollments(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	terms := make([]grading.TermCourses, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Status == StatusDropped {
			continue
		}
		class, err := d.repo.GetClass(ctx, e.ClassID)
		if err != nil {
			return nil, errors.Wrapf(err, "getting class %s", e.ClassID)
		}
		courses, err := d.repo.QueryCourses(ctx, class.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "querying courses of class %s", class.ID)
		}
		tc := grading.TermCourses{
			Term:    grading.Term{Key: class.AcademicYear, ClassID: class.ID, Level: class.Level},
			Courses: make([]grading.Course, 0, len(courses)),
		}
		for _, c := range courses {
			tc.Courses = append(tc.Courses, toGradingCourse(c))
		}
		terms = append(terms, tc)
	}
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Term.Key < terms[j].Term.Key })
	return terms, nil
}

// CanGrade only lets the active staff member assigned to a course grade it.
func (d *Directory) CanGrade(ctx context.Context, graderID, courseID string) (bool, error) {
	if graderID == "" {
		return false, nil
	}
	c, err := d.repo.GetCourse(ctx, courseID)
	if err != nil {
		if err == ErrCourseNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting course")
	}
	if c.TeacherID != graderID {
		return false, nil
	}
	grader, err := d.users.GetUserByID(ctx, graderID)
	if err != nil {
		if err == user.ErrNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting grader")
	}
	return grader.IsActive && grader.IsStaff(), nil
}

func toGradingCourse(c Course) grading.Course {
	return grading.Course{
		ID:          c.ID,
		ClassID:     c.ClassID,
		Title:       c.Title,
		Code:        c.Code,
		CreditHours: c.CreditHours,
		TeacherID:   c.TeacherID,
	}
}
