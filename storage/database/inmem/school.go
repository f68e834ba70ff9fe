package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.ID = newID()
	repo.db.schools[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.schools[id]; ok {
		return *s, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schools := make([]school.School, 0, len(repo.db.schools))
	for _, s := range repo.db.schools {
		schools = append(schools, *s)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *schoolRepository) CreateClass(_ context.Context, c school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	repo.db.classes[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) GetClass(_ context.Context, id string) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return *c, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryClasses(_ context.Context, schoolID string) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]school.Class, 0)
	for _, c := range repo.db.classes {
		if schoolID == "" || c.SchoolID == schoolID {
			classes = append(classes, *c)
		}
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].AcademicYear != classes[j].AcademicYear {
			return classes[i].AcademicYear > classes[j].AcademicYear
		}
		return classes[i].Name < classes[j].Name
	})
	return classes, nil
}

func (repo *schoolRepository) CreateCourse(_ context.Context, c school.Course) (school.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = newID()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *schoolRepository) GetCourse(_ context.Context, id string) (school.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return school.Course{}, school.ErrCourseNotFound
}

func (repo *schoolRepository) QueryCourses(_ context.Context, classID string) ([]school.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]school.Course, 0)
	for _, c := range repo.db.courses {
		if classID == "" || c.ClassID == classID {
			courses = append(courses, *c)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *schoolRepository) CreateEnrollment(_ context.Context, e school.Enrollment) (school.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, enr := range repo.db.enrollments {
		if enr.StudentID == e.StudentID && enr.ClassID == e.ClassID {
			return school.Enrollment{}, school.ErrAlreadyEnrolled
		}
	}
	e.ID = newID()
	repo.db.enrollments[e.ID] = &e
	return e, nil
}

func (repo *schoolRepository) QueryStudentEnrollments(_ context.Context, studentID string) ([]school.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]school.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			enrollments = append(enrollments, *e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].EnrolledAt.Before(enrollments[j].EnrolledAt) })
	return enrollments, nil
}
