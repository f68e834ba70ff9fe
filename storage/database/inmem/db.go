// Package inmemdb provides map backed repositories, used by tests and the in-memory dev mode.
package inmemdb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		user   *userTable
		school *schoolTable
		scale  *scaleTable
		grade  *gradeTable
		audit  *auditTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	schoolTable struct {
		sync.RWMutex
		schools     map[string]*school.School
		classes     map[string]*school.Class
		courses     map[string]*school.Course
		enrollments map[string]*school.Enrollment
	}

	scaleTable struct {
		sync.RWMutex
		table map[string]grading.Scale // {schoolID: scale}
	}

	gradeKey struct {
		studentID string
		courseID  string
	}

	gradeTable struct {
		sync.RWMutex
		table map[gradeKey]*grading.GradeRecord
	}

	auditTable struct {
		sync.RWMutex
		entries []audit.Entry
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		school: &schoolTable{
			schools:     make(map[string]*school.School),
			classes:     make(map[string]*school.Class),
			courses:     make(map[string]*school.Course),
			enrollments: make(map[string]*school.Enrollment),
		},
		scale: &scaleTable{table: make(map[string]grading.Scale)},
		grade: &gradeTable{table: make(map[gradeKey]*grading.GradeRecord)},
		audit: &auditTable{},
	}
}

func newID() string {
	return uuid.New().String()
}
