// Package testutil holds the fixtures shared by the tests of the other packages.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	logsvc "github.com/trezcool/shule/services/logger"
)

// Password satisfies the password policy.
const Password = "Pa$$w0rd!"

// NewLogger returns a silent logger that never reports to Rollbar.
func NewLogger() core.Logger {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator carrying every custom validation of the app.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	grading.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	schoolID, name, uname, email string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		SchoolID:  schoolID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSchool(t *testing.T, repo school.Repository, name string) school.School {
	t.Helper()

	s, err := repo.CreateSchool(context.Background(), school.School{Name: name, Initials: "TS", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return s
}

func CreateClass(t *testing.T, repo school.Repository, schoolID, name, academicYear string) school.Class {
	t.Helper()

	c, err := repo.CreateClass(context.Background(), school.Class{
		SchoolID:     schoolID,
		Name:         name,
		AcademicYear: academicYear,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

func CreateCourse(t *testing.T, repo school.Repository, classID, code string, credits int, teacherID string) school.Course {
	t.Helper()

	c, err := repo.CreateCourse(context.Background(), school.Course{
		ClassID:     classID,
		Title:       "Course " + code,
		Code:        code,
		CreditHours: credits,
		TeacherID:   teacherID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo school.Repository, studentID, classID, status string) school.Enrollment {
	t.Helper()

	e, err := repo.CreateEnrollment(context.Background(), school.Enrollment{
		StudentID:  studentID,
		ClassID:    classID,
		Status:     status,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

func FloatPtr(f float64) *float64 { return &f }
func StrPtr(s string) *string     { return &s }
