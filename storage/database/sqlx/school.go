package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type courseRow struct {
	ID          string      `db:"id"`
	ClassID     string      `db:"class_id"`
	Title       string      `db:"title"`
	Code        string      `db:"code"`
	CreditHours int         `db:"credit_hours"`
	TeacherID   null.String `db:"teacher_id"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (row courseRow) course() school.Course {
	return school.Course{
		ID:          row.ID,
		ClassID:     row.ClassID,
		Title:       row.Title,
		Code:        row.Code,
		CreditHours: row.CreditHours,
		TeacherID:   row.TeacherID.String,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type schoolRepository struct {
	db core.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db core.DB) school.Repository {
	return &schoolRepository{db: db}
}

// get selects one row into dest, returning notFound when there is none.
func (repo *schoolRepository) get(ctx context.Context, dest interface{}, notFound error, q string, args ...interface{}) error {
	if err := repo.db.GetContext(ctx, dest, repo.db.Rebind(q), args...); err != nil {
		if err == sql.ErrNoRows {
			return notFound
		}
		return errors.Wrap(err, "selecting row")
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	s.ID = uuid.New().String()
	s.CreatedAt = s.CreatedAt.UTC()
	q := `INSERT INTO schools (id, name, initials, created_at) VALUES (?, ?, ?, ?)`
	if _, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), s.ID, s.Name, s.Initials, s.CreatedAt); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return s, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var s school.School
	err := repo.get(ctx, &s, school.ErrNotFound, `SELECT id, name, initials, created_at FROM schools WHERE id = ?`, id)
	return s, err
}

func (repo *schoolRepository) QuerySchools(ctx context.Context) ([]school.School, error) {
	schools := make([]school.School, 0)
	err := repo.db.SelectContext(ctx, &schools, `SELECT id, name, initials, created_at FROM schools ORDER BY name`)
	return schools, errors.Wrap(err, "selecting schools")
}

const classColumns = `id, school_id, name, description, academic_year, level, department, created_at`

func (repo *schoolRepository) CreateClass(ctx context.Context, c school.Class) (school.Class, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = c.CreatedAt.UTC()
	q := `INSERT INTO classes (` + classColumns + `)
		VALUES (:id, :school_id, :name, :description, :academic_year, :level, :department, :created_at)`
	if _, err := namedExec(ctx, repo.db, q, c); err != nil {
		return school.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo *schoolRepository) GetClass(ctx context.Context, id string) (school.Class, error) {
	var c school.Class
	err := repo.get(ctx, &c, school.ErrClassNotFound, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id)
	return c, err
}

func (repo *schoolRepository) QueryClasses(ctx context.Context, schoolID string) ([]school.Class, error) {
	q := `SELECT ` + classColumns + ` FROM classes`
	var args []interface{}
	if schoolID != "" {
		q += ` WHERE school_id = ?`
		args = append(args, schoolID)
	}
	q += ` ORDER BY academic_year DESC, name`

	classes := make([]school.Class, 0)
	err := repo.db.SelectContext(ctx, &classes, repo.db.Rebind(q), args...)
	return classes, errors.Wrap(err, "selecting classes")
}

const courseColumns = `id, class_id, title, code, credit_hours, teacher_id, created_at`

func (repo *schoolRepository) CreateCourse(ctx context.Context, c school.Course) (school.Course, error) {
	c.ID = uuid.New().String()
	c.CreatedAt = c.CreatedAt.UTC()
	q := `INSERT INTO courses (` + courseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(q),
		c.ID, c.ClassID, c.Title, c.Code, c.CreditHours, null.NewString(c.TeacherID, c.TeacherID != ""), c.CreatedAt)
	if err != nil {
		return school.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *schoolRepository) GetCourse(ctx context.Context, id string) (school.Course, error) {
	var row courseRow
	if err := repo.get(ctx, &row, school.ErrCourseNotFound, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id); err != nil {
		return school.Course{}, err
	}
	return row.course(), nil
}

func (repo *schoolRepository) QueryCourses(ctx context.Context, classID string) ([]school.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses`
	var args []interface{}
	if classID != "" {
		q += ` WHERE class_id = ?`
		args = append(args, classID)
	}
	q += ` ORDER BY code`

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]school.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

const enrollmentColumns = `id, student_id, class_id, semester, status, enrolled_at`

func (repo *schoolRepository) CreateEnrollment(ctx context.Context, e school.Enrollment) (school.Enrollment, error) {
	e.ID = uuid.New().String()
	e.EnrolledAt = e.EnrolledAt.UTC()
	q := `INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES (:id, :student_id, :class_id, :semester, :status, :enrolled_at)
		ON CONFLICT (student_id, class_id) DO NOTHING`
	res, err := namedExec(ctx, repo.db, q, e)
	if err != nil {
		return school.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return school.Enrollment{}, school.ErrAlreadyEnrolled
	}
	return e, nil
}

func (repo *schoolRepository) QueryStudentEnrollments(ctx context.Context, studentID string) ([]school.Enrollment, error) {
	enrollments := make([]school.Enrollment, 0)
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = ? ORDER BY enrolled_at`
	err := repo.db.SelectContext(ctx, &enrollments, repo.db.Rebind(q), studentID)
	return enrollments, errors.Wrap(err, "selecting enrollments")
}
