package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
	"github.com/trezcool/shule/testutil"
)

func openDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewTestConfig()
	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, conf))
	return db
}

func TestUserRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	schools := sqlxrepos.NewSchoolRepository(db)
	repo := sqlxrepos.NewUserRepository(db)

	sch := testutil.CreateSchool(t, schools, "Green Hills Academy")
	now := time.Now().UTC().Truncate(time.Second)
	admin := testutil.CreateUser(t, repo, sch.ID, "Alice Admin", "alice", "alice@ghs.test", []string{user.RoleAdmin, user.RoleStaff}, true, now.Add(-2*time.Hour))
	student := testutil.CreateUser(t, repo, sch.ID, "Bob Student", "bob", "", []string{user.RoleStudent}, true, now.Add(-time.Hour))
	root := testutil.CreateUser(t, repo, "", "Root", "root", "root@shule.test", []string{user.RoleSuperuser}, false, now)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, []string{user.RoleAdmin, user.RoleStaff}, got.Roles)
		assert.True(t, got.IsActive)
		assert.NoError(t, got.CheckPassword(testutil.Password))
		assert.Nil(t, got.LastLogin)

		got, err = repo.GetUserByUsernameOrEmail(ctx, "root@shule.test")
		require.NoError(t, err)
		assert.Equal(t, root.ID, got.ID)
		assert.Empty(t, got.SchoolID)

		_, err = repo.GetUserByID(ctx, "nope")
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUserByUsernameOrEmail(ctx, "")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUsernameExists, repo.CheckUniqueness(ctx, "alice", "new@ghs.test"))
		assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctx, "newbie", "alice@ghs.test"))
		assert.NoError(t, repo.CheckUniqueness(ctx, "alice", "alice@ghs.test", admin))
		// users without email do not clash
		assert.NoError(t, repo.CheckUniqueness(ctx, "newbie", ""))
	})

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name     string
			filter   user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all, newest first", want: []string{root.ID, student.ID, admin.ID}},
			{name: "by school", filter: user.QueryFilter{SchoolID: sch.ID}, want: []string{student.ID, admin.ID}},
			{name: "search", filter: user.QueryFilter{Search: "ALI"}, want: []string{admin.ID}},
			{name: "role", filter: user.QueryFilter{Roles: []string{user.RoleStaff, user.RoleSuperuser}}, want: []string{root.ID, admin.ID}},
			{name: "active", filter: user.QueryFilter{IsActive: &active}, want: []string{student.ID, admin.ID}},
			{name: "created from", filter: user.QueryFilter{CreatedFrom: now.Add(-90 * time.Minute)}, want: []string{root.ID, student.ID}},
			{
				name:     "ordered by name",
				ordering: []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "password_hash"}},
				want:     []string{admin.ID, student.ID, root.ID},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tt.filter, tt.ordering...)
				require.NoError(t, err)
				ids := make([]string, 0, len(users))
				for _, u := range users {
					ids = append(ids, u.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		usr := student
		login := time.Now().UTC().Truncate(time.Second)
		usr.Name = "Robert Student"
		usr.LastLogin = &login
		usr.CreatedAt = time.Time{}

		got, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, "Robert Student", got.Name)
		require.NotNil(t, got.LastLogin)
		assert.True(t, login.Equal(*got.LastLogin))
		assert.True(t, student.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.UpdateUser(ctx, user.User{ID: "nope", Name: "x"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestSchoolRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewSchoolRepository(db)
	users := sqlxrepos.NewUserRepository(db)

	sch := testutil.CreateSchool(t, repo, "Green Hills Academy")
	teacher := testutil.CreateUser(t, users, sch.ID, "Jane Teacher", "jane", "jane@ghs.test", []string{user.RoleStaff}, true)
	student := testutil.CreateUser(t, users, sch.ID, "John Student", "john", "john@ghs.test", []string{user.RoleStudent}, true)
	s1 := testutil.CreateClass(t, repo, sch.ID, "Senior 1", "2023-2024")
	s0 := testutil.CreateClass(t, repo, sch.ID, "Form 4", "2022-2023")
	math := testutil.CreateCourse(t, repo, s1.ID, "MATH101", 4, teacher.ID)
	art := testutil.CreateCourse(t, repo, s1.ID, "ART101", 2, "")

	got, err := repo.GetSchool(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, "Green Hills Academy", got.Name)
	_, err = repo.GetSchool(ctx, "nope")
	assert.Equal(t, school.ErrNotFound, err)

	classes, err := repo.QueryClasses(ctx, sch.ID)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, s1.ID, classes[0].ID)
	assert.Equal(t, s0.ID, classes[1].ID)
	_, err = repo.GetClass(ctx, "nope")
	assert.Equal(t, school.ErrClassNotFound, err)

	courses, err := repo.QueryCourses(ctx, s1.ID)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, art.ID, courses[0].ID)
	assert.Empty(t, courses[0].TeacherID)
	assert.Equal(t, math.ID, courses[1].ID)
	assert.Equal(t, teacher.ID, courses[1].TeacherID)
	_, err = repo.GetCourse(ctx, "nope")
	assert.Equal(t, school.ErrCourseNotFound, err)

	testutil.Enroll(t, repo, student.ID, s0.ID, school.StatusCompleted)
	testutil.Enroll(t, repo, student.ID, s1.ID, school.StatusActive)
	_, err = repo.CreateEnrollment(ctx, school.Enrollment{StudentID: student.ID, ClassID: s1.ID, Status: school.StatusActive, EnrolledAt: time.Now()})
	assert.Equal(t, school.ErrAlreadyEnrolled, err)

	enrollments, err := repo.QueryStudentEnrollments(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, s0.ID, enrollments[0].ClassID)

	terms, err := school.NewDirectory(repo, users).StudentTerms(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "2022-2023", terms[0].Term.Key)
	assert.Len(t, terms[1].Courses, 2)
}

func TestScaleRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewScaleRepository(db)
	sch := testutil.CreateSchool(t, sqlxrepos.NewSchoolRepository(db), "Green Hills Academy")

	_, err := repo.GetScale(ctx, sch.ID)
	assert.Equal(t, grading.ErrScaleNotFound, err)

	scale := grading.Scale{
		{Grade: "A", Min: 80, Max: 100, Points: testutil.FloatPtr(4.5), Remarks: testutil.StrPtr("Outstanding")},
		{Grade: "F", Min: 0, Max: 79.99},
	}
	require.NoError(t, repo.ReplaceScale(ctx, sch.ID, scale))
	got, err := repo.GetScale(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, scale, got)

	require.NoError(t, repo.ReplaceScale(ctx, sch.ID, grading.DefaultScale()))
	got, err = repo.GetScale(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, grading.DefaultScale(), got)

	// unknown school violates the foreign key: nothing is replaced
	assert.Error(t, repo.ReplaceScale(ctx, "nope", scale))
}

func TestGradeRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	schools := sqlxrepos.NewSchoolRepository(db)
	users := sqlxrepos.NewUserRepository(db)
	repo := sqlxrepos.NewGradeRepository(db)

	sch := testutil.CreateSchool(t, schools, "Green Hills Academy")
	teacher := testutil.CreateUser(t, users, sch.ID, "Jane Teacher", "jane", "jane@ghs.test", []string{user.RoleStaff}, true)
	student := testutil.CreateUser(t, users, sch.ID, "John Student", "john", "john@ghs.test", []string{user.RoleStudent}, true)
	class := testutil.CreateClass(t, schools, sch.ID, "Senior 1", "2023-2024")
	math := testutil.CreateCourse(t, schools, class.ID, "MATH101", 4, teacher.ID)
	art := testutil.CreateCourse(t, schools, class.ID, "ART101", 2, teacher.ID)

	_, err := repo.GetGrade(ctx, student.ID, math.ID)
	assert.Equal(t, grading.ErrGradeNotFound, err)

	created := time.Now().UTC().Truncate(time.Second)
	first, err := repo.UpsertGrade(ctx, grading.GradeRecord{
		StudentID: student.ID, CourseID: math.ID, Score: 55, GradedBy: teacher.ID, CreatedAt: created, UpdatedAt: created,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 55.0, first.Score)

	updated := created.Add(time.Minute)
	second, err := repo.UpsertGrade(ctx, grading.GradeRecord{
		StudentID: student.ID, CourseID: math.ID, Score: 85.5, GradedBy: teacher.ID, CreatedAt: updated, UpdatedAt: updated,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 85.5, second.Score)
	assert.True(t, created.Equal(second.CreatedAt))
	assert.True(t, updated.Equal(second.UpdatedAt))

	_, err = repo.UpsertGrade(ctx, grading.GradeRecord{
		StudentID: student.ID, CourseID: art.ID, Score: 70, GradedBy: teacher.ID, CreatedAt: updated, UpdatedAt: updated,
	})
	require.NoError(t, err)

	records, err := repo.QueryStudentGrades(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, math.ID, records[0].CourseID)
	assert.Equal(t, art.ID, records[1].CourseID)
}

func TestAuditRepository(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := sqlxrepos.NewAuditRepository(db)
	start := time.Now().UTC().Add(-time.Hour)

	for i, action := range []string{"a", "b", "a", "c"} {
		_, err := repo.CreateEntry(ctx, audit.Entry{
			UserID:    "u1",
			Action:    action,
			Details:   "details",
			CreatedAt: start.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name    string
		filter  audit.QueryFilter
		actions []string
	}{
		{name: "newest first", filter: audit.QueryFilter{Limit: 100}, actions: []string{"c", "a", "b", "a"}},
		{name: "limit", filter: audit.QueryFilter{Limit: 2}, actions: []string{"c", "a"}},
		{name: "action", filter: audit.QueryFilter{Action: "a", Limit: 100}, actions: []string{"a", "a"}},
		{name: "from", filter: audit.QueryFilter{From: start.Add(90 * time.Second), Limit: 100}, actions: []string{"c", "a"}},
		{name: "user", filter: audit.QueryFilter{UserID: "u2", Limit: 100}, actions: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := repo.QueryEntries(ctx, tt.filter)
			require.NoError(t, err)
			actions := make([]string, 0, len(entries))
			for _, e := range entries {
				actions = append(actions, e.Action)
			}
			assert.Equal(t, tt.actions, actions)
		})
	}
}
