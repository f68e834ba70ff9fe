package echoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/grading"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/testutil"
)

func gradeBody(t *testing.T, studentID, courseID string, score float64) []byte {
	return marchallObj(t, grading.NewGrade{StudentID: studentID, CourseID: courseID, Score: testutil.FloatPtr(score)})
}

func Test_gradingApi_scale(t *testing.T) {
	app := setup(t)
	path := "/v1/schools/" + app.school.ID + "/grading-scale"
	adminToken := getToken(t, app, app.admin)

	noD := []byte(`{"grading_system": [
		{"grade": "A", "min": 80, "max": 100},
		{"grade": "B", "min": 70, "max": 79.99},
		{"grade": "C", "min": 60, "max": 69.99},
		{"grade": "F", "min": 0, "max": 59.99, "remarks": "Retake"}
	]}`)

	tests := []httpTest{
		{
			name:     "default scale",
			method:   http.MethodGet,
			path:     path,
			token:    getToken(t, app, app.student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ScaleResponse{SchoolID: app.school.ID, Default: true, Rules: grading.DefaultScale()}),
		},
		{
			name:     "other school",
			method:   http.MethodGet,
			path:     "/v1/schools/" + app.other.ID + "/grading-scale",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: grading.ErrSchoolNotFound.Error()}),
		},
		{
			name:     "staff cannot replace",
			method:   http.MethodPut,
			path:     path,
			body:     noD,
			token:    getToken(t, app, app.teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:   "min above max",
			method: http.MethodPut,
			path:   path,
			body: []byte(`{"grading_system": [
				{"grade": "A", "min": 80, "max": 100},
				{"grade": "F", "min": 60, "max": 0}
			]}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"grading_system[1].max": "min and max must be numbers with min <= max"}),
		},
		{
			name:     "missing max",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"grading_system": [{"grade": "A", "min": 80}]}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"grading_system[0].max": "this field is required"}),
		},
		{
			name:     "non numeric bound",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"grading_system": [{"grade": "A", "min": "eighty", "max": 100}]}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: grading.ErrInvalidScale.Error()}),
		},
		{
			name:     "empty scale",
			method:   http.MethodPut,
			path:     path,
			body:     []byte(`{"grading_system": []}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "still the default one",
			method:   http.MethodGet,
			path:     path,
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ScaleResponse{SchoolID: app.school.ID, Default: true, Rules: grading.DefaultScale()}),
		},
		{name: "replace", method: http.MethodPut, path: path, body: noD, token: adminToken, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	rec := app.do(httpTest{method: http.MethodGet, path: path, token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ScaleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Default)
	require.Len(t, resp.Rules, 4)
	assert.Equal(t, "Retake", *resp.Rules[3].Remarks)

	// undecodable bodies are audited like invalid ones
	rejected, err := app.auditSvc.Query(context.Background(), audit.QueryFilter{Action: grading.ActionScaleRejected})
	require.NoError(t, err)
	require.Len(t, rejected, 4)
	for _, e := range rejected {
		assert.Equal(t, app.admin.ID, e.UserID)
	}
	undecodable := 0
	for _, e := range rejected {
		if strings.HasPrefix(e.Details, fmt.Sprintf("school=%s: %s: ", app.school.ID, grading.ErrInvalidScale)) {
			undecodable++
		}
	}
	assert.Equal(t, 1, undecodable)
}

func Test_gradingApi_submit(t *testing.T) {
	app := setup(t)
	teacherToken := getToken(t, app, app.teacher)
	other := testutil.CreateUser(t, app.users, app.school.ID, "Other Teacher", "other", "other@ghs.test", []string{user.RoleStaff}, true)
	accepted := promtestutil.ToFloat64(metrics.GradeSubmissions.WithLabelValues(metrics.OutcomeAccepted))
	rejected := promtestutil.ToFloat64(metrics.GradeSubmissions.WithLabelValues(metrics.OutcomeRejected))

	tests := []httpTest{
		{
			name:     "student",
			body:     gradeBody(t, app.student.ID, app.course.ID, 85),
			token:    getToken(t, app, app.student),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "not assigned",
			body:     gradeBody(t, app.student.ID, app.course.ID, 85),
			token:    getToken(t, app, other),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: grading.ErrNotAssigned.Error()}),
		},
		{
			name:     "score above 100",
			body:     gradeBody(t, app.student.ID, app.course.ID, 120),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing score",
			body:     []byte(fmt.Sprintf(`{"student_id": %q, "course_id": %q}`, app.student.ID, app.course.ID)),
			token:    teacherToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"score": "this field is required"}),
		},
		{
			name:     "unknown student",
			body:     gradeBody(t, "nope", app.course.ID, 85),
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: grading.ErrStudentNotFound.Error()}),
		},
		{
			name:     "unknown course",
			body:     gradeBody(t, app.student.ID, "nope", 85),
			token:    teacherToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: grading.ErrCourseNotFound.Error()}),
		},
		{name: "ok", body: gradeBody(t, app.student.ID, app.course.ID, 85), token: teacherToken, wantCode: http.StatusOK, extra: "A"},
		{name: "re-grade", body: gradeBody(t, app.student.ID, app.course.ID, 62), token: teacherToken, wantCode: http.StatusOK, extra: "C"},
	}

	var gradeID string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/grades"
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var view grading.GradeView
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
				require.NotNil(t, view.LetterGrade)
				assert.Equal(t, tt.extra, *view.LetterGrade)
				assert.Equal(t, "MATH101", view.CourseCode)
				assert.Equal(t, app.teacher.ID, view.GradedBy)
				if gradeID == "" {
					gradeID = view.ID
				}
				assert.Equal(t, gradeID, view.ID)
			}
		})
	}

	// the student never reaches the handler: 2 accepted, the 5 others rejected
	assert.Equal(t, accepted+2, promtestutil.ToFloat64(metrics.GradeSubmissions.WithLabelValues(metrics.OutcomeAccepted)))
	assert.Equal(t, rejected+5, promtestutil.ToFloat64(metrics.GradeSubmissions.WithLabelValues(metrics.OutcomeRejected)))
}

func Test_gradingApi_queryGrades(t *testing.T) {
	app := setup(t)
	outsider := testutil.CreateUser(t, app.users, app.other.ID, "Out Teacher", "outteacher", "ot@rhs.test", []string{user.RoleStaff}, true)
	classmate := testutil.CreateUser(t, app.users, app.school.ID, "Mary Student", "mary", "mary@ghs.test", []string{user.RoleStudent}, true)
	testutil.Enroll(t, app.schools, classmate.ID, app.class.ID, school.StatusActive)

	rec := app.do(httpTest{
		method: http.MethodPost,
		path:   "/v1/grades",
		body:   gradeBody(t, app.student.ID, app.course.ID, 74),
		token:  getToken(t, app, app.teacher),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view grading.GradeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	grades := marchallList(t, view)

	tests := []httpTest{
		{name: "own grades", path: "/v1/grades", token: getToken(t, app, app.student), wantCode: http.StatusOK, wantData: grades},
		{name: "own grades by id", path: "/v1/grades?student_id=" + app.student.ID, token: getToken(t, app, app.student), wantCode: http.StatusOK, wantData: grades},
		{
			name:     "classmate grades",
			path:     "/v1/grades?student_id=" + app.student.ID,
			token:    getToken(t, app, classmate),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "teacher", path: "/v1/grades?student_id=" + app.student.ID, token: getToken(t, app, app.teacher), wantCode: http.StatusOK, wantData: grades},
		{name: "course filter", path: "/v1/grades?student_id=" + app.student.ID + "&course_id=nope", token: getToken(t, app, app.admin), wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name:     "staff of another school",
			path:     "/v1/grades?student_id=" + app.student.ID,
			token:    getToken(t, app, outsider),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: grading.ErrStudentNotFound.Error()}),
		},
		{
			name:     "staff without student",
			path:     "/v1/grades",
			token:    getToken(t, app, app.teacher),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "this field is required"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_gradingApi_report(t *testing.T) {
	app := setup(t)
	teacherToken := getToken(t, app, app.teacher)

	// two terms: 2022-2023 (10 credits, B and B) and 2023-2024 (setup's MATH101 + 1 credit PE)
	old := testutil.CreateClass(t, app.schools, app.school.ID, "Form 4", "2022-2023")
	bio := testutil.CreateCourse(t, app.schools, old.ID, "BIO", 6, app.teacher.ID)
	chem := testutil.CreateCourse(t, app.schools, old.ID, "CHEM", 4, app.teacher.ID)
	pe := testutil.CreateCourse(t, app.schools, app.class.ID, "PE", 1, app.teacher.ID)
	testutil.Enroll(t, app.schools, app.student.ID, old.ID, school.StatusCompleted)

	for _, g := range []struct {
		courseID string
		score    float64
	}{
		{bio.ID, 75}, {chem.ID, 72}, {app.course.ID, 90}, {pe.ID, 95},
	} {
		rec := app.do(httpTest{method: http.MethodPost, path: "/v1/grades", body: gradeBody(t, app.student.ID, g.courseID, g.score), token: teacherToken})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	built := promtestutil.ToFloat64(metrics.ReportsBuilt)

	getReport := func(t *testing.T, path, token string) grading.Report {
		rec := app.do(httpTest{method: http.MethodGet, path: path, token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep grading.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
		return rep
	}

	t.Run("latest term", func(t *testing.T) {
		rep := getReport(t, "/v1/students/"+app.student.ID+"/report", getToken(t, app, app.student))
		assert.Equal(t, "2023-2024", rep.CurrentTerm.Term)
		require.NotNil(t, rep.CurrentTerm.GPA)
		assert.Equal(t, 4.0, *rep.CurrentTerm.GPA)
		require.Len(t, rep.Terms, 2)
		require.NotNil(t, rep.Terms["2022-2023"].GPA)
		assert.Equal(t, 3.0, *rep.Terms["2022-2023"].GPA)
		require.NotNil(t, rep.CumulativeGPA)
		assert.Equal(t, 3.33, *rep.CumulativeGPA) // (30 + 20) / 15
		assert.Equal(t, 15, rep.TotalCredits)
	})

	t.Run("requested term", func(t *testing.T) {
		rep := getReport(t, "/v1/students/"+app.student.ID+"/report?term=2022-2023", teacherToken)
		assert.Equal(t, "2022-2023", rep.CurrentTerm.Term)
		assert.Len(t, rep.CurrentTerm.Courses, 2)
	})

	t.Run("unknown term falls back to the latest", func(t *testing.T) {
		rep := getReport(t, "/v1/students/"+app.student.ID+"/report?term=1999", teacherToken)
		assert.Equal(t, "2023-2024", rep.CurrentTerm.Term)
	})

	assert.Equal(t, built+3, promtestutil.ToFloat64(metrics.ReportsBuilt))

	t.Run("access", func(t *testing.T) {
		classmate := testutil.CreateUser(t, app.users, app.school.ID, "Mary Student", "mary", "mary@ghs.test", []string{user.RoleStudent}, true)
		tests := []httpTest{
			{
				name:     "classmate",
				path:     "/v1/students/" + app.student.ID + "/report",
				token:    getToken(t, app, classmate),
				wantCode: http.StatusForbidden,
				wantData: marchallObj(t, httpErr{Error: "permission denied"}),
			},
			{
				name:     "not enrolled",
				path:     "/v1/students/" + classmate.ID + "/report",
				token:    getToken(t, app, classmate),
				wantCode: http.StatusNotFound,
				wantData: marchallObj(t, httpErr{Error: grading.ErrNoEnrollment.Error()}),
			},
			{
				name:     "unknown student",
				path:     "/v1/students/nope/report",
				token:    getToken(t, app, app.superuser),
				wantCode: http.StatusNotFound,
				wantData: marchallObj(t, httpErr{Error: grading.ErrStudentNotFound.Error()}),
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodGet
				checkCodeAndData(t, tt, app.do(tt))
			})
		}
	})
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	rec := app.do(httpTest{
		method: http.MethodPost,
		path:   "/v1/grades",
		body:   gradeBody(t, app.student.ID, app.course.ID, 81),
		token:  getToken(t, app, app.teacher),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(httpTest{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "shule_grade_submissions_total")
	assert.Contains(t, body, `shule_grade_score_bucket{letter_grade="A"`)
	assert.Contains(t, body, `shule_api_request_duration_seconds_count{method="POST",path="/v1/grades",status="200"}`)
}
