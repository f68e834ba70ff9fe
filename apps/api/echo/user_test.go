package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/audit"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/testutil"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.users, app.school.ID, "Gone", "gone", "gone@ghs.test", []string{user.RoleStudent}, false)

	body := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name:     "missing credentials",
			body:     body("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name:     "unknown user",
			body:     body("nobody", testutil.Password),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     body("john", "wrong"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated",
			body:     body("gone", testutil.Password),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "username", body: body("  JOHN ", testutil.Password), wantCode: http.StatusOK},
		{name: "email", body: body("john@ghs.test", testutil.Password), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users/login"
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				claims := new(Claims)
				_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
					return app.server.auth.jwtConfig.SigningKey, nil
				})
				require.NoError(t, err)
				assert.Equal(t, app.student.ID, claims.Subject)
				assert.Equal(t, app.school.ID, claims.SchoolID)
				assert.True(t, claims.IsStudent)
				assert.False(t, claims.IsAdmin)
			}
		})
	}

	usr, err := app.users.GetUserByID(context.Background(), app.student.ID)
	require.NoError(t, err)
	assert.NotNil(t, usr.LastLogin)

	entries, err := app.auditSvc.Query(context.Background(), audit.QueryFilter{Action: actionUserLogin})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func Test_userApi_refreshToken(t *testing.T) {
	app := setup(t)
	gone := testutil.CreateUser(t, app.users, app.school.ID, "Gone", "gone", "gone@ghs.test", []string{user.RoleStudent}, false)

	expired := app.server.auth.GetUserClaims(app.student, 1) // issued in 1970
	expiredToken, err := app.server.auth.GenerateToken(expired)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name:     "deactivated",
			token:    getToken(t, app, gone),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "refresh expired",
			token:    expiredToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "ok", token: getToken(t, app, app.student), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users/token-refresh"
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	newUser := func(schoolID, uname string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			SchoolID:        schoolID,
			Name:            "New " + uname,
			Username:        uname,
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
			Roles:           roles,
		})
	}

	tests := []httpTest{
		{
			name:     "no token",
			body:     newUser("", "nobody"),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "not admin",
			body:     newUser("", "nobody"),
			token:    getToken(t, app, app.teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "other school",
			body:     newUser(app.other.ID, "intruder"),
			token:    getToken(t, app, app.admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"school_id": errOtherSchool}),
		},
		{
			name:     "role above own",
			body:     newUser("", "boss", user.RoleSuperuser),
			token:    getToken(t, app, app.admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"roles": errNoPermsToSetRoles}),
		},
		{
			name:     "username taken",
			body:     newUser("", "john", user.RoleStudent),
			token:    getToken(t, app, app.admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name:     "no school for superuser",
			body:     newUser("", "root2", user.RoleSuperuser),
			token:    getToken(t, app, app.superuser),
			wantCode: http.StatusCreated,
			extra:    "",
		},
		{
			name:     "school admin defaults to own school",
			body:     newUser("", "mary", user.RoleStudent),
			token:    getToken(t, app, app.admin),
			wantCode: http.StatusCreated,
			extra:    app.school.ID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPost
			tt.path = "/v1/users"
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
				assert.NotEmpty(t, usr.ID)
				assert.Equal(t, tt.extra, usr.SchoolID)
				assert.True(t, usr.IsActive)
				assert.NotContains(t, rec.Body.String(), "password")
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	outsider := testutil.CreateUser(t, app.users, app.other.ID, "Outsider", "outsider", "out@rhs.test", []string{user.RoleStudent}, true)

	ids := func(t *testing.T, body []byte) []string {
		var users []user.User
		require.NoError(t, json.Unmarshal(body, &users))
		res := make([]string, 0, len(users))
		for _, usr := range users {
			res = append(res, usr.ID)
		}
		return res
	}

	tests := []struct {
		name  string
		path  string
		token string
		want  []string
	}{
		{
			name:  "school admin sees own school",
			path:  "/v1/users",
			token: getToken(t, app, app.admin),
			want:  []string{app.admin.ID, app.teacher.ID, app.student.ID},
		},
		{
			name:  "superuser sees every school",
			path:  "/v1/users",
			token: getToken(t, app, app.superuser),
			want:  []string{app.superuser.ID, app.admin.ID, app.teacher.ID, app.student.ID, outsider.ID},
		},
		{
			name:  "role filter",
			path:  "/v1/users?role=student",
			token: getToken(t, app, app.superuser),
			want:  []string{app.student.ID, outsider.ID},
		},
		{
			name:  "search",
			path:  "/v1/users?search=JANE",
			token: getToken(t, app, app.admin),
			want:  []string{app.teacher.ID},
		},
		{
			name:  "school filter is ignored for school admins",
			path:  "/v1/users?school_id=" + app.other.ID,
			token: getToken(t, app, app.admin),
			want:  []string{app.admin.ID, app.teacher.ID, app.student.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(httpTest{method: http.MethodGet, path: tt.path, token: tt.token})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.ElementsMatch(t, tt.want, ids(t, rec.Body.Bytes()))
		})
	}

	t.Run("ordering", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodGet, path: "/v1/users?ordering=name,unknown", token: getToken(t, app, app.admin)})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{app.admin.ID, app.teacher.ID, app.student.ID}, ids(t, rec.Body.Bytes()))
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := app.do(httpTest{method: http.MethodGet, path: "/v1/users?created_from=yesterday", token: getToken(t, app, app.admin)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)
	outsider := testutil.CreateUser(t, app.users, app.other.ID, "Outsider", "outsider", "out@rhs.test", []string{user.RoleStudent}, true)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "self", path: "/v1/users/" + app.student.ID, token: getToken(t, app, app.student), wantCode: http.StatusOK, wantData: marchallObj(t, app.student)},
		{name: "other user", path: "/v1/users/" + app.teacher.ID, token: getToken(t, app, app.student), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "school admin", path: "/v1/users/" + app.student.ID, token: getToken(t, app, app.admin), wantCode: http.StatusOK, wantData: marchallObj(t, app.student)},
		{name: "admin of another school", path: "/v1/users/" + outsider.ID, token: getToken(t, app, app.admin), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "superuser", path: "/v1/users/" + outsider.ID, token: getToken(t, app, app.superuser), wantCode: http.StatusOK, wantData: marchallObj(t, outsider)},
		{name: "unknown", path: "/v1/users/nope", token: getToken(t, app, app.admin), wantCode: http.StatusNotFound, wantData: notFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			rec := app.do(tt)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)
	tt := httpTest{
		method:   http.MethodGet,
		path:     "/v1/users/roles",
		token:    getToken(t, app, app.admin),
		wantCode: http.StatusOK,
		wantData: marchallObj(t, user.Roles),
	}
	checkCodeAndData(t, tt, app.do(tt))
}
