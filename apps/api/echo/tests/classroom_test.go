package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
)

func Test_classroomApi_create(t *testing.T) {
	owner := createUser(t, "clsowner", "clsowner@test.com")
	token := getToken(t, owner)

	tests := []httpTest{
		{
			name:     "requires auth",
			body:     []byte(`{"classname": "Maths"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "empty name",
			token:    token,
			body:     []byte(`{"classname": "  "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"classname": "this field is required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/addclass", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/addclass", token, []byte(`{"classname": "Adv Maths"}`))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var summary classroom.Summary
		requireJSON(t, rec.Body.Bytes(), &summary)
		assert.NotEmpty(t, summary.ClassroomID)
		assert.Equal(t, "Adv Maths", summary.ClassroomName)
		assert.Equal(t, "clsowner", summary.OwnerName)
		assert.Equal(t, classroom.RoleOwner, summary.Role)
		assert.Equal(t, classroom.DeriveColor("Adv Maths", summary.ClassroomID), summary.Color)
	})

	t.Run("profile required", func(t *testing.T) {
		bare, err := usrSvc.Register(user.NewUser{Email: "bareowner@test.com", Password: "Str0ngPwd!"})
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/api/addclass", getToken(t, bare), []byte(`{"classname": "Nope"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, StatusProfileIncomplete, rec.Code)
	})
}

func Test_classroomApi_members(t *testing.T) {
	owner := createUser(t, "memowner", "memowner@test.com")
	admin := createUser(t, "memadmin", "memadmin@test.com")
	student := createUser(t, "memstudent", "memstudent@test.com")
	outsider := createUser(t, "memoutsider", "memoutsider@test.com")

	cls, err := clsSvc.CreateClassroom(owner, classroom.NewClassroom{Name: "Members 101"})
	require.NoError(t, err)
	base := "/api/classroom/" + cls.ClassroomID

	t.Run("owner adds an admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/add-admin", getToken(t, owner),
			marchallObj(t, map[string]string{"email": admin.Email}))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var member classroom.Member
		requireJSON(t, rec.Body.Bytes(), &member)
		assert.Equal(t, admin.ID, member.ID)
		assert.Equal(t, classroom.RoleAdmin, member.Role)
	})

	t.Run("admin adds a student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/add-student", getToken(t, admin),
			marchallObj(t, map[string]string{"email": student.Email}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("admin cannot add an admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/add-admin", getToken(t, admin),
			marchallObj(t, map[string]string{"email": outsider.Email}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Detail: "permission denied"})}, rec)
	})

	t.Run("student cannot add a student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/add-student", getToken(t, student),
			marchallObj(t, map[string]string{"email": outsider.Email}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("duplicate member conflicts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/add-student", getToken(t, owner),
			marchallObj(t, map[string]string{"email": student.Email}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Detail: "user is already a member of this classroom"}),
		}, rec)
	})

	t.Run("unknown member email", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/add-student", getToken(t, owner),
			marchallObj(t, map[string]string{"email": "nobody@test.com"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Detail: "not found"})}, rec)
	})

	t.Run("unknown classroom", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/classroom/nope/add-student", getToken(t, owner),
			marchallObj(t, map[string]string{"email": student.Email}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("delete student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, base+"/delete-student/"+student.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		// second delete finds nothing
		req, rec = newAuthRequest(http.MethodDelete, base+"/delete-student/"+student.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_classroomApi_retrieve(t *testing.T) {
	owner := createUser(t, "detowner", "detowner@test.com")
	student := createUser(t, "detstudent", "detstudent@test.com")
	outsider := createUser(t, "detoutsider", "detoutsider@test.com")

	cls, err := clsSvc.CreateClassroom(owner, classroom.NewClassroom{Name: "Detail 101"})
	require.NoError(t, err)
	_, err = clsSvc.AddMember(cls.ClassroomID, owner, classroom.RoleStudent, classroom.AddMember{Email: student.Email})
	require.NoError(t, err)
	_, err = clsSvc.CreateWork(cls.ClassroomID, owner, classroom.NewWork{
		Title:       "Homework 1",
		Description: "Read chapter 1",
		DueDate:     "31-12-2099",
	}, nil)
	require.NoError(t, err)

	base := "/api/classroom/" + cls.ClassroomID

	t.Run("member sees the full record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base, getToken(t, student))
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp ClassroomDetailResponse
		requireJSON(t, rec.Body.Bytes(), &resp)
		assert.Equal(t, classroom.RoleStudent, resp.Role)
		assert.Equal(t, "detowner", resp.Members.Owner.UserName)
		require.Len(t, resp.Members.Students, 1)
		require.Len(t, resp.AllContent, 1)
		assert.Equal(t, "Homework 1", resp.AllContent[0].Title)
		require.Len(t, resp.UpcomingDeadlines, 1)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base, getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Detail: "permission denied"})}, rec)
	})

	t.Run("unknown classroom", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/classroom/missing", getToken(t, owner))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_classroomApi_createWork(t *testing.T) {
	owner := createUser(t, "workowner", "workowner@test.com")
	student := createUser(t, "workstudent", "workstudent@test.com")

	cls, err := clsSvc.CreateClassroom(owner, classroom.NewClassroom{Name: "Work 101"})
	require.NoError(t, err)
	_, err = clsSvc.AddMember(cls.ClassroomID, owner, classroom.RoleStudent, classroom.AddMember{Email: student.Email})
	require.NoError(t, err)

	path := "/api/classroom/" + cls.ClassroomID + "/work"

	t.Run("multipart with attachments", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, path, getToken(t, owner),
			map[string]string{
				"work_title":       "Essay",
				"work_description": "Write 5 pages",
				"due_date":         "25-12-2099",
			},
			map[string]string{"brief.pdf": "pdf bytes"},
		)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var item classroom.ContentItem
		requireJSON(t, rec.Body.Bytes(), &item)
		assert.Equal(t, classroom.ContentWork, item.Type)
		assert.Equal(t, "Essay", item.Title)
		require.NotNil(t, item.DueDate)
		require.Len(t, item.Documents, 1)
		assert.Equal(t, "brief.pdf", item.Documents[0].Name)

		// the stored file is served back under /media
		req, rec = newRequest(http.MethodGet, item.Documents[0].URL)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pdf bytes", rec.Body.String())
	})

	t.Run("bad due date", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, path, getToken(t, owner),
			map[string]string{
				"work_title":       "Essay",
				"work_description": "Write 5 pages",
				"due_date":         "2099-12-25",
			}, nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"due_date": "due date must be a valid DD-MM-YYYY date"}`),
		}, rec)
	})

	t.Run("students may not post work", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, path, getToken(t, student),
			map[string]string{
				"work_title":       "Nope",
				"work_description": "x",
				"due_date":         "25-12-2099",
			}, nil)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_classroomApi_createBlog(t *testing.T) {
	owner := createUser(t, "blogowner", "blogowner@test.com")

	cls, err := clsSvc.CreateClassroom(owner, classroom.NewClassroom{Name: "Blog 101"})
	require.NoError(t, err)
	path := "/api/classroom/" + cls.ClassroomID + "/blog"

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, path, getToken(t, owner),
			map[string]string{"title": "Hello"}, nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"context": "this field is required"}`),
		}, rec)
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, path, getToken(t, owner),
			map[string]string{"title": "Welcome", "context": "First post."}, nil)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var item classroom.ContentItem
		requireJSON(t, rec.Body.Bytes(), &item)
		assert.Equal(t, classroom.ContentBlog, item.Type)
		assert.Nil(t, item.DueDate)
	})
}
