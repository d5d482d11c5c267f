package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	logsvc "github.com/darasahq/darasa/services/logger"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
	"github.com/darasahq/darasa/storage/files"
)

var (
	conf   *core.Config
	app    Server
	usrSvc user.Service
	clsSvc classroom.Service

	errMissingToken = httpErr{Detail: "missing or malformed token"}
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		Env:              "TEST",
		Debug:            true,
		TestMode:         true,
		AppName:          "Darasa",
		SecretKey:        []byte("test-secret-key"),
		WorkDir:          core.Getwd(),
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@test.local",
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			SessionCookieDelta:        3 * time.Hour,
			PasswordResetRateLimit:    1000,
			PasswordResetRateBurst:    1000,
		},
	}

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		fmt.Printf("dummydb.Open(): %v", err)
		os.Exit(1)
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc = user.NewServiceMock(dummydb.NewUserRepository(db), mailSvc, conf)

	mediaRoot, err := os.MkdirTemp("", "darasa-media")
	if err != nil {
		fmt.Printf("os.MkdirTemp(): %v", err)
		os.Exit(1)
	}
	clsSvc = classroom.NewService(dummydb.NewClassroomRepository(db), usrSvc, files.NewLocalStore(mediaRoot))

	// set up server
	app = NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:           conf,
			Logger:         logsvc.NewStdLogger(log.New(os.Stdout, "", log.LstdFlags)),
			UserSvc:        usrSvc,
			ClassroomSvc:   clsSvc,
			MediaRoot:      mediaRoot,
			DisableReqLogs: true,
		},
	)

	// run tests
	code := m.Run()

	// clean up
	_ = os.RemoveAll(mediaRoot)
	os.Exit(code)
}

type httpErr struct {
	Detail string `json:"detail"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest builds a multipart/form-data request with the given
// fields and file parts.
func newMultipartRequest(t *testing.T, method, path, token string, fields map[string]string, fileContents map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	for name, content := range fileContents {
		fw, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		if _, err = io.WriteString(fw, content); err != nil {
			t.Fatalf("writing file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Writer.Close(): %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

// userPwd is the password createUser registers every fixture user with.
const userPwd = "Str0ngPwd!"

func createUser(t *testing.T, uname, email string) user.User {
	t.Helper()

	usr, err := usrSvc.Register(user.NewUser{Email: email, Password: userPwd, DisplayName: uname})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	usr, err = usrSvc.CompleteProfile(usr, user.Profile{
		UserName: uname,
		FullName: uname,
		Age:      25,
		Phone:    "+255711111111",
	})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func requireJSON(t *testing.T, data []byte, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("requireJSON(): %v", err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func findSessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

// lastMailToken digs the reset UID and token out of the most recent mail
// sent by the mock email service.
func lastMailToken(t *testing.T) (uid, token string) {
	t.Helper()

	if len(emailsvc.SentMessages) == 0 {
		t.Fatal("no mail was sent")
	}
	msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
	v := reflect.ValueOf(msg.TemplateData)
	return v.FieldByName("UID").String(), v.FieldByName("Token").String()
}
