package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/client"
	"github.com/darasahq/darasa/core/classroom"
)

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail wins", `{"detail": "not found", "message": "nope", "error": "nope"}`, "not found"},
		{"message next", `{"message": "server exploded", "error": "nope"}`, "server exploded"},
		{"error last", `{"error": "bad thing"}`, "bad thing"},
		{"field map flattens", `{"email": "this field is required", "age": "age must be 5 or greater"}`,
			"age: age must be 5 or greater; email: this field is required"},
		{"empty object", `{}`, client.FallbackErrorMessage},
		{"not json", `<html>bad gateway</html>`, client.FallbackErrorMessage},
		{"empty detail ignored", `{"detail": "", "message": "real one"}`, "real one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.ExtractErrorMessage([]byte(tt.body)))
		})
	}
}

func TestNormalizeDueDate(t *testing.T) {
	due, err := client.NormalizeDueDate("2099-12-25")
	require.NoError(t, err)
	assert.Equal(t, "25-12-2099", due)

	due, err = client.NormalizeDueDate("25-12-2099")
	require.NoError(t, err)
	assert.Equal(t, "25-12-2099", due)

	_, err = client.NormalizeDueDate("Dec 25, 2099")
	assert.Error(t, err)
}

func TestClient_requiresSession(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := client.New(srv.URL)

	_, err := c.Dashboard(context.Background())
	assert.Equal(t, client.ErrNoSession, err)

	_, err = c.CreateBlog(context.Background(), "cls1", client.NewBlog{Title: "t", Context: "c"})
	assert.Equal(t, client.ErrNoSession, err)

	assert.Zero(t, atomic.LoadInt32(&calls), "no request should have been attempted")
}

func TestClient_signIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/login", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["password"] != "Str0ngPwd!" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail": "authentication failed"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token": "tok-123", "hasProfile": true}`))
	}))
	defer srv.Close()

	c := client.New(srv.URL)

	_, err := c.SignIn(context.Background(), "jim@test.com", "wrong")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "authentication failed", apiErr.Message)
	assert.Empty(t, c.Token())

	sess, err := c.SignIn(context.Background(), "jim@test.com", "Str0ngPwd!")
	require.NoError(t, err)
	assert.True(t, sess.HasProfile)
	assert.Equal(t, "tok-123", c.Token())
}

func TestClient_dashboardCoalescing(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		_ = json.NewEncoder(w).Encode(classroom.Aggregate{UserName: "jim"})
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))

	const n = 5
	var wg sync.WaitGroup
	results := make([]classroom.Aggregate, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Dashboard(context.Background())
		}(i)
	}

	// Let every caller join the in-flight fetch before it completes.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 },
		time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "concurrent refreshes should share one request")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "jim", results[i].UserName)
	}

	// A refresh after the flight settled issues a new request.
	_, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_createWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/classroom/cls1/work", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Essay", r.FormValue("work_title"))
		assert.Equal(t, "25-12-2099", r.FormValue("due_date"))
		require.Len(t, r.MultipartForm.File["files"], 1)
		assert.Equal(t, "brief.pdf", r.MultipartForm.File["files"][0].Filename)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(classroom.ContentItem{ID: "w1", Type: classroom.ContentWork, Title: "Essay"})
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))

	item, err := c.CreateWork(context.Background(), "cls1", client.NewWork{
		Title:       "Essay",
		Description: "Write 5 pages",
		DueDate:     "2099-12-25",
		Files:       []client.Upload{{Name: "brief.pdf", Content: strings.NewReader("pdf bytes")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "w1", item.ID)
	assert.Equal(t, classroom.ContentWork, item.Type)
}

func TestClient_createWorkTimeout(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithToken("tok"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.CreateWork(ctx, "cls1", client.NewWork{
		Title:       "Essay",
		Description: "Write 5 pages",
		DueDate:     "25-12-2099",
	})
	assert.Equal(t, client.ErrContentTimeout, err)
	<-started
}
