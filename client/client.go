// Package client is the Go SDK for the darasa REST API. It holds the bearer
// token for the signed-in user and mirrors the behavior web clients rely on:
// friendly error-message extraction, a hard timeout on content uploads, and
// coalesced dashboard refreshes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/classroom"
)

const (
	// ContentTimeout caps a single content-creation call, uploads included.
	ContentTimeout = 30 * time.Second

	defaultTimeout = 10 * time.Second
)

var (
	// ErrNoSession is returned by authenticated calls made before SignIn;
	// no request is attempted.
	ErrNoSession = errors.New("please sign in again")

	// ErrContentTimeout distinguishes a slow upload from a network failure.
	ErrContentTimeout = errors.New("content creation timed out, please try again")
)

// Client calls the darasa API on behalf of one user session.
// Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client

	mu    sync.Mutex
	token string

	dashMu   sync.Mutex
	dashCall *dashboardCall
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithToken seeds an existing bearer token; subsequent calls are authenticated
// without a SignIn round trip.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token held for the current session, if any.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Session is the sign-in result.
type Session struct {
	Token      string `json:"token"`
	HasProfile bool   `json:"hasProfile"`
}

// SignIn authenticates with email and password and stores the bearer token.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var sess Session
	err := c.doJSON(ctx, http.MethodPost, "/api/users/login",
		map[string]string{"email": email, "password": password}, &sess, false)
	if err != nil {
		return Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

// SignUp registers a new account. When the server is configured for email
// confirmation no session is returned and Token stays empty.
func (c *Client) SignUp(ctx context.Context, email, password string) (Session, error) {
	var sess Session
	err := c.doJSON(ctx, http.MethodPost, "/api/users/register",
		map[string]string{"email": email, "password": password, "password_confirm": password}, &sess, false)
	if err != nil {
		return Session{}, err
	}
	if sess.Token != "" {
		c.setToken(sess.Token)
	}
	return sess, nil
}

// SignOut clears the server session and drops the local token. The local
// token is dropped even if the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/users/logout", nil, nil, true)
	c.setToken("")
	return err
}

// Dashboard fetches the caller's aggregate. Concurrent calls coalesce: while
// a fetch is in flight, later callers wait for and share its result instead
// of issuing their own request.
func (c *Client) Dashboard(ctx context.Context) (classroom.Aggregate, error) {
	c.dashMu.Lock()
	call := c.dashCall
	if call == nil {
		call = &dashboardCall{done: make(chan struct{})}
		c.dashCall = call
		go c.runDashboardCall(call)
	}
	c.dashMu.Unlock()

	select {
	case <-call.done:
		return call.agg, call.err
	case <-ctx.Done():
		return classroom.Aggregate{}, ctx.Err()
	}
}

type dashboardCall struct {
	done chan struct{}
	agg  classroom.Aggregate
	err  error
}

func (c *Client) runDashboardCall(call *dashboardCall) {
	call.err = c.doJSON(context.Background(), http.MethodGet, "/api/dashboard", nil, &call.agg, true)

	c.dashMu.Lock()
	c.dashCall = nil
	c.dashMu.Unlock()
	close(call.done)
}

// CompleteProfile submits the post-signup profile form.
func (c *Client) CompleteProfile(ctx context.Context, userName, fullName string, age int, phone string) (Session, error) {
	var sess Session
	err := c.doJSON(ctx, http.MethodPost, "/api/dashboard", map[string]interface{}{
		"userName": userName,
		"fullName": fullName,
		"age":      age,
		"phone":    phone,
	}, &sess, true)
	if err != nil {
		return Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

// CreateClassroom creates a classroom owned by the caller.
func (c *Client) CreateClassroom(ctx context.Context, name string) (classroom.Summary, error) {
	var summary classroom.Summary
	err := c.doJSON(ctx, http.MethodPost, "/api/addclass",
		map[string]string{"classname": name}, &summary, true)
	return summary, err
}

// ClassroomDetail is the SDK view of one classroom: the full record plus the
// caller's role in it.
type ClassroomDetail struct {
	classroom.Detail
	Role string `json:"role"`
}

func (c *Client) Classroom(ctx context.Context, classroomID string) (ClassroomDetail, error) {
	var detail ClassroomDetail
	err := c.doJSON(ctx, http.MethodGet, "/api/classroom/"+classroomID, nil, &detail, true)
	return detail, err
}

func (c *Client) AddAdmin(ctx context.Context, classroomID, email string) (classroom.Member, error) {
	return c.addMember(ctx, classroomID, "add-admin", email)
}

func (c *Client) AddStudent(ctx context.Context, classroomID, email string) (classroom.Member, error) {
	return c.addMember(ctx, classroomID, "add-student", email)
}

func (c *Client) addMember(ctx context.Context, classroomID, action, email string) (classroom.Member, error) {
	var member classroom.Member
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/classroom/%s/%s", classroomID, action),
		map[string]string{"email": email}, &member, true)
	return member, err
}

func (c *Client) RemoveStudent(ctx context.Context, classroomID, studentID string) error {
	return c.doJSON(ctx, http.MethodDelete,
		fmt.Sprintf("/api/classroom/%s/delete-student/%s", classroomID, studentID), nil, nil, true)
}

// Upload is a file attached to a content-creation call.
type Upload struct {
	Name    string
	Content io.Reader
}

// NewWork is the classwork form. DueDate accepts an ISO date (YYYY-MM-DD) and
// is normalized to the server's DD-MM-YYYY wire format.
type NewWork struct {
	Title       string
	Description string
	DueDate     string
	Files       []Upload
}

// CreateWork posts a classwork assignment. The whole call, upload included,
// is bounded by ContentTimeout; hitting the bound returns ErrContentTimeout.
func (c *Client) CreateWork(ctx context.Context, classroomID string, nw NewWork) (classroom.ContentItem, error) {
	due, err := NormalizeDueDate(nw.DueDate)
	if err != nil {
		return classroom.ContentItem{}, err
	}
	return c.createContent(ctx, classroomID, "work", map[string]string{
		"work_title":       nw.Title,
		"work_description": nw.Description,
		"due_date":         due,
	}, nw.Files)
}

// NewBlog is the blog-post form.
type NewBlog struct {
	Title   string
	Context string
	Files   []Upload
}

func (c *Client) CreateBlog(ctx context.Context, classroomID string, nb NewBlog) (classroom.ContentItem, error) {
	return c.createContent(ctx, classroomID, "blog", map[string]string{
		"title":   nb.Title,
		"context": nb.Context,
	}, nb.Files)
}

func (c *Client) createContent(ctx context.Context, classroomID, kind string, fields map[string]string, files []Upload) (classroom.ContentItem, error) {
	token := c.Token()
	if token == "" {
		return classroom.ContentItem{}, ErrNoSession
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return classroom.ContentItem{}, errors.Wrap(err, "writing form field")
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return classroom.ContentItem{}, errors.Wrap(err, "creating file part")
		}
		if _, err = io.Copy(fw, f.Content); err != nil {
			return classroom.ContentItem{}, errors.Wrap(err, "copying file part")
		}
	}
	if err := w.Close(); err != nil {
		return classroom.ContentItem{}, errors.Wrap(err, "closing multipart writer")
	}

	ctx, cancel := context.WithTimeout(ctx, ContentTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/classroom/%s/%s", c.baseURL, classroomID, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return classroom.ContentItem{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	// Uploads get their own timeout budget; bypass the client-wide one.
	httpc := &http.Client{Transport: c.httpc.Transport}
	resp, err := httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return classroom.ContentItem{}, ErrContentTimeout
		}
		return classroom.ContentItem{}, errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	var item classroom.ContentItem
	if err = decodeResponse(resp, &item); err != nil {
		return classroom.ContentItem{}, err
	}
	return item, nil
}

// NormalizeDueDate converts an ISO date (YYYY-MM-DD) to the server's
// DD-MM-YYYY wire format. Dates already in wire format pass through.
func NormalizeDueDate(date string) (string, error) {
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t.Format(classroom.DueDateFormat), nil
	}
	if _, err := time.Parse(classroom.DueDateFormat, date); err == nil {
		return date, nil
	}
	return "", errors.Errorf("invalid due date %q", date)
}

// doJSON sends a JSON request and decodes a JSON response. When authed is set
// the call requires a held token and fails fast with ErrNoSession otherwise.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}, authed bool) error {
	var token string
	if authed {
		if token = c.Token(); token == "" {
			return ErrNoSession
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encoding payload")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{StatusCode: resp.StatusCode, Message: ExtractErrorMessage(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response body")
}
