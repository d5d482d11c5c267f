package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionStorePersist(t *testing.T) {
	store := NewSessionStore(3*time.Hour, true)
	ctx, rec := newTestContext()

	before := time.Now()
	store.Persist(ctx, "tok123", "usr-1", false)

	c := sessionCookie(t, rec)
	assert.Equal(t, "tok123", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	// expiry is write time + delta, not token expiry
	wantExp := before.Add(3 * time.Hour)
	assert.WithinDuration(t, wantExp, c.Expires, 5*time.Second)
}

func TestSessionStorePersistRefreshExtendsCookie(t *testing.T) {
	store := NewSessionStore(3*time.Hour, false)
	ctx, rec := newTestContext()

	store.Persist(ctx, "tok-refreshed", "usr-1", true)

	c := sessionCookie(t, rec)
	assert.Equal(t, "tok-refreshed", c.Value)
	assert.WithinDuration(t, time.Now().Add(3*time.Hour), c.Expires, 5*time.Second)
}

func TestSessionStoreClear(t *testing.T) {
	store := NewSessionStore(3*time.Hour, true)
	ctx, rec := newTestContext()

	store.Clear(ctx, "usr-1")

	c := sessionCookie(t, rec)
	assert.Empty(t, c.Value)
	assert.True(t, c.Expires.Before(time.Now()))
}

func TestSessionStoreEvents(t *testing.T) {
	store := NewSessionStore(time.Hour, false)

	var got []AuthEvent
	unsubscribe := store.Subscribe(func(evt AuthEvent) { got = append(got, evt) })

	ctx, _ := newTestContext()
	store.Persist(ctx, "t1", "usr-1", false)
	store.Persist(ctx, "t2", "usr-1", true)
	store.Clear(ctx, "usr-1")

	// dispatch is synchronous, events are visible immediately
	require.Len(t, got, 3)
	assert.Equal(t, EventSignedIn, got[0].Type)
	assert.Equal(t, EventTokenRefreshed, got[1].Type)
	assert.Equal(t, EventSignedOut, got[2].Type)
	assert.Equal(t, "usr-1", got[0].UserID)

	// no delivery after unsubscribe; a second unsubscribe is a no-op
	unsubscribe()
	unsubscribe()
	store.Persist(ctx, "t3", "usr-2", false)
	assert.Len(t, got, 3)
}

func TestSessionStoreMultipleSubscribers(t *testing.T) {
	store := NewSessionStore(time.Hour, false)

	var a, b int
	store.Subscribe(func(AuthEvent) { a++ })
	unsubB := store.Subscribe(func(AuthEvent) { b++ })

	ctx, _ := newTestContext()
	store.Persist(ctx, "t", "usr-1", false)
	unsubB()
	store.Clear(ctx, "usr-1")

	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}
