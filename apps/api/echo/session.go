package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

// Auth lifecycle events emitted by the SessionStore.
const (
	EventSignedIn       = "SIGNED_IN"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventSignedOut      = "SIGNED_OUT"
)

type (
	// AuthEvent is delivered to session subscribers on every auth change.
	AuthEvent struct {
		Type   string
		UserID string
	}

	// SessionStore writes and clears the session cookie and fans auth events
	// out to subscribers. Dispatch is synchronous: Persist/Clear return only
	// after every subscriber has run.
	SessionStore struct {
		cookieDelta time.Duration
		secure      bool

		mu     sync.Mutex
		nextID int
		subs   map[int]func(AuthEvent)
	}
)

func NewSessionStore(cookieDelta time.Duration, secure bool) *SessionStore {
	return &SessionStore{
		cookieDelta: cookieDelta,
		secure:      secure,
		subs:        make(map[int]func(AuthEvent)),
	}
}

// Subscribe registers fn for auth events and returns an unsubscribe func.
// Unsubscribing twice is a no-op.
func (s *SessionStore) Subscribe(fn func(AuthEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SessionStore) notify(evt AuthEvent) {
	s.mu.Lock()
	fns := make([]func(AuthEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}

func (s *SessionStore) cookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// Persist writes the session cookie. The cookie expires a fixed delta after
// write time regardless of the token's own expiry; a refresh rewrites it and
// pushes the expiry forward.
func (s *SessionStore) Persist(ctx echo.Context, token, userID string, refreshed bool) {
	ctx.SetCookie(s.cookie(token, time.Now().Add(s.cookieDelta)))

	evtType := EventSignedIn
	if refreshed {
		evtType = EventTokenRefreshed
	}
	s.notify(AuthEvent{Type: evtType, UserID: userID})
}

// Clear expires the session cookie immediately.
func (s *SessionStore) Clear(ctx echo.Context, userID string) {
	ctx.SetCookie(s.cookie("", time.Unix(0, 0)))
	s.notify(AuthEvent{Type: EventSignedOut, UserID: userID})
}
