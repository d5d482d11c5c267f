package echoapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// extractToken looks for a bearer token first, then the session cookie.
func extractToken(ctx echo.Context) string {
	if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return auth[len("Bearer "):]
		}
	}
	if cookie, err := ctx.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// authMiddleware guards API endpoints: a valid token (bearer header or
// session cookie) is required, failures get a 401 JSON body.
func authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token := extractToken(ctx)
			if token == "" {
				return errMissingToken
			}
			claims, err := ParseToken(token)
			if err != nil {
				return errUnauthorized
			}
			ctx.Set(contextTokenKey, claims)
			return next(ctx)
		}
	}
}

// guardMiddleware protects the dashboard pages: requests without a valid
// session cookie are bounced to the sign-in page instead of getting an API
// error. Verification is local, no user lookup.
func guardMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cookie, err := ctx.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return ctx.Redirect(http.StatusFound, "/")
			}
			claims, err := ParseToken(cookie.Value)
			if err != nil {
				return ctx.Redirect(http.StatusFound, "/")
			}
			ctx.Set(contextTokenKey, claims)
			return next(ctx)
		}
	}
}

// rateLimitMiddleware applies a per-client-IP token bucket; over-limit
// requests get 429.
func rateLimitMiddleware(limit float64, burst int) echo.MiddlewareFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Limit(limit), burst)
			limiters[ip] = lim
		}
		return lim
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !getLimiter(ctx.RealIP()).Allow() {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
