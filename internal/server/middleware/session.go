// file: internal/server/middleware/session.go
// version: 1.0.0
// guid: d6b91e37-40fa-4c28-95b3-7e0c2a8d51f6

package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
)

const (
	// SessionCookieName is the auth session cookie used by API clients.
	SessionCookieName = "session_id"
	contextSessionKey = "session_context"
)

// SessionContext is the per-request view of a resolved credential: who the
// person is and where they stand in the onboarding/sign-in lifecycle. It is
// rebuilt from the store on every request and never cached across requests.
type SessionContext struct {
	Token      string
	PersonID   int
	PersonUUID string
	Email      string
	Onboarded  bool
	SignedIn   bool
}

// StatusPredicate is a route's expected-status constraint. A nil field
// matches any value.
type StatusPredicate struct {
	Onboarded *bool
	SignedIn  *bool
}

// Matches reports whether the resolved session satisfies the predicate.
func (p StatusPredicate) Matches(s SessionContext) bool {
	if p.Onboarded != nil && *p.Onboarded != s.Onboarded {
		return false
	}
	if p.SignedIn != nil && *p.SignedIn != s.SignedIn {
		return false
	}
	return true
}

// AnyStatus matches every session.
func AnyStatus() StatusPredicate { return StatusPredicate{} }

// Onboarded requires onboarding_complete == v.
func Onboarded(v bool) StatusPredicate { return StatusPredicate{Onboarded: &v} }

// SignedIn requires sign_in status == v.
func SignedIn(v bool) StatusPredicate { return StatusPredicate{SignedIn: &v} }

// OnboardedAndSignedIn requires both statuses exactly. The default for
// routes behind the full onboarding flow.
func OnboardedAndSignedIn() StatusPredicate {
	yes := true
	return StatusPredicate{Onboarded: &yes, SignedIn: &yes}
}

// SessionTokenFromRequest extracts the session token from Bearer auth or cookie.
func SessionTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// CurrentSession fetches the resolved session context from Gin context.
func CurrentSession(c *gin.Context) (SessionContext, bool) {
	if c == nil {
		return SessionContext{}, false
	}
	value, ok := c.Get(contextSessionKey)
	if !ok {
		return SessionContext{}, false
	}
	sess, ok := value.(SessionContext)
	return sess, ok
}

func rejectInvalidSession(c *gin.Context) {
	metrics.IncAuthFailure("invalid_session")
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "invalid session",
		"code":  "INVALID_SESSION",
	})
	c.Abort()
}

func rejectStatusMismatch(c *gin.Context) {
	metrics.IncAuthFailure("status_mismatch")
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": "session does not match the required account status",
		"code":  "STATUS_MISMATCH",
	})
	c.Abort()
}

// RequireSession resolves the request's credential against the session store
// and gates on the route's expected-status predicate. Resolution failures
// are terminal 401s; a store outage also fails closed as 401 rather than
// letting the request through unauthenticated.
func RequireSession(store database.Store, expect StatusPredicate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionTokenFromRequest(c.Request)
		if token == "" {
			rejectInvalidSession(c)
			return
		}

		sess, err := store.GetSessionByToken(token)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				log.Printf("[ERROR] session store lookup failed: %v (failing closed)", err)
				metrics.IncStoreError("GetSessionByToken")
			}
			rejectInvalidSession(c)
			return
		}
		if time.Now().After(sess.ExpiresAt) {
			_ = store.DeleteSession(token)
			rejectInvalidSession(c)
			return
		}

		person, err := store.GetPersonByID(sess.PersonID)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				log.Printf("[ERROR] person lookup failed for session: %v (failing closed)", err)
				metrics.IncStoreError("GetPersonByID")
			}
			rejectInvalidSession(c)
			return
		}
		if person.Banned {
			rejectInvalidSession(c)
			return
		}

		resolved := SessionContext{
			Token:      sess.Token,
			PersonID:   person.ID,
			PersonUUID: person.UUID,
			Email:      person.Email,
			Onboarded:  person.OnboardingComplete,
			SignedIn:   sess.SignedIn,
		}

		if !expect.Matches(resolved) {
			rejectStatusMismatch(c)
			return
		}

		c.Set(contextSessionKey, resolved)
		c.Next()
	}
}

// SetSessionForTest injects a session context directly, for handler tests
// that bypass credential resolution.
func SetSessionForTest(c *gin.Context, sess SessionContext) {
	c.Set(contextSessionKey, sess)
}
