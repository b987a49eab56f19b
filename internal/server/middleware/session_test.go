// file: internal/server/middleware/session_test.go
// version: 1.0.0
// guid: 7b3c5e90-a1f2-4d68-b4c7-9e0d2f6a81c5

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func seedPersonAndSession(t *testing.T, store *database.MockStore, onboarded, signedIn bool) (*database.Person, *database.Session) {
	t.Helper()

	person, err := store.CreatePerson(&database.Person{
		Email:              "sam@example.com",
		Name:               "Sam",
		OnboardingComplete: onboarded,
		Activated:          true,
	})
	require.NoError(t, err)

	session := &database.Session{
		Token:     database.NewULID(),
		PersonID:  person.ID,
		SignedIn:  signedIn,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, store.CreateSession(session))
	return person, session
}

func sessionTestRouter(store database.Store, expect StatusPredicate) *gin.Engine {
	router := gin.New()
	router.GET("/protected", RequireSession(store, expect), func(c *gin.Context) {
		sess, ok := CurrentSession(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no session in context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"person_id": sess.PersonID})
	})
	return router
}

func doAuthedRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireSessionValidToken(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	_, session := seedPersonAndSession(t, store, true, true)
	router := sessionTestRouter(store, OnboardedAndSignedIn())

	w := doAuthedRequest(router, session.Token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSessionCookieToken(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	_, session := seedPersonAndSession(t, store, true, true)
	router := sessionTestRouter(store, AnyStatus())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: session.Token})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireSessionMissingToken(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	router := sessionTestRouter(store, AnyStatus())

	w := doAuthedRequest(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SESSION")
}

func TestRequireSessionUnknownToken(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	router := sessionTestRouter(store, AnyStatus())

	w := doAuthedRequest(router, "no-such-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SESSION")
}

func TestRequireSessionExpired(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	person, _ := seedPersonAndSession(t, store, true, true)
	expired := &database.Session{
		Token:     database.NewULID(),
		PersonID:  person.ID,
		SignedIn:  true,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.CreateSession(expired))
	router := sessionTestRouter(store, AnyStatus())

	w := doAuthedRequest(router, expired.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The expired session gets purged on first use.
	_, err := store.GetSessionByToken(expired.Token)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRequireSessionBannedPerson(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	person, session := seedPersonAndSession(t, store, true, true)
	person.Banned = true
	require.NoError(t, store.UpdatePerson(person))
	router := sessionTestRouter(store, AnyStatus())

	w := doAuthedRequest(router, session.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SESSION")
}

func TestRequireSessionStoreOutageFailsClosed(t *testing.T) {
	t.Parallel()

	store := database.NewMockStore()
	_, session := seedPersonAndSession(t, store, true, true)
	store.FailOps["GetSessionByToken"] = true
	router := sessionTestRouter(store, AnyStatus())

	w := doAuthedRequest(router, session.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSessionStatusMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		onboarded bool
		signedIn  bool
		expect    StatusPredicate
		wantCode  int
	}{
		{"onboardee blocked from member route", false, false, OnboardedAndSignedIn(), http.StatusUnauthorized},
		{"member blocked from onboarding route", true, true, Onboarded(false), http.StatusUnauthorized},
		{"signed-out blocked from signed-in route", true, false, SignedIn(true), http.StatusUnauthorized},
		{"any status admits onboardee", false, false, AnyStatus(), http.StatusOK},
		{"onboarding route admits onboardee", false, false, Onboarded(false), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := database.NewMockStore()
			_, session := seedPersonAndSession(t, store, tt.onboarded, tt.signedIn)
			router := sessionTestRouter(store, tt.expect)

			w := doAuthedRequest(router, session.Token)
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "STATUS_MISMATCH")
			}
		})
	}
}

func TestSessionTokenFromRequestPrefersBearer(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})

	assert.Equal(t, "header-token", SessionTokenFromRequest(req))
}

func TestSessionTokenFromRequestEmpty(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", SessionTokenFromRequest(req))

	req.Header.Set("Authorization", "Bearer ")
	assert.Equal(t, "", SessionTokenFromRequest(req))
}

func TestStatusPredicateMatches(t *testing.T) {
	t.Parallel()

	sess := SessionContext{Onboarded: true, SignedIn: false}

	assert.True(t, AnyStatus().Matches(sess))
	assert.True(t, Onboarded(true).Matches(sess))
	assert.False(t, Onboarded(false).Matches(sess))
	assert.True(t, SignedIn(false).Matches(sess))
	assert.False(t, OnboardedAndSignedIn().Matches(sess))
}
