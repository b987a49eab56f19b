// file: internal/server/server_test.go
// version: 1.0.0
// guid: 0e5d8b27-4a91-4f63-bc08-7d2e5a1f94c6

package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/config"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testConfig returns a config with rate limits generous enough that tests
// which are not about rate limiting never trip one.
func testConfig() config.Config {
	return config.Config{
		DatabaseType:        "mock",
		IPRequestsPerMinute: 100000,
		IPBurst:             10000,
		SessionTTL:          time.Hour,
		OTPTTL:              10 * time.Minute,
		SearchWindowTTL:     10 * time.Minute,
		SearchPageLimit:     100,
		UncachedSearchQuota: "1000 per minute",
		OTPQuota:            "1000 per minute",
		MaxBodyBytes:        1 << 20,
	}
}

func newTestServer(t *testing.T) (*Server, *database.MockStore) {
	t.Helper()
	return newTestServerWith(t, func(*config.Config) {})
}

func newTestServerWith(t *testing.T, tweak func(*config.Config)) (*Server, *database.MockStore) {
	t.Helper()

	cfg := testConfig()
	tweak(&cfg)
	config.AppConfig = cfg

	store := database.NewMockStore()
	srv, err := NewServer(store)
	require.NoError(t, err)
	return srv, store
}

func seedPerson(t *testing.T, store *database.MockStore, email string, onboarded bool) *database.Person {
	t.Helper()
	person, err := store.CreatePerson(&database.Person{
		Email:              email,
		Name:               "Sam",
		Gender:             "other",
		Activated:          true,
		OnboardingComplete: onboarded,
	})
	require.NoError(t, err)
	return person
}

func seedSession(t *testing.T, store *database.MockStore, personID int, signedIn bool) string {
	t.Helper()
	token := database.NewULID()
	require.NoError(t, store.CreateSession(&database.Session{
		Token:     token,
		PersonID:  personID,
		SignedIn:  signedIn,
		ExpiresAt: time.Now().Add(time.Hour),
	}))
	return token
}

// seedMember creates an onboarded, signed-in account and returns it with a
// valid session token.
func seedMember(t *testing.T, store *database.MockStore, email string) (*database.Person, string) {
	t.Helper()
	person := seedPerson(t, store, email, true)
	token := seedSession(t, store, person.ID, true)
	return person, token
}

func doRequest(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.7:51000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

// fieldNames extracts the violated field names from a validation response.
func fieldNames(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	body := decodeBody(t, w)
	require.Equal(t, "VALIDATION_ERROR", body["code"])

	raw, ok := body["fields"].([]any)
	require.True(t, ok, "fields missing: %s", w.Body.String())
	names := make([]string, 0, len(raw))
	for _, f := range raw {
		names = append(names, f.(map[string]any)["field"].(string))
	}
	return names
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_SESSION", decodeBody(t, w)["code"])
}

func TestStatusMismatchOnOnboardingRoute(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "done@example.com")

	// Already onboarded, so onboarding-only routes must refuse.
	w := doRequest(srv, http.MethodPost, "/finish-onboarding", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "STATUS_MISMATCH", decodeBody(t, w)["code"])
}

func TestSignedInRouteRefusesUnfinishedOnboarding(t *testing.T) {
	srv, store := newTestServer(t)
	person := seedPerson(t, store, "new@example.com", false)
	token := seedSession(t, store, person.ID, true)

	w := doRequest(srv, http.MethodGet, "/search", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "STATUS_MISMATCH", decodeBody(t, w)["code"])
}

func TestIPRateLimitExemptsHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServerWith(t, func(cfg *config.Config) {
		cfg.IPRequestsPerMinute = 1
		cfg.IPBurst = 1
	})

	// Burn the single token, then confirm the limiter kicks in.
	assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/stats", "", nil).Code)
	w := doRequest(srv, http.MethodGet, "/stats", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, w)["code"])

	// Operational probes keep answering.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/health", "", nil).Code)
		assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/metrics", "", nil).Code)
	}
}

func TestIPRateLimitDisabled(t *testing.T) {
	srv, _ := newTestServerWith(t, func(cfg *config.Config) {
		cfg.IPRequestsPerMinute = 1
		cfg.IPBurst = 1
		cfg.DisableIPRateLimit = true
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(srv, http.MethodGet, "/stats", "", nil).Code)
	}
}

func TestMetricsBasicAuth(t *testing.T) {
	srv, _ := newTestServerWith(t, func(cfg *config.Config) {
		cfg.MetricsAuthUsername = "ops"
		cfg.MetricsAuthPassword = "sesame"
	})

	w := doRequest(srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("ops", "sesame")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsAreCached(t *testing.T) {
	srv, store := newTestServer(t)
	seedPerson(t, store, "one@example.com", true)
	seedPerson(t, store, "two@example.com", true)

	w := doRequest(srv, http.MethodGet, "/stats", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decodeBody(t, w)["person_count"])

	seedPerson(t, store, "three@example.com", true)

	// Still the cached snapshot.
	w = doRequest(srv, http.MethodGet, "/stats", "", nil)
	assert.EqualValues(t, 2, decodeBody(t, w)["person_count"])

	srv.statsCache.SetNowForTest(func() time.Time { return time.Now().Add(time.Minute) })
	w = doRequest(srv, http.MethodGet, "/stats", "", nil)
	assert.EqualValues(t, 3, decodeBody(t, w)["person_count"])
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodOptions, "/me", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOversizedBodyRejected(t *testing.T) {
	srv, _ := newTestServerWith(t, func(cfg *config.Config) {
		cfg.MaxBodyBytes = 64
	})

	big := map[string]string{"email": string(bytes.Repeat([]byte("a"), 256))}
	w := doRequest(srv, http.MethodPost, "/request-otp", "", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/no-such-route", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
