// file: internal/server/search_handlers_test.go
// version: 1.0.0
// guid: 4c6e1b83-9a27-4f50-8d1c-3b7f0e62a594

package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/jdfalk/matchwell/internal/config"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchServesAndCachesPages(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "seeker@example.com")
	for i := 0; i < 3; i++ {
		seedPerson(t, store, fmt.Sprintf("candidate%d@example.com", i), true)
	}

	// First page runs a fresh query and materializes a window.
	w := doRequest(srv, http.MethodGet, "/search?n=2&o=0", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "uncached", body["classification"])
	assert.Len(t, body["profiles"].([]any), 2)

	// The repeat lands inside the window and is served from it.
	w = doRequest(srv, http.MethodGet, "/search?n=2&o=0", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "cached", body["classification"])
	assert.Len(t, body["profiles"].([]any), 2)

	// A page past the window forces another fresh query.
	w = doRequest(srv, http.MethodGet, "/search?n=2&o=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uncached", decodeBody(t, w)["classification"])
}

func TestSearchExcludesSkippedAndSelf(t *testing.T) {
	srv, store := newTestServer(t)
	seeker, token := seedMember(t, store, "chooser@example.com")
	kept := seedPerson(t, store, "kept@example.com", true)
	dropped := seedPerson(t, store, "dropped@example.com", true)
	require.NoError(t, store.CreateSkip(&database.Skip{SkipperID: seeker.ID, ProspectID: dropped.ID}))

	w := doRequest(srv, http.MethodGet, "/search", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	profiles := decodeBody(t, w)["profiles"].([]any)
	require.Len(t, profiles, 1)
	assert.Equal(t, kept.UUID, profiles[0].(map[string]any)["person_uuid"])
}

func TestSearchUncachedPathThrottled(t *testing.T) {
	srv, store := newTestServerWith(t, func(cfg *config.Config) {
		cfg.UncachedSearchQuota = "1 per minute"
	})
	_, token := seedMember(t, store, "heavy@example.com")
	seedPerson(t, store, "somebody@example.com", true)
	seedPerson(t, store, "somebody-else@example.com", true)

	w := doRequest(srv, http.MethodGet, "/search?n=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Cached pages stay free even with the fresh-query quota spent.
	w = doRequest(srv, http.MethodGet, "/search?n=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cached", decodeBody(t, w)["classification"])

	// Invalidation forces the next page onto the throttled fresh path.
	w = doRequest(srv, http.MethodPost, "/search-filter", token,
		map[string]any{"gender_preference": "any"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodGet, "/search?n=2", token, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, w)["code"])
}

func TestSearchLocations(t *testing.T) {
	srv, store := newTestServer(t)

	// A session is required, but any onboarding and sign-in status will do:
	// the client suggests locations before either completes.
	person := seedPerson(t, store, "arriving@example.com", false)
	token := seedSession(t, store, person.ID, false)

	w := doRequest(srv, http.MethodGet, "/search-locations?q=londn", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	locations := decodeBody(t, w)["locations"].([]any)
	require.NotEmpty(t, locations)
	assert.Equal(t, "London", locations[0])
}

func TestSearchLocationsRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/search-locations?q=london", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_SESSION", decodeBody(t, w)["code"])
}

func TestSearchFilterRoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "filterer@example.com")

	// Empty state before any preference exists.
	w := doRequest(srv, http.MethodGet, "/search-filters", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Nil(t, body["gender_preference"])
	assert.Empty(t, body["answers"])

	w = doRequest(srv, http.MethodPost, "/search-filter", token, map[string]any{
		"gender_preference": "woman",
		"min_age":           25,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decodeBody(t, w)
	assert.Equal(t, "woman", body["gender_preference"])
	assert.EqualValues(t, 25, body["min_age"])
	assert.EqualValues(t, 99, body["max_age"]) // defaulted

	w = doRequest(srv, http.MethodGet, "/search-filters", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, "woman", body["gender_preference"])
	assert.EqualValues(t, 25, body["min_age"])
}

func TestSearchFilterValidation(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "strictfilter@example.com")

	w := doRequest(srv, http.MethodPost, "/search-filter", token, map[string]any{
		"gender_preference": "robot",
		"min_age":           40,
		"max_age":           30,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	names := fieldNames(t, w)
	assert.Contains(t, names, "gender_preference")
	assert.Contains(t, names, "max_age")
}

func TestFilterAnswerSetAndClear(t *testing.T) {
	srv, store := newTestServer(t)
	person, token := seedMember(t, store, "pinner@example.com")
	q, err := store.CreateQuestion(&database.Question{Text: "Do you want kids?", Topic: "other"})
	require.NoError(t, err)

	w := doRequest(srv, http.MethodPost, "/search-filter-answer", token,
		map[string]any{"question_id": q.ID, "answer": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	answers, err := store.ListFilterAnswers(person.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.True(t, answers[0].Answer)

	// Null answer clears the pin.
	w = doRequest(srv, http.MethodPost, "/search-filter-answer", token,
		map[string]any{"question_id": q.ID, "answer": nil})
	require.Equal(t, http.StatusOK, w.Code)

	answers, err = store.ListFilterAnswers(person.ID)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestFilterAnswerUnknownQuestion(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "pindangler@example.com")

	w := doRequest(srv, http.MethodPost, "/search-filter-answer", token,
		map[string]any{"question_id": 404, "answer": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFilterQuestionsSearch(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "browser@example.com")
	_, err := store.CreateQuestion(&database.Question{Text: "Do you like hiking?", Topic: "other"})
	require.NoError(t, err)
	_, err = store.CreateQuestion(&database.Question{Text: "Do you vote?", Topic: "politics"})
	require.NoError(t, err)

	w := doRequest(srv, http.MethodGet, "/search-filter-questions?q=hiking", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	questions := decodeBody(t, w)["questions"].([]any)
	require.Len(t, questions, 1)
	assert.Contains(t, questions[0].(map[string]any)["text"], "hiking")
}

func TestClubMembership(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "joiner@example.com")

	w := doRequest(srv, http.MethodPost, "/join-club", token, map[string]string{"club_name": "chess"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"chess"}, decodeBody(t, w)["clubs"])

	w = doRequest(srv, http.MethodPost, "/join-club", token, map[string]string{"club_name": "climbing"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"chess", "climbing"}, decodeBody(t, w)["clubs"])

	w = doRequest(srv, http.MethodPost, "/leave-club", token, map[string]string{"club_name": "chess"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"climbing"}, decodeBody(t, w)["clubs"])

	w = doRequest(srv, http.MethodPost, "/join-club", token, map[string]string{"club_name": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldNames(t, w), "club_name")
}

func TestSearchClubsFuzzyMatch(t *testing.T) {
	srv, store := newTestServer(t)
	member, token := seedMember(t, store, "clubber@example.com")
	require.NoError(t, store.JoinClub(member.ID, "board games"))
	require.NoError(t, store.JoinClub(member.ID, "bouldering"))
	require.NoError(t, store.JoinClub(member.ID, "cooking"))

	w := doRequest(srv, http.MethodGet, "/search-clubs?q=bolder", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	clubs := decodeBody(t, w)["clubs"].([]any)
	require.NotEmpty(t, clubs)
	first := clubs[0].(map[string]any)
	assert.Equal(t, "bouldering", first["name"])
	assert.EqualValues(t, 1, first["member_count"])
}
