// file: internal/server/person_handlers_test.go
// version: 1.0.0
// guid: 5d0f8a36-2b79-4e14-9c57-8a3d6f01e2c4

package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jdfalk/matchwell/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMe(t *testing.T) {
	srv, store := newTestServer(t)
	person, token := seedMember(t, store, "me@example.com")

	w := doRequest(srv, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.EqualValues(t, person.ID, body["person_id"])
	assert.Equal(t, person.UUID, body["person_uuid"])
	assert.Equal(t, "me@example.com", body["email"])
	assert.Equal(t, true, body["activated"])
}

func TestGetPersonByIDHidesBannedAndDeactivated(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "viewer@example.com")

	visible := seedPerson(t, store, "visible@example.com", true)
	banned := seedPerson(t, store, "gone@example.com", true)
	require.NoError(t, store.BanPerson(banned.ID))
	inactive := seedPerson(t, store, "paused@example.com", true)
	inactive.Activated = false
	require.NoError(t, store.UpdatePerson(inactive))

	w := doRequest(srv, http.MethodGet, fmt.Sprintf("/me/%d", visible.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	for _, id := range []int{banned.ID, inactive.ID} {
		w := doRequest(srv, http.MethodGet, fmt.Sprintf("/me/%d", id), token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestGetPersonByIDRejectsBadParam(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "params@example.com")

	w := doRequest(srv, http.MethodGet, "/me/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnboardingFlow(t *testing.T) {
	srv, store := newTestServer(t)
	person, err := store.CreatePerson(&database.Person{
		Email:     "newbie@example.com",
		Activated: true,
	})
	require.NoError(t, err)
	token := seedSession(t, store, person.ID, true)

	// Finishing with an empty profile reports every missing field at once.
	w := doRequest(srv, http.MethodPost, "/finish-onboarding", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	names := fieldNames(t, w)
	assert.Contains(t, names, "name")
	assert.Contains(t, names, "gender")

	w = doRequest(srv, http.MethodPatch, "/onboardee-info", token,
		map[string]string{"name": "Robin", "gender": "woman"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(srv, http.MethodPost, "/finish-onboarding", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["onboarded"])

	fresh, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.True(t, fresh.OnboardingComplete)
	assert.True(t, fresh.Activated)

	// The onboarding routes are now closed for this account.
	w = doRequest(srv, http.MethodPost, "/finish-onboarding", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPatchProfileValidation(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "strict@example.com")

	// Empty patch.
	w := doRequest(srv, http.MethodPatch, "/profile-info", token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldNames(t, w), "body")

	// Every violation reported together.
	w = doRequest(srv, http.MethodPatch, "/profile-info", token, map[string]any{
		"name":   strings.Repeat("x", 200),
		"gender": "dragon",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	names := fieldNames(t, w)
	assert.Contains(t, names, "name")
	assert.Contains(t, names, "gender")
}

func TestPatchAndDeleteProfileFields(t *testing.T) {
	srv, store := newTestServer(t)
	person, token := seedMember(t, store, "edit@example.com")

	w := doRequest(srv, http.MethodPatch, "/profile-info", token,
		map[string]string{"about_me": "likes long walks"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "likes long walks", decodeBody(t, w)["about_me"])

	w = doRequest(srv, http.MethodDelete, "/profile-info", token,
		map[string]any{"fields": []string{"about_me"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", decodeBody(t, w)["about_me"])

	fresh, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.AboutMe)

	// Unknown field names are refused.
	w = doRequest(srv, http.MethodDelete, "/profile-info", token,
		map[string]any{"fields": []string{"email"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldNames(t, w), "fields")
}

func TestProspectProfile(t *testing.T) {
	srv, store := newTestServer(t)
	viewer, token := seedMember(t, store, "curious@example.com")
	prospect := seedPerson(t, store, "interesting@example.com", true)
	require.NoError(t, store.JoinClub(prospect.ID, "chess"))

	w := doRequest(srv, http.MethodGet, "/prospect-profile/"+prospect.UUID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, prospect.UUID, body["person_uuid"])
	assert.Equal(t, []any{"chess"}, body["clubs"])
	assert.Equal(t, false, body["skipped"])

	require.NoError(t, store.CreateSkip(&database.Skip{SkipperID: viewer.ID, ProspectID: prospect.ID}))
	w = doRequest(srv, http.MethodGet, "/prospect-profile/"+prospect.UUID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["skipped"])

	require.NoError(t, store.BanPerson(prospect.ID))
	w = doRequest(srv, http.MethodGet, "/prospect-profile/"+prospect.UUID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInboxInfo(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "inbox@example.com")
	match := seedPerson(t, store, "match@example.com", true)
	banned := seedPerson(t, store, "troll@example.com", true)
	require.NoError(t, store.BanPerson(banned.ID))

	w := doRequest(srv, http.MethodPost, "/inbox-info", token, map[string]any{
		"person_uuids": []string{match.UUID, banned.UUID, "no-such-uuid"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	profiles := decodeBody(t, w)["profiles"].([]any)
	require.Len(t, profiles, 2)

	byUUID := map[string]map[string]any{}
	for _, p := range profiles {
		card := p.(map[string]any)
		byUUID[card["person_uuid"].(string)] = card
	}
	assert.Equal(t, true, byUUID[match.UUID]["available"])
	assert.Equal(t, false, byUUID[banned.UUID]["available"])
}

func TestInboxInfoValidation(t *testing.T) {
	srv, store := newTestServer(t)
	_, token := seedMember(t, store, "picky@example.com")

	w := doRequest(srv, http.MethodPost, "/inbox-info", token,
		map[string]any{"person_uuids": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fieldNames(t, w), "person_uuids")
}

func TestDeleteAccount(t *testing.T) {
	srv, store := newTestServer(t)
	person, token := seedMember(t, store, "leaver@example.com")

	w := doRequest(srv, http.MethodDelete, "/account", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err := store.GetPersonByID(person.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	w = doRequest(srv, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeactivate(t *testing.T) {
	srv, store := newTestServer(t)
	person, token := seedMember(t, store, "pauser@example.com")

	w := doRequest(srv, http.MethodPost, "/deactivate", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	fresh, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Activated)

	// The session that deactivated is revoked.
	w = doRequest(srv, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateNotifications(t *testing.T) {
	srv, store := newTestServer(t)
	seedPerson(t, store, "mailme@example.com", true)

	w := doRequest(srv, http.MethodGet, "/update-notifications?email=mailme@example.com&frequency=never", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "never", decodeBody(t, w)["frequency"])

	w = doRequest(srv, http.MethodGet, "/update-notifications?email=mailme@example.com&frequency=hourly", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(srv, http.MethodGet, "/update-notifications?email=unknown@example.com", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(srv, http.MethodGet, "/update-notifications", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
