// file: internal/server/admin_handlers_test.go
// version: 1.0.0
// guid: 2a8c5f91-7e04-4db6-93a8-1f6e0c42d7b9

package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/jdfalk/matchwell/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedModerationToken(t *testing.T, store *database.MockStore, personID int, kind string) string {
	t.Helper()
	token := database.NewULID()
	require.NoError(t, store.CreateModerationToken(&database.ModerationToken{
		Token:     token,
		PersonID:  personID,
		Kind:      kind,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}))
	return token
}

func TestAdminBanLinkPreview(t *testing.T) {
	srv, store := newTestServer(t)
	person := seedPerson(t, store, "preview@example.com", true)
	token := seedModerationToken(t, store, person.ID, "ban")

	w := doRequest(srv, http.MethodGet, "/admin/ban-link/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "ban", body["action"])
	assert.EqualValues(t, person.ID, body["person_id"])
	assert.Equal(t, "/admin/ban/"+token, body["confirm_at"])

	// The preview does not touch the account.
	fresh, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Banned)
}

func TestAdminBanIsSingleUse(t *testing.T) {
	srv, store := newTestServer(t)
	person, sessionToken := seedMember(t, store, "offender@example.com")
	token := seedModerationToken(t, store, person.ID, "ban")

	w := doRequest(srv, http.MethodGet, "/admin/ban/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["banned"])

	banned, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.True(t, banned.Banned)

	// Banning revokes every session.
	w = doRequest(srv, http.MethodGet, "/me", sessionToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Consumed token is gone.
	w = doRequest(srv, http.MethodGet, "/admin/ban/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDeletePhoto(t *testing.T) {
	srv, store := newTestServer(t)
	person := seedPerson(t, store, "photo@example.com", true)
	photo := database.NewULID()
	person.PhotoUUID = &photo
	require.NoError(t, store.UpdatePerson(person))

	token := seedModerationToken(t, store, person.ID, "delete-photo")

	w := doRequest(srv, http.MethodGet, "/admin/delete-photo/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["photo_deleted"])

	fresh, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.Nil(t, fresh.PhotoUUID)

	w = doRequest(srv, http.MethodGet, "/admin/delete-photo/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminTokenKindMismatch(t *testing.T) {
	srv, store := newTestServer(t)
	person := seedPerson(t, store, "kind@example.com", true)
	token := seedModerationToken(t, store, person.ID, "delete-photo")

	// A delete-photo token cannot ban.
	w := doRequest(srv, http.MethodGet, "/admin/ban/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	fresh, err := store.GetPersonByID(person.ID)
	require.NoError(t, err)
	assert.False(t, fresh.Banned)
}

func TestAdminTokenExpired(t *testing.T) {
	srv, store := newTestServer(t)
	person := seedPerson(t, store, "stale@example.com", true)

	token := database.NewULID()
	require.NoError(t, store.CreateModerationToken(&database.ModerationToken{
		Token:     token,
		PersonID:  person.ID,
		Kind:      "ban",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	w := doRequest(srv, http.MethodGet, "/admin/ban/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminUnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/admin/ban-link/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
