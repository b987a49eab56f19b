// file: internal/server/person_handlers.go
// version: 1.0.0
// guid: a9d2e6b0-5f73-4c18-b04a-8e1c6d9f52a7

package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/server/middleware"
)

func personView(p *database.Person) gin.H {
	return gin.H{
		"person_id":   p.ID,
		"person_uuid": p.UUID,
		"name":        p.Name,
		"gender":      p.Gender,
		"about_me":    p.AboutMe,
		"photo_uuid":  p.PhotoUUID,
	}
}

func (s *Server) currentPerson(c *gin.Context) (*database.Person, bool) {
	sess, _ := middleware.CurrentSession(c)
	person, err := s.store.GetPersonByID(sess.PersonID)
	if err != nil {
		metrics.IncStoreError("GetPersonByID")
		RespondWithStoreUnavailable(c)
		return nil, false
	}
	return person, true
}

// getMe returns the caller's own profile.
func (s *Server) getMe(c *gin.Context) {
	person, ok := s.currentPerson(c)
	if !ok {
		return
	}
	view := personView(person)
	view["email"] = person.Email
	view["activated"] = person.Activated
	c.JSON(http.StatusOK, view)
}

// getPersonByID returns another member's profile by numeric id.
func (s *Server) getPersonByID(c *gin.Context) {
	id := middleware.ParamInt(c, "person_id")

	person, err := s.store.GetPersonByID(id)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "person", strconv.Itoa(id))
		return
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByID")
		RespondWithStoreUnavailable(c)
		return
	}
	if person.Banned || !person.Activated {
		RespondWithNotFound(c, "person", strconv.Itoa(id))
		return
	}
	c.JSON(http.StatusOK, personView(person))
}

// getProspectProfile returns a profile addressed by UUID, the form the
// client uses from search results.
func (s *Server) getProspectProfile(c *gin.Context) {
	uuid := c.Param("prospect_uuid")

	person, err := s.store.GetPersonByUUID(uuid)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "person", uuid)
		return
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByUUID")
		RespondWithStoreUnavailable(c)
		return
	}
	if person.Banned || !person.Activated {
		RespondWithNotFound(c, "person", uuid)
		return
	}

	sess, _ := middleware.CurrentSession(c)
	view := personView(person)
	view["clubs"], _ = s.store.GetPersonClubs(person.ID)
	if _, err := s.store.GetSkip(sess.PersonID, person.ID); err == nil {
		view["skipped"] = true
	} else {
		view["skipped"] = false
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) applyProfilePatch(c *gin.Context, req ProfilePatchRequest) {
	person, ok := s.currentPerson(c)
	if !ok {
		return
	}

	if req.Name != nil {
		person.Name = strings.TrimSpace(*req.Name)
	}
	if req.Gender != nil {
		person.Gender = *req.Gender
	}
	if req.AboutMe != nil {
		person.AboutMe = *req.AboutMe
	}

	if err := s.store.UpdatePerson(person); err != nil {
		metrics.IncStoreError("UpdatePerson")
		RespondWithStoreUnavailable(c)
		return
	}
	c.JSON(http.StatusOK, personView(person))
}

func (s *Server) applyProfileFieldDeletes(c *gin.Context, req DeleteFieldsRequest) {
	person, ok := s.currentPerson(c)
	if !ok {
		return
	}

	for _, field := range req.Fields {
		switch field {
		case "name":
			person.Name = ""
		case "gender":
			person.Gender = ""
		case "about_me":
			person.AboutMe = ""
		case "photo":
			person.PhotoUUID = nil
		}
	}

	if err := s.store.UpdatePerson(person); err != nil {
		metrics.IncStoreError("UpdatePerson")
		RespondWithStoreUnavailable(c)
		return
	}
	c.JSON(http.StatusOK, personView(person))
}

// patchOnboardeeInfo updates profile fields before onboarding completes.
func (s *Server) patchOnboardeeInfo(c *gin.Context) {
	var req ProfilePatchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s.applyProfilePatch(c, req)
}

// deleteOnboardeeInfo clears profile fields before onboarding completes.
func (s *Server) deleteOnboardeeInfo(c *gin.Context) {
	var req DeleteFieldsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s.applyProfileFieldDeletes(c, req)
}

// finishOnboarding marks the account as fully onboarded. The route is gated
// to onboarded=false, so a finished account can never re-enter onboarding.
func (s *Server) finishOnboarding(c *gin.Context) {
	person, ok := s.currentPerson(c)
	if !ok {
		return
	}

	var fields []FieldError
	if strings.TrimSpace(person.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name must be set before finishing onboarding"})
	}
	if person.Gender == "" {
		fields = append(fields, FieldError{Field: "gender", Message: "gender must be set before finishing onboarding"})
	}
	if len(fields) > 0 {
		RespondWithFieldErrors(c, fields)
		return
	}

	person.OnboardingComplete = true
	person.Activated = true
	if err := s.store.UpdatePerson(person); err != nil {
		metrics.IncStoreError("UpdatePerson")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"onboarded": true})
}

// getProfileInfo returns the caller's profile plus preference state.
func (s *Server) getProfileInfo(c *gin.Context) {
	person, ok := s.currentPerson(c)
	if !ok {
		return
	}

	view := personView(person)
	view["email"] = person.Email
	view["clubs"], _ = s.store.GetPersonClubs(person.ID)
	if pref, err := s.store.GetSearchPreference(person.ID); err == nil {
		view["search_preference"] = gin.H{
			"gender_preference": pref.GenderPreference,
			"min_age":           pref.MinAge,
			"max_age":           pref.MaxAge,
		}
	}
	c.JSON(http.StatusOK, view)
}

// patchProfileInfo updates profile fields after onboarding.
func (s *Server) patchProfileInfo(c *gin.Context) {
	var req ProfilePatchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s.applyProfilePatch(c, req)
}

// deleteProfileInfo clears profile fields after onboarding.
func (s *Server) deleteProfileInfo(c *gin.Context) {
	var req DeleteFieldsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	s.applyProfileFieldDeletes(c, req)
}

// postInboxInfo resolves a batch of conversation partners to profile cards.
func (s *Server) postInboxInfo(c *gin.Context) {
	var req InboxInfoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	profiles := make([]gin.H, 0, len(req.PersonUUIDs))
	for _, uuid := range req.PersonUUIDs {
		person, err := s.store.GetPersonByUUID(uuid)
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			metrics.IncStoreError("GetPersonByUUID")
			RespondWithStoreUnavailable(c)
			return
		}
		card := gin.H{
			"person_uuid": person.UUID,
			"name":        person.Name,
			"photo_uuid":  person.PhotoUUID,
			"available":   person.Activated && !person.Banned,
		}
		profiles = append(profiles, card)
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// deleteAccount removes the person and every session they hold.
func (s *Server) deleteAccount(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	if err := s.store.DeleteSessionsForPerson(sess.PersonID); err != nil {
		metrics.IncStoreError("DeleteSessionsForPerson")
		RespondWithStoreUnavailable(c)
		return
	}
	if err := s.store.DeletePerson(sess.PersonID); err != nil && !errors.Is(err, database.ErrNotFound) {
		metrics.IncStoreError("DeletePerson")
		RespondWithStoreUnavailable(c)
		return
	}
	s.dispatcher.InvalidateWindow(sess.PersonID)

	log.Printf("[INFO] account %d deleted", sess.PersonID)
	RespondWithNoContent(c)
}

// deactivate hides the account from search until the next sign-in.
func (s *Server) deactivate(c *gin.Context) {
	person, ok := s.currentPerson(c)
	if !ok {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	person.Activated = false
	if err := s.store.UpdatePerson(person); err != nil {
		metrics.IncStoreError("UpdatePerson")
		RespondWithStoreUnavailable(c)
		return
	}
	if err := s.store.DeleteSession(sess.Token); err != nil && !errors.Is(err, database.ErrNotFound) {
		metrics.IncStoreError("DeleteSession")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// updateNotifications handles unsubscribe-style links from notification
// emails; the email address itself is the credential.
func (s *Server) updateNotifications(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	frequency := c.DefaultQuery("frequency", "daily")

	if email == "" || !validEmail(email) {
		RespondWithFieldErrors(c, []FieldError{
			{Field: "email", Message: "a valid email query parameter is required"},
		})
		return
	}
	switch frequency {
	case "immediately", "daily", "never":
	default:
		RespondWithFieldErrors(c, []FieldError{
			{Field: "frequency", Message: "frequency must be one of immediately, daily, never"},
		})
		return
	}

	person, err := s.store.GetPersonByEmail(email)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "person", email)
		return
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByEmail")
		RespondWithStoreUnavailable(c)
		return
	}

	log.Printf("[INFO] notification frequency for person %d set to %s", person.ID, frequency)
	c.JSON(http.StatusOK, gin.H{"frequency": frequency})
}
