// file: internal/server/admin_handlers.go
// version: 1.0.0
// guid: e0b6d8f3-72a1-4c49-95e7-1d4a8c30f6b2

package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
)

// resolveModerationToken validates a token against the expected kind. The
// token itself is the credential; these routes arrive from moderation emails
// with no session.
func (s *Server) resolveModerationToken(c *gin.Context, token, kind string) (*database.ModerationToken, bool) {
	tok, err := s.store.GetModerationToken(token)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "moderation token", "")
		return nil, false
	}
	if err != nil {
		metrics.IncStoreError("GetModerationToken")
		RespondWithStoreUnavailable(c)
		return nil, false
	}
	if tok.Kind != kind || time.Now().After(tok.ExpiresAt) {
		RespondWithNotFound(c, "moderation token", "")
		return nil, false
	}
	return tok, true
}

// adminBanLink previews a pending ban so the moderator can confirm before
// the destructive step.
func (s *Server) adminBanLink(c *gin.Context) {
	tok, ok := s.resolveModerationToken(c, c.Param("token"), "ban")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"action":     "ban",
		"person_id":  tok.PersonID,
		"confirm_at": "/admin/ban/" + tok.Token,
		"expires_at": tok.ExpiresAt,
	})
}

// adminBan bans the person and consumes the token.
func (s *Server) adminBan(c *gin.Context) {
	tok, ok := s.resolveModerationToken(c, c.Param("token"), "ban")
	if !ok {
		return
	}

	if err := s.store.BanPerson(tok.PersonID); err != nil && !errors.Is(err, database.ErrNotFound) {
		metrics.IncStoreError("BanPerson")
		RespondWithStoreUnavailable(c)
		return
	}
	if err := s.store.DeleteModerationToken(tok.Token); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("[WARN] could not consume ban token: %v", err)
	}
	s.dispatcher.InvalidateWindow(tok.PersonID)

	log.Printf("[INFO] person %d banned via moderation token", tok.PersonID)
	c.JSON(http.StatusOK, gin.H{"banned": true, "person_id": tok.PersonID})
}

// adminDeletePhotoLink previews a pending photo deletion.
func (s *Server) adminDeletePhotoLink(c *gin.Context) {
	tok, ok := s.resolveModerationToken(c, c.Param("token"), "delete-photo")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"action":     "delete-photo",
		"person_id":  tok.PersonID,
		"confirm_at": "/admin/delete-photo/" + tok.Token,
		"expires_at": tok.ExpiresAt,
	})
}

// adminDeletePhoto clears the person's photo and consumes the token.
func (s *Server) adminDeletePhoto(c *gin.Context) {
	tok, ok := s.resolveModerationToken(c, c.Param("token"), "delete-photo")
	if !ok {
		return
	}

	if err := s.store.ClearPhoto(tok.PersonID); err != nil && !errors.Is(err, database.ErrNotFound) {
		metrics.IncStoreError("ClearPhoto")
		RespondWithStoreUnavailable(c)
		return
	}
	if err := s.store.DeleteModerationToken(tok.Token); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("[WARN] could not consume delete-photo token: %v", err)
	}

	log.Printf("[INFO] photo deleted for person %d via moderation token", tok.PersonID)
	c.JSON(http.StatusOK, gin.H{"photo_deleted": true, "person_id": tok.PersonID})
}
