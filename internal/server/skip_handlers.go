// file: internal/server/skip_handlers.go
// version: 1.0.0
// guid: c3a8f1d7-6e25-4b90-8d4f-0a7c2e58b1d6

package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/ratelimit"
	"github.com/jdfalk/matchwell/internal/server/middleware"
)

// performSkip records the skip and answers the client. A plain skip is
// unthrottled; a skip carrying an abuse report must be admitted by every
// given rule first (account-scoped and IP-scoped), because each report
// queues moderation work. Whichever branch runs, the client always receives
// the skip result.
func (s *Server) performSkip(c *gin.Context, req SkipRequest, prospect *database.Person, reportRules ...ratelimit.Rule) {
	sess, _ := middleware.CurrentSession(c)

	if prospect.ID == sess.PersonID {
		RespondWithFieldErrors(c, []FieldError{
			{Field: "prospect", Message: "cannot skip yourself"},
		})
		return
	}

	if req.Reported() {
		decision := s.limiter.Check(c, reportRules...)
		if !decision.Allowed {
			ratelimit.Reject(c, decision)
			return
		}
	}

	skip := &database.Skip{
		SkipperID:  sess.PersonID,
		ProspectID: prospect.ID,
	}
	if req.Reported() {
		reason := strings.TrimSpace(*req.ReportReason)
		skip.ReportReason = &reason
		log.Printf("[INFO] person %d reported person %d", sess.PersonID, prospect.ID)
	}

	if err := s.store.CreateSkip(skip); err != nil {
		metrics.IncStoreError("CreateSkip")
		RespondWithStoreUnavailable(c)
		return
	}

	// Each report mints the single-use tokens the moderation email links to.
	if req.Reported() {
		for _, kind := range []string{"ban", "delete-photo"} {
			err := s.store.CreateModerationToken(&database.ModerationToken{
				Token:     database.NewULID(),
				PersonID:  prospect.ID,
				Kind:      kind,
				ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
			})
			if err != nil {
				log.Printf("[WARN] could not create %s token for person %d: %v", kind, prospect.ID, err)
			}
		}
	}
	s.dispatcher.InvalidateWindow(sess.PersonID)

	c.JSON(http.StatusOK, gin.H{
		"skipped":       true,
		"reported":      req.Reported(),
		"prospect_id":   prospect.ID,
		"prospect_uuid": prospect.UUID,
	})
}

// skipByID skips a prospect addressed by numeric id.
func (s *Server) skipByID(c *gin.Context) {
	var req SkipRequest
	if !bindAndValidate(c, &req) {
		return
	}

	id := middleware.ParamInt(c, "prospect_person_id")
	prospect, err := s.store.GetPersonByID(id)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "person", strconv.Itoa(id))
		return
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByID")
		RespondWithStoreUnavailable(c)
		return
	}

	s.performSkip(c, req, prospect, s.skipReportRule, s.skipReportIPRule)
}

// skipByUUID skips a prospect addressed by UUID, the form used from search
// results. Reports here carry a tighter quota than the numeric route.
func (s *Server) skipByUUID(c *gin.Context) {
	var req SkipRequest
	if !bindAndValidate(c, &req) {
		return
	}

	uuid := c.Param("prospect_uuid")
	prospect, err := s.store.GetPersonByUUID(uuid)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "person", uuid)
		return
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByUUID")
		RespondWithStoreUnavailable(c)
		return
	}

	s.performSkip(c, req, prospect, s.skipUUIDReportRule, s.skipUUIDReportIPRule)
}

// unskip removes a previous skip so the prospect can reappear in search.
func (s *Server) unskip(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	id := middleware.ParamInt(c, "prospect_person_id")

	err := s.store.DeleteSkip(sess.PersonID, id)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "skip", strconv.Itoa(id))
		return
	}
	if err != nil {
		metrics.IncStoreError("DeleteSkip")
		RespondWithStoreUnavailable(c)
		return
	}
	s.dispatcher.InvalidateWindow(sess.PersonID)

	c.JSON(http.StatusOK, gin.H{"skipped": false, "prospect_id": id})
}
