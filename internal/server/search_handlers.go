// file: internal/server/search_handlers.go
// version: 1.0.0
// guid: d7e3b1c5-09f8-4a62-8b3d-5c0e7f92a614

package server

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/config"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/location"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/ratelimit"
	"github.com/jdfalk/matchwell/internal/server/middleware"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// getSearch serves one page of prospects. The dispatcher decides whether the
// page comes from the materialized window or a fresh query, and throttles the
// fresh path.
func (s *Server) getSearch(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	params := ParsePaginationParams(c, config.AppConfig.SearchPageLimit)

	result, decision, err := s.dispatcher.Search(c, sess.PersonID, params.Limit, params.Offset)
	if !decision.Allowed {
		ratelimit.Reject(c, decision)
		return
	}
	if err != nil {
		metrics.IncStoreError("FreshQuery")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, result)
}

// searchLocations suggests locations during onboarding. Any session status
// is accepted; the client calls this before sign-in and onboarding complete.
func (s *Server) searchLocations(c *gin.Context) {
	query := c.Query("q")
	limit := ParseQueryInt(c, "n", 10)

	c.JSON(http.StatusOK, gin.H{"locations": location.Search(query, limit)})
}

// getSearchFilters returns the caller's preference plus pinned answers.
func (s *Server) getSearchFilters(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	resp := gin.H{}
	if pref, err := s.store.GetSearchPreference(sess.PersonID); err == nil {
		resp["gender_preference"] = pref.GenderPreference
		resp["min_age"] = pref.MinAge
		resp["max_age"] = pref.MaxAge
	} else if !errors.Is(err, database.ErrNotFound) {
		metrics.IncStoreError("GetSearchPreference")
		RespondWithStoreUnavailable(c)
		return
	}

	answers, err := s.store.ListFilterAnswers(sess.PersonID)
	if err != nil {
		metrics.IncStoreError("ListFilterAnswers")
		RespondWithStoreUnavailable(c)
		return
	}
	resp["answers"] = answers

	c.JSON(http.StatusOK, resp)
}

// postSearchFilter replaces the caller's search preference.
func (s *Server) postSearchFilter(c *gin.Context) {
	var req SearchFilterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	pref := &database.SearchPreference{
		PersonID:         sess.PersonID,
		GenderPreference: req.GenderPreference,
		MinAge:           req.MinAge,
		MaxAge:           req.MaxAge,
	}
	if pref.MinAge == 0 {
		pref.MinAge = 18
	}
	if pref.MaxAge == 0 {
		pref.MaxAge = 99
	}

	if err := s.store.SetSearchPreference(pref); err != nil {
		metrics.IncStoreError("SetSearchPreference")
		RespondWithStoreUnavailable(c)
		return
	}
	s.dispatcher.InvalidateWindow(sess.PersonID)

	c.JSON(http.StatusOK, gin.H{
		"gender_preference": pref.GenderPreference,
		"min_age":           pref.MinAge,
		"max_age":           pref.MaxAge,
	})
}

// getFilterQuestions lists questions available as search filters.
func (s *Server) getFilterQuestions(c *gin.Context) {
	params := ParsePaginationParams(c, 100)
	query := c.Query("q")

	questions, err := s.store.ListQuestions(query, params.Limit, params.Offset)
	if err != nil {
		metrics.IncStoreError("ListQuestions")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// postFilterAnswer pins (or clears, when answer is null) a required answer
// on the caller's search filter.
func (s *Server) postFilterAnswer(c *gin.Context) {
	var req FilterAnswerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	if _, err := s.store.GetQuestionByID(req.QuestionID); errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "question", "")
		return
	} else if err != nil {
		metrics.IncStoreError("GetQuestionByID")
		RespondWithStoreUnavailable(c)
		return
	}

	if req.Answer == nil {
		if err := s.store.DeleteFilterAnswer(sess.PersonID, req.QuestionID); err != nil && !errors.Is(err, database.ErrNotFound) {
			metrics.IncStoreError("DeleteFilterAnswer")
			RespondWithStoreUnavailable(c)
			return
		}
	} else {
		err := s.store.SetFilterAnswer(&database.FilterAnswer{
			PersonID:   sess.PersonID,
			QuestionID: req.QuestionID,
			Answer:     *req.Answer,
		})
		if err != nil {
			metrics.IncStoreError("SetFilterAnswer")
			RespondWithStoreUnavailable(c)
			return
		}
	}
	s.dispatcher.InvalidateWindow(sess.PersonID)

	c.JSON(http.StatusOK, gin.H{"question_id": req.QuestionID, "answer": req.Answer})
}

// searchClubs fuzzy-matches club names, best matches first, carrying member
// counts so the client can show club sizes.
func (s *Server) searchClubs(c *gin.Context) {
	query := c.Query("q")
	limit := ParseQueryInt(c, "n", 10)
	if limit < 1 {
		limit = 10
	}

	clubs, err := s.store.ListClubs()
	if err != nil {
		metrics.IncStoreError("ListClubs")
		RespondWithStoreUnavailable(c)
		return
	}

	if query != "" {
		names := make([]string, len(clubs))
		byName := make(map[string]database.Club, len(clubs))
		for i, club := range clubs {
			names[i] = club.Name
			byName[club.Name] = club
		}
		ranks := fuzzy.RankFindNormalizedFold(query, names)
		sort.Sort(ranks)

		matched := make([]database.Club, 0, len(ranks))
		for _, rank := range ranks {
			matched = append(matched, byName[rank.Target])
		}
		clubs = matched
	}

	if len(clubs) > limit {
		clubs = clubs[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"clubs": clubs})
}

// joinClub adds the caller to a club, creating it on first join.
func (s *Server) joinClub(c *gin.Context) {
	var req ClubRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	if err := s.store.JoinClub(sess.PersonID, req.ClubName); err != nil {
		metrics.IncStoreError("JoinClub")
		RespondWithStoreUnavailable(c)
		return
	}

	clubs, err := s.store.GetPersonClubs(sess.PersonID)
	if err != nil {
		metrics.IncStoreError("GetPersonClubs")
		RespondWithStoreUnavailable(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clubs": clubs})
}

// leaveClub removes the caller from a club.
func (s *Server) leaveClub(c *gin.Context) {
	var req ClubRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	if err := s.store.LeaveClub(sess.PersonID, req.ClubName); err != nil {
		metrics.IncStoreError("LeaveClub")
		RespondWithStoreUnavailable(c)
		return
	}

	clubs, err := s.store.GetPersonClubs(sess.PersonID)
	if err != nil {
		metrics.IncStoreError("GetPersonClubs")
		RespondWithStoreUnavailable(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clubs": clubs})
}
