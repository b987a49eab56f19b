// file: internal/server/question_handlers.go
// version: 1.0.0
// guid: 1c7f4e92-b6a0-4d38-85c1-3f9e0b2d67a5

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/server/middleware"
)

// nextQuestions returns questions the caller has not answered yet.
func (s *Server) nextQuestions(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	params := ParsePaginationParams(c, 100)

	answered := make(map[int]bool)
	answers, err := s.store.ListAnswers(sess.PersonID)
	if err != nil {
		metrics.IncStoreError("ListAnswers")
		RespondWithStoreUnavailable(c)
		return
	}
	for _, a := range answers {
		answered[a.QuestionID] = true
	}

	// Over-fetch so filtering out answered questions still fills the page.
	questions, err := s.store.ListQuestions("", params.Limit+len(answered), params.Offset)
	if err != nil {
		metrics.IncStoreError("ListQuestions")
		RespondWithStoreUnavailable(c)
		return
	}

	unanswered := make([]database.Question, 0, params.Limit)
	for _, q := range questions {
		if answered[q.ID] {
			continue
		}
		unanswered = append(unanswered, q)
		if len(unanswered) >= params.Limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{"questions": unanswered})
}

// postAnswer records or updates the caller's answer to a question.
func (s *Server) postAnswer(c *gin.Context) {
	var req AnswerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	if _, err := s.store.GetQuestionByID(req.QuestionID); errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "question", strconv.Itoa(req.QuestionID))
		return
	} else if err != nil {
		metrics.IncStoreError("GetQuestionByID")
		RespondWithStoreUnavailable(c)
		return
	}

	answer := &database.Answer{
		PersonID:   sess.PersonID,
		QuestionID: req.QuestionID,
		Answer:     *req.Answer,
		Public:     req.Public,
	}
	if err := s.store.UpsertAnswer(answer); err != nil {
		metrics.IncStoreError("UpsertAnswer")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question_id": req.QuestionID,
		"answer":      *req.Answer,
		"public":      req.Public,
	})
}

// deleteAnswer removes the caller's answer to a question.
func (s *Server) deleteAnswer(c *gin.Context) {
	var req DeleteAnswerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	err := s.store.DeleteAnswer(sess.PersonID, req.QuestionID)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "answer", strconv.Itoa(req.QuestionID))
		return
	}
	if err != nil {
		metrics.IncStoreError("DeleteAnswer")
		RespondWithStoreUnavailable(c)
		return
	}

	RespondWithNoContent(c)
}

// prospectForCompare loads a prospect who is visible to comparisons.
func (s *Server) prospectForCompare(c *gin.Context, id int) (*database.Person, bool) {
	prospect, err := s.store.GetPersonByID(id)
	if errors.Is(err, database.ErrNotFound) {
		RespondWithNotFound(c, "person", strconv.Itoa(id))
		return nil, false
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByID")
		RespondWithStoreUnavailable(c)
		return nil, false
	}
	if prospect.Banned || !prospect.Activated {
		RespondWithNotFound(c, "person", strconv.Itoa(id))
		return nil, false
	}
	return prospect, true
}

// sharedAnswers pairs up questions both people answered, honoring the
// prospect's public flag.
func (s *Server) sharedAnswers(c *gin.Context, personID, prospectID int) (mine map[int]database.Answer, theirs []database.Answer, ok bool) {
	myAnswers, err := s.store.ListAnswers(personID)
	if err != nil {
		metrics.IncStoreError("ListAnswers")
		RespondWithStoreUnavailable(c)
		return nil, nil, false
	}
	mine = make(map[int]database.Answer, len(myAnswers))
	for _, a := range myAnswers {
		mine[a.QuestionID] = a
	}

	prospectAnswers, err := s.store.ListAnswers(prospectID)
	if err != nil {
		metrics.IncStoreError("ListAnswers")
		RespondWithStoreUnavailable(c)
		return nil, nil, false
	}
	theirs = make([]database.Answer, 0, len(prospectAnswers))
	for _, a := range prospectAnswers {
		if a.Public {
			theirs = append(theirs, a)
		}
	}
	return mine, theirs, true
}

// comparePersonalities scores agreement with a prospect on one topic. The
// topic path parameter is validated at the routing layer.
func (s *Server) comparePersonalities(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	prospectID := middleware.ParamInt(c, "prospect_person_id")
	topic := c.Param("topic")

	prospect, ok := s.prospectForCompare(c, prospectID)
	if !ok {
		return
	}
	mine, theirs, ok := s.sharedAnswers(c, sess.PersonID, prospect.ID)
	if !ok {
		return
	}

	shared, agreed := 0, 0
	for _, their := range theirs {
		my, answered := mine[their.QuestionID]
		if !answered {
			continue
		}
		question, err := s.store.GetQuestionByID(their.QuestionID)
		if err != nil {
			continue
		}
		if question.Topic != topic {
			continue
		}
		shared++
		if my.Answer == their.Answer {
			agreed++
		}
	}

	score := 0.0
	if shared > 0 {
		score = float64(agreed) / float64(shared)
	}

	c.JSON(http.StatusOK, gin.H{
		"prospect_person_id": prospect.ID,
		"topic":              topic,
		"score":              score,
		"shared_answers":     shared,
	})
}

// compareAnswers lists the questions both people answered, optionally
// filtered to agreements or disagreements and a single topic.
func (s *Server) compareAnswers(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)
	prospectID := middleware.ParamInt(c, "prospect_person_id")
	params := ParsePaginationParams(c, 100)

	agreement := c.DefaultQuery("agreement", "all")
	switch agreement {
	case "all", "agree", "disagree":
	default:
		RespondWithFieldErrors(c, []FieldError{
			{Field: "agreement", Message: "agreement must be one of all, agree, disagree"},
		})
		return
	}
	topic := c.Query("topic")
	if topic != "" {
		known := false
		for _, t := range middleware.PersonalityTopics {
			if topic == t {
				known = true
				break
			}
		}
		if !known {
			RespondWithFieldErrors(c, []FieldError{
				{Field: "topic", Message: "must be one of mbti, big5, attachment, politics, other"},
			})
			return
		}
	}

	prospect, ok := s.prospectForCompare(c, prospectID)
	if !ok {
		return
	}
	mine, theirs, ok := s.sharedAnswers(c, sess.PersonID, prospect.ID)
	if !ok {
		return
	}

	comparisons := []gin.H{}
	skipped := 0
	for _, their := range theirs {
		my, answered := mine[their.QuestionID]
		if !answered {
			continue
		}
		question, err := s.store.GetQuestionByID(their.QuestionID)
		if err != nil {
			continue
		}
		if topic != "" && question.Topic != topic {
			continue
		}
		agree := my.Answer == their.Answer
		if agreement == "agree" && !agree {
			continue
		}
		if agreement == "disagree" && agree {
			continue
		}
		if skipped < params.Offset {
			skipped++
			continue
		}
		comparisons = append(comparisons, gin.H{
			"question_id":     question.ID,
			"question":        question.Text,
			"topic":           question.Topic,
			"my_answer":       my.Answer,
			"prospect_answer": their.Answer,
			"agree":           agree,
		})
		if len(comparisons) >= params.Limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"prospect_person_id": prospect.ID,
		"comparisons":        comparisons,
	})
}
