// file: internal/server/otp_handlers.go
// version: 1.0.0
// guid: f5c09e72-8b14-4da6-93c5-7e2f0a6d41b8

package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/matchwell/internal/config"
	"github.com/jdfalk/matchwell/internal/database"
	"github.com/jdfalk/matchwell/internal/metrics"
	"github.com/jdfalk/matchwell/internal/server/middleware"
	"golang.org/x/crypto/bcrypt"
)

const otpLength = 6

// generateOTP produces a random numeric one-time passcode.
func generateOTP() (string, error) {
	var sb strings.Builder
	for i := 0; i < otpLength; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "%d", digit.Int64())
	}
	return sb.String(), nil
}

func hashOTP(otp string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// issueOTP stamps a fresh passcode onto the session. Email delivery happens
// out of process; the passcode itself is never logged.
func (s *Server) issueOTP(sess *database.Session, email string) error {
	otp, err := generateOTP()
	if err != nil {
		return err
	}
	hash, err := hashOTP(otp)
	if err != nil {
		return err
	}
	sess.OTPHash = hash
	sess.OTPExpiresAt = time.Now().Add(config.AppConfig.OTPTTL)

	metrics.IncOTPIssued()
	log.Printf("[INFO] issued OTP for %s (expires %s)", email, sess.OTPExpiresAt.Format(time.RFC3339))
	return nil
}

// requestOTP starts the sign-in flow. Unknown emails get a fresh account so
// sign-up and sign-in are the same endpoint, as the client expects.
func (s *Server) requestOTP(c *gin.Context) {
	var req RequestOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	person, err := s.store.GetPersonByEmail(email)
	if errors.Is(err, database.ErrNotFound) {
		person, err = s.store.CreatePerson(&database.Person{
			Email:     email,
			Activated: true,
		})
	}
	if err != nil {
		metrics.IncStoreError("GetPersonByEmail")
		RespondWithStoreUnavailable(c)
		return
	}
	if person.Banned {
		RespondWithUnauthorized(c, "invalid session", "INVALID_SESSION")
		return
	}

	sess := &database.Session{
		Token:     database.NewULID(),
		PersonID:  person.ID,
		SignedIn:  false,
		ExpiresAt: time.Now().Add(config.AppConfig.SessionTTL),
	}
	if err := s.issueOTP(sess, email); err != nil {
		RespondWithInternalError(c, "could not issue OTP")
		return
	}
	if err := s.store.CreateSession(sess); err != nil {
		metrics.IncStoreError("CreateSession")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_token": sess.Token,
		"onboarded":     person.OnboardingComplete,
	})
}

// resendOTP replaces the pending passcode on an existing, not yet signed-in
// session.
func (s *Server) resendOTP(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	stored, err := s.store.GetSessionByToken(sess.Token)
	if err != nil {
		metrics.IncStoreError("GetSessionByToken")
		RespondWithStoreUnavailable(c)
		return
	}

	if err := s.issueOTP(stored, sess.Email); err != nil {
		RespondWithInternalError(c, "could not issue OTP")
		return
	}
	if err := s.store.UpdateSession(stored); err != nil {
		metrics.IncStoreError("UpdateSession")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// checkOTP completes the challenge and flips the session to signed-in.
func (s *Server) checkOTP(c *gin.Context) {
	var req CheckOTPRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sess, _ := middleware.CurrentSession(c)

	stored, err := s.store.GetSessionByToken(sess.Token)
	if err != nil {
		metrics.IncStoreError("GetSessionByToken")
		RespondWithStoreUnavailable(c)
		return
	}

	if stored.OTPHash == "" || time.Now().After(stored.OTPExpiresAt) {
		RespondWithUnauthorized(c, "OTP expired", "INVALID_OTP")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.OTPHash), []byte(strings.TrimSpace(req.OTP))) != nil {
		metrics.IncAuthFailure("bad_otp")
		RespondWithUnauthorized(c, "incorrect OTP", "INVALID_OTP")
		return
	}

	stored.SignedIn = true
	stored.OTPHash = ""
	stored.OTPExpiresAt = time.Time{}
	if err := s.store.UpdateSession(stored); err != nil {
		metrics.IncStoreError("UpdateSession")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"onboarded": sess.Onboarded,
	})
}

// signOut deletes the session server-side.
func (s *Server) signOut(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	if err := s.store.DeleteSession(sess.Token); err != nil && !errors.Is(err, database.ErrNotFound) {
		metrics.IncStoreError("DeleteSession")
		RespondWithStoreUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// checkSessionToken reports where the caller stands in the lifecycle.
func (s *Server) checkSessionToken(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	c.JSON(http.StatusOK, gin.H{
		"person_id":   sess.PersonID,
		"person_uuid": sess.PersonUUID,
		"onboarded":   sess.Onboarded,
		"signed_in":   sess.SignedIn,
	})
}
