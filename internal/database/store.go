// file: internal/database/store.go
// version: 1.0.0
// guid: f2a68d04-7e1b-4c59-a3d7-90b5e8c612f4

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when a lookup matches no live record.
var ErrNotFound = errors.New("not found")

// Person is an account. Onboarding status lives here; sign-in status lives
// on the session.
type Person struct {
	ID                 int       `json:"id"`
	UUID               string    `json:"uuid"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	AboutMe            string    `json:"about_me"`
	Gender             string    `json:"gender"`
	PhotoUUID          *string   `json:"photo_uuid,omitempty"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	Activated          bool      `json:"activated"`
	Banned             bool      `json:"banned"`
	CreatedAt          time.Time `json:"created_at"`
}

// Session is a credential record. The OTP code is stored only as a bcrypt
// hash; SignedIn flips once the OTP challenge is passed.
type Session struct {
	Token        string    `json:"token"`
	PersonID     int       `json:"person_id"`
	OTPHash      string    `json:"otp_hash"`
	OTPExpiresAt time.Time `json:"otp_expires_at"`
	SignedIn     bool      `json:"signed_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Skip records one account passing on another, optionally with an abuse
// report that triggers moderation work.
type Skip struct {
	SkipperID    int       `json:"skipper_id"`
	ProspectID   int       `json:"prospect_id"`
	ReportReason *string   `json:"report_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Question is a personality question with aggregate answer counts.
type Question struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Topic    string `json:"topic"`
	CountYes int    `json:"count_yes"`
	CountNo  int    `json:"count_no"`
}

// Answer is one person's answer to a question.
type Answer struct {
	PersonID   int  `json:"person_id"`
	QuestionID int  `json:"question_id"`
	Answer     bool `json:"answer"`
	Public     bool `json:"public"`
}

// FilterAnswer pins a required answer on a search filter: prospects whose
// public answer differs are filtered out of fresh search results.
type FilterAnswer struct {
	PersonID   int  `json:"person_id"`
	QuestionID int  `json:"question_id"`
	Answer     bool `json:"answer"`
}

// Club is a named interest group.
type Club struct {
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// SearchPreference holds a person's match filters.
type SearchPreference struct {
	PersonID         int    `json:"person_id"`
	GenderPreference string `json:"gender_preference"`
	MinAge           int    `json:"min_age"`
	MaxAge           int    `json:"max_age"`
}

// ModerationToken authorizes a single moderation action against a person.
type ModerationToken struct {
	Token     string    `json:"token"`
	PersonID  int       `json:"person_id"`
	Kind      string    `json:"kind"` // "ban" or "delete-photo"
	ExpiresAt time.Time `json:"expires_at"`
}

// Store defines the interface for our database operations.
// This abstraction supports both SQLite (default) and PebbleDB.
type Store interface {
	// Lifecycle
	Close() error
	Reset() error

	// Persons
	CreatePerson(p *Person) (*Person, error)
	GetPersonByID(id int) (*Person, error)
	GetPersonByUUID(uuid string) (*Person, error)
	GetPersonByEmail(email string) (*Person, error)
	UpdatePerson(p *Person) error
	DeletePerson(id int) error
	CountPersons() (int, error)

	// Sessions
	CreateSession(s *Session) error
	GetSessionByToken(token string) (*Session, error)
	UpdateSession(s *Session) error
	DeleteSession(token string) error
	DeleteSessionsForPerson(personID int) error
	DeleteExpiredSessions(now time.Time) (int, error)
	CountSessions() (int, error)

	// Skips
	CreateSkip(s *Skip) error
	GetSkip(skipperID, prospectID int) (*Skip, error)
	DeleteSkip(skipperID, prospectID int) error

	// Questions and answers
	ListQuestions(query string, limit, offset int) ([]Question, error)
	GetQuestionByID(id int) (*Question, error)
	CreateQuestion(q *Question) (*Question, error)
	UpsertAnswer(a *Answer) error
	DeleteAnswer(personID, questionID int) error
	ListAnswers(personID int) ([]Answer, error)

	// Clubs
	ListClubs() ([]Club, error)
	GetPersonClubs(personID int) ([]string, error)
	JoinClub(personID int, club string) error
	LeaveClub(personID int, club string) error

	// Search preferences
	GetSearchPreference(personID int) (*SearchPreference, error)
	SetSearchPreference(p *SearchPreference) error
	SetFilterAnswer(f *FilterAnswer) error
	DeleteFilterAnswer(personID, questionID int) error
	ListFilterAnswers(personID int) ([]FilterAnswer, error)

	// Search
	ListActiveProfiles(excludePersonID, limit, offset int) ([]Person, error)

	// Moderation
	CreateModerationToken(tok *ModerationToken) error
	GetModerationToken(token string) (*ModerationToken, error)
	DeleteModerationToken(token string) error
	BanPerson(personID int) error
	ClearPhoto(personID int) error
}

// GlobalStore is the process-wide store handle, set by InitializeStore.
var GlobalStore Store

// InitializeStore initializes the database store based on configuration
func InitializeStore(dbType, path string) error {
	var err error

	switch dbType {
	case "sqlite", "sqlite3", "":
		GlobalStore, err = NewSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
	case "pebble":
		GlobalStore, err = NewPebbleStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
	default:
		return fmt.Errorf("unsupported database type: %s (supported: sqlite, pebble)", dbType)
	}

	return nil
}

// CloseStore closes the global store
func CloseStore() error {
	if GlobalStore != nil {
		err := GlobalStore.Close()
		GlobalStore = nil
		return err
	}
	return nil
}

// NewULID generates a ULID string for entity and token identifiers.
func NewULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
