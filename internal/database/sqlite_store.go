// file: internal/database/sqlite_store.go
// version: 1.0.0
// guid: 4e9c2b71-8d05-4f6a-b3c8-1a7d5e0f92b6

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const personSelectColumns = `
	id, uuid, email, name, about_me, gender, photo_uuid,
	onboarding_complete, activated, banned, created_at
`

func scanPerson(scanner rowScanner, p *Person) error {
	return scanner.Scan(
		&p.ID, &p.UUID, &p.Email, &p.Name, &p.AboutMe, &p.Gender,
		&p.PhotoUUID, &p.OnboardingComplete, &p.Activated, &p.Banned,
		&p.CreatedAt,
	)
}

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		about_me TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT '',
		photo_uuid TEXT,
		onboarding_complete INTEGER NOT NULL DEFAULT 0,
		activated INTEGER NOT NULL DEFAULT 0,
		banned INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_persons_email ON persons(email);
	CREATE INDEX IF NOT EXISTS idx_persons_uuid ON persons(uuid);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		person_id INTEGER NOT NULL,
		otp_hash TEXT NOT NULL DEFAULT '',
		otp_expires_at TIMESTAMP NOT NULL,
		signed_in INTEGER NOT NULL DEFAULT 0,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (person_id) REFERENCES persons(id)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_person ON sessions(person_id);

	CREATE TABLE IF NOT EXISTS skips (
		skipper_id INTEGER NOT NULL,
		prospect_id INTEGER NOT NULL,
		report_reason TEXT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (skipper_id, prospect_id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		topic TEXT NOT NULL,
		count_yes INTEGER NOT NULL DEFAULT 0,
		count_no INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS answers (
		person_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer INTEGER NOT NULL,
		public INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (person_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS person_clubs (
		person_id INTEGER NOT NULL,
		club_name TEXT NOT NULL,
		PRIMARY KEY (person_id, club_name)
	);

	CREATE INDEX IF NOT EXISTS idx_person_clubs_name ON person_clubs(club_name);

	CREATE TABLE IF NOT EXISTS search_preferences (
		person_id INTEGER PRIMARY KEY,
		gender_preference TEXT NOT NULL DEFAULT '',
		min_age INTEGER NOT NULL DEFAULT 18,
		max_age INTEGER NOT NULL DEFAULT 99
	);

	CREATE TABLE IF NOT EXISTS filter_answers (
		person_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		answer INTEGER NOT NULL,
		PRIMARY KEY (person_id, question_id)
	);

	CREATE TABLE IF NOT EXISTS moderation_tokens (
		token TEXT PRIMARY KEY,
		person_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Reset drops all rows. Intended for tests and the init-db command.
func (s *SQLiteStore) Reset() error {
	for _, table := range []string{
		"persons", "sessions", "skips", "questions", "answers",
		"person_clubs", "search_preferences", "filter_answers",
		"moderation_tokens",
	} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}

// Person operations

func (s *SQLiteStore) CreatePerson(p *Person) (*Person, error) {
	if p.UUID == "" {
		p.UUID = NewULID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	result, err := s.db.Exec(`
		INSERT INTO persons (uuid, email, name, about_me, gender, photo_uuid,
			onboarding_complete, activated, banned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.Email, p.Name, p.AboutMe, p.Gender, p.PhotoUUID,
		p.OnboardingComplete, p.Activated, p.Banned, p.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = int(id)
	return p, nil
}

func (s *SQLiteStore) getPerson(where string, arg interface{}) (*Person, error) {
	var p Person
	row := s.db.QueryRow("SELECT "+personSelectColumns+" FROM persons WHERE "+where, arg)
	if err := scanPerson(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetPersonByID(id int) (*Person, error) {
	return s.getPerson("id = ?", id)
}

func (s *SQLiteStore) GetPersonByUUID(uuid string) (*Person, error) {
	return s.getPerson("uuid = ?", uuid)
}

func (s *SQLiteStore) GetPersonByEmail(email string) (*Person, error) {
	return s.getPerson("email = ?", email)
}

func (s *SQLiteStore) UpdatePerson(p *Person) error {
	result, err := s.db.Exec(`
		UPDATE persons SET email = ?, name = ?, about_me = ?, gender = ?,
			photo_uuid = ?, onboarding_complete = ?, activated = ?, banned = ?
		WHERE id = ?`,
		p.Email, p.Name, p.AboutMe, p.Gender, p.PhotoUUID,
		p.OnboardingComplete, p.Activated, p.Banned, p.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) DeletePerson(id int) error {
	result, err := s.db.Exec("DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) CountPersons() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM persons").Scan(&count)
	return count, err
}

// Session operations

func (s *SQLiteStore) CreateSession(sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO sessions (token, person_id, otp_hash, otp_expires_at,
			signed_in, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.PersonID, sess.OTPHash, sess.OTPExpiresAt,
		sess.SignedIn, sess.ExpiresAt, sess.CreatedAt)
	return err
}

func (s *SQLiteStore) GetSessionByToken(token string) (*Session, error) {
	var sess Session
	row := s.db.QueryRow(`
		SELECT token, person_id, otp_hash, otp_expires_at, signed_in,
			expires_at, created_at
		FROM sessions WHERE token = ?`, token)
	err := row.Scan(&sess.Token, &sess.PersonID, &sess.OTPHash,
		&sess.OTPExpiresAt, &sess.SignedIn, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) UpdateSession(sess *Session) error {
	result, err := s.db.Exec(`
		UPDATE sessions SET otp_hash = ?, otp_expires_at = ?, signed_in = ?,
			expires_at = ?
		WHERE token = ?`,
		sess.OTPHash, sess.OTPExpiresAt, sess.SignedIn, sess.ExpiresAt, sess.Token)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) DeleteSession(token string) error {
	result, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) DeleteSessionsForPerson(personID int) error {
	_, err := s.db.Exec("DELETE FROM sessions WHERE person_id = ?", personID)
	return err
}

func (s *SQLiteStore) DeleteExpiredSessions(now time.Time) (int, error) {
	result, err := s.db.Exec("DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (s *SQLiteStore) CountSessions() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// Skip operations

func (s *SQLiteStore) CreateSkip(skip *Skip) error {
	if skip.CreatedAt.IsZero() {
		skip.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO skips (skipper_id, prospect_id, report_reason, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (skipper_id, prospect_id)
		DO UPDATE SET report_reason = excluded.report_reason`,
		skip.SkipperID, skip.ProspectID, skip.ReportReason, skip.CreatedAt)
	return err
}

func (s *SQLiteStore) GetSkip(skipperID, prospectID int) (*Skip, error) {
	var skip Skip
	row := s.db.QueryRow(`
		SELECT skipper_id, prospect_id, report_reason, created_at
		FROM skips WHERE skipper_id = ? AND prospect_id = ?`,
		skipperID, prospectID)
	err := row.Scan(&skip.SkipperID, &skip.ProspectID, &skip.ReportReason, &skip.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &skip, nil
}

func (s *SQLiteStore) DeleteSkip(skipperID, prospectID int) error {
	result, err := s.db.Exec(
		"DELETE FROM skips WHERE skipper_id = ? AND prospect_id = ?",
		skipperID, prospectID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Question and answer operations

func (s *SQLiteStore) ListQuestions(query string, limit, offset int) ([]Question, error) {
	rows, err := s.db.Query(`
		SELECT id, text, topic, count_yes, count_no FROM questions
		WHERE text LIKE ?
		ORDER BY id LIMIT ? OFFSET ?`,
		"%"+query+"%", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []Question{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Topic, &q.CountYes, &q.CountNo); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *SQLiteStore) GetQuestionByID(id int) (*Question, error) {
	var q Question
	row := s.db.QueryRow(
		"SELECT id, text, topic, count_yes, count_no FROM questions WHERE id = ?", id)
	err := row.Scan(&q.ID, &q.Text, &q.Topic, &q.CountYes, &q.CountNo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *SQLiteStore) CreateQuestion(q *Question) (*Question, error) {
	result, err := s.db.Exec(
		"INSERT INTO questions (text, topic, count_yes, count_no) VALUES (?, ?, ?, ?)",
		q.Text, q.Topic, q.CountYes, q.CountNo)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	q.ID = int(id)
	return q, nil
}

func (s *SQLiteStore) UpsertAnswer(a *Answer) error {
	_, err := s.db.Exec(`
		INSERT INTO answers (person_id, question_id, answer, public)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (person_id, question_id)
		DO UPDATE SET answer = excluded.answer, public = excluded.public`,
		a.PersonID, a.QuestionID, a.Answer, a.Public)
	return err
}

func (s *SQLiteStore) DeleteAnswer(personID, questionID int) error {
	result, err := s.db.Exec(
		"DELETE FROM answers WHERE person_id = ? AND question_id = ?",
		personID, questionID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) ListAnswers(personID int) ([]Answer, error) {
	rows, err := s.db.Query(`
		SELECT person_id, question_id, answer, public FROM answers
		WHERE person_id = ? ORDER BY question_id`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []Answer{}
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.PersonID, &a.QuestionID, &a.Answer, &a.Public); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// Club operations

func (s *SQLiteStore) ListClubs() ([]Club, error) {
	rows, err := s.db.Query(`
		SELECT club_name, COUNT(*) FROM person_clubs
		GROUP BY club_name ORDER BY club_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clubs := []Club{}
	for rows.Next() {
		var c Club
		if err := rows.Scan(&c.Name, &c.MemberCount); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

func (s *SQLiteStore) GetPersonClubs(personID int) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT club_name FROM person_clubs WHERE person_id = ? ORDER BY club_name",
		personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clubs := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		clubs = append(clubs, name)
	}
	return clubs, rows.Err()
}

func (s *SQLiteStore) JoinClub(personID int, club string) error {
	_, err := s.db.Exec(`
		INSERT INTO person_clubs (person_id, club_name) VALUES (?, ?)
		ON CONFLICT (person_id, club_name) DO NOTHING`,
		personID, club)
	return err
}

func (s *SQLiteStore) LeaveClub(personID int, club string) error {
	_, err := s.db.Exec(
		"DELETE FROM person_clubs WHERE person_id = ? AND club_name = ?",
		personID, club)
	return err
}

// Search preference operations

func (s *SQLiteStore) GetSearchPreference(personID int) (*SearchPreference, error) {
	var p SearchPreference
	row := s.db.QueryRow(`
		SELECT person_id, gender_preference, min_age, max_age
		FROM search_preferences WHERE person_id = ?`, personID)
	err := row.Scan(&p.PersonID, &p.GenderPreference, &p.MinAge, &p.MaxAge)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) SetSearchPreference(p *SearchPreference) error {
	_, err := s.db.Exec(`
		INSERT INTO search_preferences (person_id, gender_preference, min_age, max_age)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (person_id) DO UPDATE SET
			gender_preference = excluded.gender_preference,
			min_age = excluded.min_age,
			max_age = excluded.max_age`,
		p.PersonID, p.GenderPreference, p.MinAge, p.MaxAge)
	return err
}

func (s *SQLiteStore) SetFilterAnswer(f *FilterAnswer) error {
	_, err := s.db.Exec(`
		INSERT INTO filter_answers (person_id, question_id, answer)
		VALUES (?, ?, ?)
		ON CONFLICT (person_id, question_id)
		DO UPDATE SET answer = excluded.answer`,
		f.PersonID, f.QuestionID, f.Answer)
	return err
}

func (s *SQLiteStore) DeleteFilterAnswer(personID, questionID int) error {
	result, err := s.db.Exec(
		"DELETE FROM filter_answers WHERE person_id = ? AND question_id = ?",
		personID, questionID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) ListFilterAnswers(personID int) ([]FilterAnswer, error) {
	rows, err := s.db.Query(`
		SELECT person_id, question_id, answer FROM filter_answers
		WHERE person_id = ? ORDER BY question_id`, personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []FilterAnswer{}
	for rows.Next() {
		var f FilterAnswer
		if err := rows.Scan(&f.PersonID, &f.QuestionID, &f.Answer); err != nil {
			return nil, err
		}
		answers = append(answers, f)
	}
	return answers, rows.Err()
}

// Search operations

func (s *SQLiteStore) ListActiveProfiles(excludePersonID, limit, offset int) ([]Person, error) {
	rows, err := s.db.Query(`
		SELECT `+personSelectColumns+` FROM persons
		WHERE id != ? AND activated = 1 AND banned = 0 AND onboarding_complete = 1
		AND id NOT IN (SELECT prospect_id FROM skips WHERE skipper_id = ?)
		ORDER BY id LIMIT ? OFFSET ?`,
		excludePersonID, excludePersonID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []Person{}
	for rows.Next() {
		var p Person
		if err := scanPerson(rows, &p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Moderation operations

func (s *SQLiteStore) CreateModerationToken(tok *ModerationToken) error {
	_, err := s.db.Exec(`
		INSERT INTO moderation_tokens (token, person_id, kind, expires_at)
		VALUES (?, ?, ?, ?)`,
		tok.Token, tok.PersonID, tok.Kind, tok.ExpiresAt)
	return err
}

func (s *SQLiteStore) GetModerationToken(token string) (*ModerationToken, error) {
	var tok ModerationToken
	row := s.db.QueryRow(`
		SELECT token, person_id, kind, expires_at
		FROM moderation_tokens WHERE token = ?`, token)
	err := row.Scan(&tok.Token, &tok.PersonID, &tok.Kind, &tok.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *SQLiteStore) DeleteModerationToken(token string) error {
	result, err := s.db.Exec("DELETE FROM moderation_tokens WHERE token = ?", token)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) BanPerson(personID int) error {
	result, err := s.db.Exec("UPDATE persons SET banned = 1 WHERE id = ?", personID)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	return s.DeleteSessionsForPerson(personID)
}

func (s *SQLiteStore) ClearPhoto(personID int) error {
	result, err := s.db.Exec("UPDATE persons SET photo_uuid = NULL WHERE id = ?", personID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
