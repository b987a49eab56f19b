// file: internal/database/pebble_store.go
// version: 1.0.0
// guid: 07d4f8a2-6c3e-49b1-85f0-2e9a7b5c41d8

package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - p:<id>                  -> Person JSON (ids zero-padded for ordered scans)
// - pemail:<email>          -> person id
// - puuid:<uuid>            -> person id
// - sess:<token>            -> Session JSON
// - sessidx:<id>:<token>    -> token (per-person session index)
// - skip:<skipper>:<prospect> -> Skip JSON
// - q:<id>                  -> Question JSON
// - ans:<person>:<question> -> Answer JSON
// - clubidx:<club>:<person> -> "" (membership, scanned for counts)
// - personclub:<person>:<club> -> "" (membership by person)
// - pref:<person>           -> SearchPreference JSON
// - fans:<person>:<question> -> FilterAnswer JSON
// - mod:<token>             -> ModerationToken JSON
// - counter:person          -> next person ID
// - counter:question        -> next question ID
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}

	store := &PebbleStore{db: db}

	for _, counter := range []string{"person", "question"} {
		key := []byte("counter:" + counter)
		if _, closer, err := db.Get(key); err == pebble.ErrNotFound {
			if err := db.Set(key, []byte("1"), pebble.Sync); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to initialize counter %s: %w", counter, err)
			}
		} else if err == nil {
			closer.Close()
		} else {
			db.Close()
			return nil, fmt.Errorf("failed to check counter %s: %w", counter, err)
		}
	}

	return store, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Reset deletes all rows but keeps counters initialized.
func (p *PebbleStore) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	iter, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		keys = append(keys, key)
	}
	if err := iter.Close(); err != nil {
		return err
	}
	for _, key := range keys {
		if strings.HasPrefix(string(key), "counter:") {
			if err := p.db.Set(key, []byte("1"), pebble.Sync); err != nil {
				return err
			}
			continue
		}
		if err := p.db.Delete(key, pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func padID(id int) string {
	return fmt.Sprintf("%012d", id)
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func prefixIterOptions(prefix string) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: keyUpperBound([]byte(prefix)),
	}
}

func (p *PebbleStore) nextID(counter string) (int, error) {
	key := []byte("counter:" + counter)

	value, closer, err := p.db.Get(key)
	if err != nil {
		return 0, err
	}
	id, convErr := strconv.Atoi(string(value))
	closer.Close()
	if convErr != nil {
		return 0, convErr
	}

	if err := p.db.Set(key, []byte(strconv.Itoa(id+1)), pebble.Sync); err != nil {
		return 0, err
	}
	return id, nil
}

func (p *PebbleStore) getJSON(key string, out interface{}) error {
	value, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	return json.Unmarshal(value, out)
}

func (p *PebbleStore) setJSON(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return p.db.Set([]byte(key), data, pebble.Sync)
}

func (p *PebbleStore) getString(key string) (string, error) {
	value, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(value), nil
}

func (p *PebbleStore) countPrefix(prefix string) (int, error) {
	iter, err := p.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		count++
	}
	return count, nil
}

// Person operations

func (p *PebbleStore) CreatePerson(person *Person) (*Person, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if person.UUID == "" {
		person.UUID = NewULID()
	}
	if person.CreatedAt.IsZero() {
		person.CreatedAt = time.Now().UTC()
	}
	if _, err := p.getString("pemail:" + person.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %s", person.Email)
	}

	id, err := p.nextID("person")
	if err != nil {
		return nil, err
	}
	person.ID = id

	if err := p.setJSON("p:"+padID(id), person); err != nil {
		return nil, err
	}
	if err := p.db.Set([]byte("pemail:"+person.Email), []byte(strconv.Itoa(id)), pebble.Sync); err != nil {
		return nil, err
	}
	if err := p.db.Set([]byte("puuid:"+person.UUID), []byte(strconv.Itoa(id)), pebble.Sync); err != nil {
		return nil, err
	}
	return person, nil
}

func (p *PebbleStore) GetPersonByID(id int) (*Person, error) {
	var person Person
	if err := p.getJSON("p:"+padID(id), &person); err != nil {
		return nil, err
	}
	return &person, nil
}

func (p *PebbleStore) getPersonByIndex(key string) (*Person, error) {
	idStr, err := p.getString(key)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, err
	}
	return p.GetPersonByID(id)
}

func (p *PebbleStore) GetPersonByUUID(uuid string) (*Person, error) {
	return p.getPersonByIndex("puuid:" + uuid)
}

func (p *PebbleStore) GetPersonByEmail(email string) (*Person, error) {
	return p.getPersonByIndex("pemail:" + email)
}

func (p *PebbleStore) UpdatePerson(person *Person) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.GetPersonByID(person.ID)
	if err != nil {
		return err
	}
	if existing.Email != person.Email {
		if err := p.db.Delete([]byte("pemail:"+existing.Email), pebble.Sync); err != nil {
			return err
		}
		if err := p.db.Set([]byte("pemail:"+person.Email), []byte(strconv.Itoa(person.ID)), pebble.Sync); err != nil {
			return err
		}
	}
	return p.setJSON("p:"+padID(person.ID), person)
}

func (p *PebbleStore) DeletePerson(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	person, err := p.GetPersonByID(id)
	if err != nil {
		return err
	}
	for _, key := range []string{
		"p:" + padID(id),
		"pemail:" + person.Email,
		"puuid:" + person.UUID,
	} {
		if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

func (p *PebbleStore) CountPersons() (int, error) {
	return p.countPrefix("p:")
}

// Session operations

func (p *PebbleStore) CreateSession(sess *Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if err := p.setJSON("sess:"+sess.Token, sess); err != nil {
		return err
	}
	return p.db.Set(
		[]byte("sessidx:"+padID(sess.PersonID)+":"+sess.Token),
		[]byte(sess.Token), pebble.Sync)
}

func (p *PebbleStore) GetSessionByToken(token string) (*Session, error) {
	var sess Session
	if err := p.getJSON("sess:"+token, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (p *PebbleStore) UpdateSession(sess *Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.GetSessionByToken(sess.Token); err != nil {
		return err
	}
	return p.setJSON("sess:"+sess.Token, sess)
}

func (p *PebbleStore) DeleteSession(token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, err := p.GetSessionByToken(token)
	if err != nil {
		return err
	}
	if err := p.db.Delete([]byte("sess:"+token), pebble.Sync); err != nil {
		return err
	}
	return p.db.Delete([]byte("sessidx:"+padID(sess.PersonID)+":"+token), pebble.Sync)
}

func (p *PebbleStore) DeleteSessionsForPerson(personID int) error {
	iter, err := p.db.NewIter(prefixIterOptions("sessidx:" + padID(personID) + ":"))
	if err != nil {
		return err
	}
	var tokens []string
	for iter.First(); iter.Valid(); iter.Next() {
		tokens = append(tokens, string(iter.Value()))
	}
	if err := iter.Close(); err != nil {
		return err
	}
	for _, token := range tokens {
		if err := p.DeleteSession(token); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}

func (p *PebbleStore) DeleteExpiredSessions(now time.Time) (int, error) {
	iter, err := p.db.NewIter(prefixIterOptions("sess:"))
	if err != nil {
		return 0, err
	}
	var expired []string
	for iter.First(); iter.Valid(); iter.Next() {
		var sess Session
		if err := json.Unmarshal(iter.Value(), &sess); err != nil {
			continue
		}
		if sess.ExpiresAt.Before(now) {
			expired = append(expired, sess.Token)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	for _, token := range expired {
		if err := p.DeleteSession(token); err != nil && err != ErrNotFound {
			return 0, err
		}
	}
	return len(expired), nil
}

func (p *PebbleStore) CountSessions() (int, error) {
	return p.countPrefix("sess:")
}

// Skip operations

func (p *PebbleStore) CreateSkip(skip *Skip) error {
	if skip.CreatedAt.IsZero() {
		skip.CreatedAt = time.Now().UTC()
	}
	return p.setJSON("skip:"+padID(skip.SkipperID)+":"+padID(skip.ProspectID), skip)
}

func (p *PebbleStore) GetSkip(skipperID, prospectID int) (*Skip, error) {
	var skip Skip
	if err := p.getJSON("skip:"+padID(skipperID)+":"+padID(prospectID), &skip); err != nil {
		return nil, err
	}
	return &skip, nil
}

func (p *PebbleStore) DeleteSkip(skipperID, prospectID int) error {
	key := "skip:" + padID(skipperID) + ":" + padID(prospectID)
	if _, err := p.GetSkip(skipperID, prospectID); err != nil {
		return err
	}
	return p.db.Delete([]byte(key), pebble.Sync)
}

// Question and answer operations

func (p *PebbleStore) ListQuestions(query string, limit, offset int) ([]Question, error) {
	iter, err := p.db.NewIter(prefixIterOptions("q:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	query = strings.ToLower(query)
	questions := []Question{}
	skipped := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var q Question
		if err := json.Unmarshal(iter.Value(), &q); err != nil {
			return nil, err
		}
		if query != "" && !strings.Contains(strings.ToLower(q.Text), query) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		questions = append(questions, q)
		if len(questions) >= limit {
			break
		}
	}
	return questions, nil
}

func (p *PebbleStore) GetQuestionByID(id int) (*Question, error) {
	var q Question
	if err := p.getJSON("q:"+padID(id), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (p *PebbleStore) CreateQuestion(q *Question) (*Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := p.nextID("question")
	if err != nil {
		return nil, err
	}
	q.ID = id
	if err := p.setJSON("q:"+padID(id), q); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *PebbleStore) UpsertAnswer(a *Answer) error {
	return p.setJSON("ans:"+padID(a.PersonID)+":"+padID(a.QuestionID), a)
}

func (p *PebbleStore) DeleteAnswer(personID, questionID int) error {
	key := "ans:" + padID(personID) + ":" + padID(questionID)
	var a Answer
	if err := p.getJSON(key, &a); err != nil {
		return err
	}
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleStore) ListAnswers(personID int) ([]Answer, error) {
	iter, err := p.db.NewIter(prefixIterOptions("ans:" + padID(personID) + ":"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	answers := []Answer{}
	for iter.First(); iter.Valid(); iter.Next() {
		var a Answer
		if err := json.Unmarshal(iter.Value(), &a); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, nil
}

// Club operations

func (p *PebbleStore) ListClubs() ([]Club, error) {
	iter, err := p.db.NewIter(prefixIterOptions("clubidx:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	counts := make(map[string]int)
	for iter.First(); iter.Valid(); iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), "clubidx:")
		idx := strings.LastIndex(key, ":")
		if idx < 0 {
			continue
		}
		counts[key[:idx]]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	clubs := make([]Club, 0, len(names))
	for _, name := range names {
		clubs = append(clubs, Club{Name: name, MemberCount: counts[name]})
	}
	return clubs, nil
}

func (p *PebbleStore) GetPersonClubs(personID int) ([]string, error) {
	iter, err := p.db.NewIter(prefixIterOptions("personclub:" + padID(personID) + ":"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	clubs := []string{}
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		clubs = append(clubs, key[strings.LastIndex(key, ":")+1:])
	}
	sort.Strings(clubs)
	return clubs, nil
}

func (p *PebbleStore) JoinClub(personID int, club string) error {
	if err := p.db.Set([]byte("clubidx:"+club+":"+padID(personID)), nil, pebble.Sync); err != nil {
		return err
	}
	return p.db.Set([]byte("personclub:"+padID(personID)+":"+club), nil, pebble.Sync)
}

func (p *PebbleStore) LeaveClub(personID int, club string) error {
	if err := p.db.Delete([]byte("clubidx:"+club+":"+padID(personID)), pebble.Sync); err != nil {
		return err
	}
	return p.db.Delete([]byte("personclub:"+padID(personID)+":"+club), pebble.Sync)
}

// Search preference operations

func (p *PebbleStore) GetSearchPreference(personID int) (*SearchPreference, error) {
	var pref SearchPreference
	if err := p.getJSON("pref:"+padID(personID), &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (p *PebbleStore) SetSearchPreference(pref *SearchPreference) error {
	return p.setJSON("pref:"+padID(pref.PersonID), pref)
}

func (p *PebbleStore) SetFilterAnswer(f *FilterAnswer) error {
	return p.setJSON("fans:"+padID(f.PersonID)+":"+padID(f.QuestionID), f)
}

func (p *PebbleStore) DeleteFilterAnswer(personID, questionID int) error {
	key := "fans:" + padID(personID) + ":" + padID(questionID)
	var f FilterAnswer
	if err := p.getJSON(key, &f); err != nil {
		return err
	}
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleStore) ListFilterAnswers(personID int) ([]FilterAnswer, error) {
	iter, err := p.db.NewIter(prefixIterOptions("fans:" + padID(personID) + ":"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	answers := []FilterAnswer{}
	for iter.First(); iter.Valid(); iter.Next() {
		var f FilterAnswer
		if err := json.Unmarshal(iter.Value(), &f); err != nil {
			return nil, err
		}
		answers = append(answers, f)
	}
	return answers, nil
}

// Search operations

func (p *PebbleStore) ListActiveProfiles(excludePersonID, limit, offset int) ([]Person, error) {
	iter, err := p.db.NewIter(prefixIterOptions("p:"))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	profiles := []Person{}
	skipped := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var person Person
		if err := json.Unmarshal(iter.Value(), &person); err != nil {
			return nil, err
		}
		if person.ID == excludePersonID || !person.Activated || person.Banned || !person.OnboardingComplete {
			continue
		}
		if _, err := p.GetSkip(excludePersonID, person.ID); err == nil {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		profiles = append(profiles, person)
		if len(profiles) >= limit {
			break
		}
	}
	return profiles, nil
}

// Moderation operations

func (p *PebbleStore) CreateModerationToken(tok *ModerationToken) error {
	return p.setJSON("mod:"+tok.Token, tok)
}

func (p *PebbleStore) GetModerationToken(token string) (*ModerationToken, error) {
	var tok ModerationToken
	if err := p.getJSON("mod:"+token, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (p *PebbleStore) DeleteModerationToken(token string) error {
	var tok ModerationToken
	if err := p.getJSON("mod:"+token, &tok); err != nil {
		return err
	}
	return p.db.Delete([]byte("mod:"+token), pebble.Sync)
}

func (p *PebbleStore) BanPerson(personID int) error {
	person, err := p.GetPersonByID(personID)
	if err != nil {
		return err
	}
	person.Banned = true
	if err := p.UpdatePerson(person); err != nil {
		return err
	}
	return p.DeleteSessionsForPerson(personID)
}

func (p *PebbleStore) ClearPhoto(personID int) error {
	person, err := p.GetPersonByID(personID)
	if err != nil {
		return err
	}
	person.PhotoUUID = nil
	return p.UpdatePerson(person)
}
