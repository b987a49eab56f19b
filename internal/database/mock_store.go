// file: internal/database/mock_store.go
// version: 1.0.0
// guid: 92c5e7a3-0f48-4d16-b8a9-6e1d3c7f50b2

package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store for tests. It mirrors the semantics of the
// real backends, including ErrNotFound on missing records.
type MockStore struct {
	mu sync.Mutex

	persons       map[int]*Person
	sessions      map[string]*Session
	skips         map[string]*Skip
	questions     map[int]*Question
	answers       map[string]*Answer
	clubs         map[string]map[int]bool
	preferences   map[int]*SearchPreference
	filterAnswers map[string]*FilterAnswer
	modTokens     map[string]*ModerationToken

	nextPersonID   int
	nextQuestionID int

	// FailOps makes the named operations return an error, for fail-closed tests.
	FailOps map[string]bool
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{
		persons:        make(map[int]*Person),
		sessions:       make(map[string]*Session),
		skips:          make(map[string]*Skip),
		questions:      make(map[int]*Question),
		answers:        make(map[string]*Answer),
		clubs:          make(map[string]map[int]bool),
		preferences:    make(map[int]*SearchPreference),
		filterAnswers:  make(map[string]*FilterAnswer),
		modTokens:      make(map[string]*ModerationToken),
		nextPersonID:   1,
		nextQuestionID: 1,
		FailOps:        make(map[string]bool),
	}
}

func (m *MockStore) failing(op string) error {
	if m.FailOps[op] {
		return fmt.Errorf("mock store: %s unavailable", op)
	}
	return nil
}

func skipKey(skipperID, prospectID int) string {
	return fmt.Sprintf("%d:%d", skipperID, prospectID)
}

func answerKey(personID, questionID int) string {
	return fmt.Sprintf("%d:%d", personID, questionID)
}

func (m *MockStore) Close() error { return nil }

func (m *MockStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons = make(map[int]*Person)
	m.sessions = make(map[string]*Session)
	m.skips = make(map[string]*Skip)
	m.questions = make(map[int]*Question)
	m.answers = make(map[string]*Answer)
	m.clubs = make(map[string]map[int]bool)
	m.preferences = make(map[int]*SearchPreference)
	m.filterAnswers = make(map[string]*FilterAnswer)
	m.modTokens = make(map[string]*ModerationToken)
	m.nextPersonID = 1
	m.nextQuestionID = 1
	return nil
}

// Person operations

func (m *MockStore) CreatePerson(p *Person) (*Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.UUID == "" {
		p.UUID = NewULID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.ID = m.nextPersonID
	m.nextPersonID++
	clone := *p
	m.persons[p.ID] = &clone
	return p, nil
}

func (m *MockStore) GetPersonByID(id int) (*Person, error) {
	if err := m.failing("GetPersonByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *MockStore) GetPersonByUUID(uuid string) (*Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.persons {
		if p.UUID == uuid {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetPersonByEmail(email string) (*Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.persons {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MockStore) UpdatePerson(p *Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.persons[p.ID]; !ok {
		return ErrNotFound
	}
	clone := *p
	m.persons[p.ID] = &clone
	return nil
}

func (m *MockStore) DeletePerson(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.persons[id]; !ok {
		return ErrNotFound
	}
	delete(m.persons, id)
	return nil
}

func (m *MockStore) CountPersons() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.persons), nil
}

// Session operations

func (m *MockStore) CreateSession(s *Session) error {
	if err := m.failing("CreateSession"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	clone := *s
	m.sessions[s.Token] = &clone
	return nil
}

func (m *MockStore) GetSessionByToken(token string) (*Session, error) {
	if err := m.failing("GetSessionByToken"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockStore) UpdateSession(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.Token]; !ok {
		return ErrNotFound
	}
	clone := *s
	m.sessions[s.Token] = &clone
	return nil
}

func (m *MockStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[token]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, token)
	return nil
}

func (m *MockStore) DeleteSessionsForPerson(personID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.PersonID == personID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *MockStore) DeleteExpiredSessions(now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for token, s := range m.sessions {
		if s.ExpiresAt.Before(now) {
			delete(m.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockStore) CountSessions() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

// Skip operations

func (m *MockStore) CreateSkip(s *Skip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	clone := *s
	m.skips[skipKey(s.SkipperID, s.ProspectID)] = &clone
	return nil
}

func (m *MockStore) GetSkip(skipperID, prospectID int) (*Skip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skips[skipKey(skipperID, prospectID)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *MockStore) DeleteSkip(skipperID, prospectID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := skipKey(skipperID, prospectID)
	if _, ok := m.skips[key]; !ok {
		return ErrNotFound
	}
	delete(m.skips, key)
	return nil
}

// Question and answer operations

func (m *MockStore) ListQuestions(query string, limit, offset int) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.questions))
	for id := range m.questions {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	query = strings.ToLower(query)
	questions := []Question{}
	skipped := 0
	for _, id := range ids {
		q := m.questions[id]
		if query != "" && !strings.Contains(strings.ToLower(q.Text), query) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		questions = append(questions, *q)
		if len(questions) >= limit {
			break
		}
	}
	return questions, nil
}

func (m *MockStore) GetQuestionByID(id int) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *q
	return &clone, nil
}

func (m *MockStore) CreateQuestion(q *Question) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = m.nextQuestionID
	m.nextQuestionID++
	clone := *q
	m.questions[q.ID] = &clone
	return q, nil
}

func (m *MockStore) UpsertAnswer(a *Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *a
	m.answers[answerKey(a.PersonID, a.QuestionID)] = &clone
	return nil
}

func (m *MockStore) DeleteAnswer(personID, questionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := answerKey(personID, questionID)
	if _, ok := m.answers[key]; !ok {
		return ErrNotFound
	}
	delete(m.answers, key)
	return nil
}

func (m *MockStore) ListAnswers(personID int) ([]Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answers := []Answer{}
	for _, a := range m.answers {
		if a.PersonID == personID {
			answers = append(answers, *a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].QuestionID < answers[j].QuestionID
	})
	return answers, nil
}

// Club operations

func (m *MockStore) ListClubs() ([]Club, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.clubs))
	for name, members := range m.clubs {
		if len(members) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	clubs := make([]Club, 0, len(names))
	for _, name := range names {
		clubs = append(clubs, Club{Name: name, MemberCount: len(m.clubs[name])})
	}
	return clubs, nil
}

func (m *MockStore) GetPersonClubs(personID int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clubs := []string{}
	for name, members := range m.clubs {
		if members[personID] {
			clubs = append(clubs, name)
		}
	}
	sort.Strings(clubs)
	return clubs, nil
}

func (m *MockStore) JoinClub(personID int, club string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clubs[club] == nil {
		m.clubs[club] = make(map[int]bool)
	}
	m.clubs[club][personID] = true
	return nil
}

func (m *MockStore) LeaveClub(personID int, club string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clubs[club] != nil {
		delete(m.clubs[club], personID)
	}
	return nil
}

// Search preference operations

func (m *MockStore) GetSearchPreference(personID int) (*SearchPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.preferences[personID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *MockStore) SetSearchPreference(p *SearchPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *p
	m.preferences[p.PersonID] = &clone
	return nil
}

func (m *MockStore) SetFilterAnswer(f *FilterAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *f
	m.filterAnswers[answerKey(f.PersonID, f.QuestionID)] = &clone
	return nil
}

func (m *MockStore) DeleteFilterAnswer(personID, questionID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := answerKey(personID, questionID)
	if _, ok := m.filterAnswers[key]; !ok {
		return ErrNotFound
	}
	delete(m.filterAnswers, key)
	return nil
}

func (m *MockStore) ListFilterAnswers(personID int) ([]FilterAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	answers := []FilterAnswer{}
	for _, f := range m.filterAnswers {
		if f.PersonID == personID {
			answers = append(answers, *f)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].QuestionID < answers[j].QuestionID
	})
	return answers, nil
}

// Search operations

func (m *MockStore) ListActiveProfiles(excludePersonID, limit, offset int) ([]Person, error) {
	if err := m.failing("ListActiveProfiles"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.persons))
	for id := range m.persons {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	profiles := []Person{}
	skipped := 0
	for _, id := range ids {
		p := m.persons[id]
		if p.ID == excludePersonID || !p.Activated || p.Banned || !p.OnboardingComplete {
			continue
		}
		if _, ok := m.skips[skipKey(excludePersonID, p.ID)]; ok {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		profiles = append(profiles, *p)
		if len(profiles) >= limit {
			break
		}
	}
	return profiles, nil
}

// Moderation operations

func (m *MockStore) CreateModerationToken(tok *ModerationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *tok
	m.modTokens[tok.Token] = &clone
	return nil
}

func (m *MockStore) GetModerationToken(token string) (*ModerationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.modTokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *tok
	return &clone, nil
}

func (m *MockStore) DeleteModerationToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modTokens[token]; !ok {
		return ErrNotFound
	}
	delete(m.modTokens, token)
	return nil
}

func (m *MockStore) BanPerson(personID int) error {
	m.mu.Lock()
	p, ok := m.persons[personID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	p.Banned = true
	m.mu.Unlock()
	return m.DeleteSessionsForPerson(personID)
}

func (m *MockStore) ClearPhoto(personID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.persons[personID]
	if !ok {
		return ErrNotFound
	}
	p.PhotoUUID = nil
	return nil
}
