package quiz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"quizmaster-backend/internal/models"
)

func makeQuestions(n, categoryID int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:            uuid.New(),
			CategoryID:    categoryID,
			Text:          fmt.Sprintf("question %d", i),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: "A",
			Difficulty:    models.DifficultyMedium,
			Source:        models.QuestionSourceBank,
		}
	}
	return qs
}

type fakeRepo struct {
	mu          sync.Mutex
	bank        []models.Question
	byCategory  map[int][]models.Question
	adaptive    []models.Question
	adaptiveErr error
	randomErr   error
	insertErr   error
	inserted    []models.Question
	randomCalls []int
}

func (r *fakeRepo) RandomQuestions(_ context.Context, count int) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.randomCalls = append(r.randomCalls, count)
	if r.randomErr != nil {
		return nil, r.randomErr
	}
	if count > len(r.bank) {
		count = len(r.bank)
	}
	return append([]models.Question(nil), r.bank[:count]...), nil
}

func (r *fakeRepo) QuestionsByCategory(_ context.Context, categoryID, count int) ([]models.Question, error) {
	qs := r.byCategory[categoryID]
	if count > len(qs) {
		count = len(qs)
	}
	return append([]models.Question(nil), qs[:count]...), nil
}

func (r *fakeRepo) AdaptiveQuestions(_ context.Context, _ uuid.UUID, count int) ([]models.Question, error) {
	if r.adaptiveErr != nil {
		return nil, r.adaptiveErr
	}
	if count > len(r.adaptive) {
		count = len(r.adaptive)
	}
	return append([]models.Question(nil), r.adaptive[:count]...), nil
}

func (r *fakeRepo) InsertQuestion(_ context.Context, q *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, *q)
	return nil
}

func (r *fakeRepo) CategoryName(_ context.Context, categoryID int) (string, error) {
	return fmt.Sprintf("Category %d", categoryID), nil
}

type fakeAI struct {
	mu     sync.Mutex
	err    error
	block  bool
	calls  int
	topics []string
}

func (a *fakeAI) GenerateQuestions(ctx context.Context, topic string, count int, difficulty string) ([]models.Question, error) {
	a.mu.Lock()
	a.calls++
	a.topics = append(a.topics, topic)
	a.mu.Unlock()
	if a.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if a.err != nil {
		return nil, a.err
	}
	qs := makeQuestions(count, 0)
	for i := range qs {
		qs[i].ID = uuid.Nil
		qs[i].Source = ""
	}
	return qs, nil
}

type fakeStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]models.QuizSession
	answers     map[uuid.UUID][]models.AnswerRecord
	createErr   error
	saveErr     error
	completeErr error
	creates     int
	completes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]models.QuizSession),
		answers:  make(map[uuid.UUID][]models.AnswerRecord),
	}
}

func (s *fakeStore) CreateSession(_ context.Context, rec *models.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.creates++
	s.sessions[rec.ID] = *rec
	return nil
}

func (s *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*models.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &rec, nil
}

func (s *fakeStore) CompleteSession(_ context.Context, rec *models.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	if s.sessions[rec.ID].CompletedAt != nil {
		return ErrAlreadyCompleted
	}
	s.completes++
	s.sessions[rec.ID] = *rec
	return nil
}

func (s *fakeStore) SaveAnswer(_ context.Context, a *models.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.answers[a.SessionID] = append(s.answers[a.SessionID], *a)
	return nil
}

func (s *fakeStore) SessionAnswers(_ context.Context, id uuid.UUID) ([]models.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnswerRecord(nil), s.answers[id]...), nil
}

func (s *fakeStore) UserSessions(_ context.Context, userID uuid.UUID) ([]models.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.QuizSession
	for _, rec := range s.sessions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

type fakeAchievements struct {
	mu    sync.Mutex
	err   error
	calls []uuid.UUID
}

func (f *fakeAchievements) EvaluateAndAward(_ context.Context, _, sessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionID)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

var errBoom = errors.New("boom")
