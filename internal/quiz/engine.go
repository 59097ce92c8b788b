package quiz

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizmaster-backend/internal/models"
)

// SessionStore persists sessions and answers.
// GetSession returns ErrSessionNotFound for unknown ids and CompleteSession
// returns ErrAlreadyCompleted when the stored session is already completed.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.QuizSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.QuizSession, error)
	CompleteSession(ctx context.Context, s *models.QuizSession) error
	SaveAnswer(ctx context.Context, a *models.AnswerRecord) error
	SessionAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.AnswerRecord, error)
	UserSessions(ctx context.Context, userID uuid.UUID) ([]models.QuizSession, error)
}

// AchievementEvaluator awards achievements after a session completes.
type AchievementEvaluator interface {
	EvaluateAndAward(ctx context.Context, userID, sessionID uuid.UUID) (int, error)
}

type EngineConfig struct {
	DefaultQuestionCount int
	AchievementTimeout   time.Duration
}

// Engine runs quiz sessions: start, answer, finish, summarize.
type Engine struct {
	source       *Source
	store        SessionStore
	achievements AchievementEvaluator

	defaultCount       int
	achievementTimeout time.Duration
	now                func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	bg       sync.WaitGroup
}

// NewEngine wires an engine. achievements may be nil.
func NewEngine(source *Source, store SessionStore, achievements AchievementEvaluator, cfg EngineConfig) *Engine {
	if cfg.DefaultQuestionCount <= 0 {
		cfg.DefaultQuestionCount = 10
	}
	if cfg.AchievementTimeout <= 0 {
		cfg.AchievementTimeout = 10 * time.Second
	}
	return &Engine{
		source:             source,
		store:              store,
		achievements:       achievements,
		defaultCount:       cfg.DefaultQuestionCount,
		achievementTimeout: cfg.AchievementTimeout,
		now:                time.Now,
		sessions:           make(map[uuid.UUID]*Session),
	}
}

// StartQuiz resolves questions for the strategy and creates exactly one session.
// An empty resolution still records the session and returns it with
// ErrNoQuestionsAvailable.
func (e *Engine) StartQuiz(ctx context.Context, strategy string, p Params) (*models.QuizSession, []models.Question, error) {
	if p.Count <= 0 {
		p.Count = e.defaultCount
	}

	questions, tag, err := e.source.Fetch(ctx, strategy, p)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	now := e.now()
	rec := models.QuizSession{
		ID:             uuid.New(),
		UserID:         p.UserID,
		Strategy:       string(tag),
		TotalQuestions: len(questions),
		QuestionIDs:    ids,
		StartedAt:      now,
	}
	if err := e.store.CreateSession(ctx, &rec); err != nil {
		return nil, nil, repoErr("create session", err)
	}
	if len(questions) == 0 {
		log.Printf("quiz: session %s for user %s has no questions (%s)", rec.ID, rec.UserID, rec.Strategy)
		return &rec, questions, ErrNoQuestionsAvailable
	}

	e.mu.Lock()
	e.sessions[rec.ID] = newSession(rec, now)
	e.mu.Unlock()

	log.Printf("quiz: session %s started for user %s (%s, %d questions)", rec.ID, rec.UserID, rec.Strategy, rec.TotalQuestions)
	return &rec, questions, nil
}

// session finds a live session, restoring it from the store when it is not in memory.
func (e *Engine) session(ctx context.Context, id, userID uuid.UUID) (*Session, error) {
	e.mu.Lock()
	s, ok := e.sessions[id]
	e.mu.Unlock()
	if ok {
		if s.Snapshot().UserID != userID {
			return nil, ErrSessionNotFound
		}
		return s, nil
	}

	rec, err := e.store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, repoErr("get session", err)
	}
	if rec.UserID != userID {
		return nil, ErrSessionNotFound
	}
	var answers []models.AnswerRecord
	if !rec.Completed() {
		answers, err = e.store.SessionAnswers(ctx, id)
		if err != nil {
			return nil, repoErr("session answers", err)
		}
	}
	restored := restoreSession(*rec, answers, e.now())
	if rec.Completed() {
		return restored, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.sessions[id]; ok {
		return existing, nil
	}
	e.sessions[id] = restored
	return restored, nil
}

// Session returns the current record of a session owned by userID.
func (e *Engine) Session(ctx context.Context, id, userID uuid.UUID) (*models.QuizSession, error) {
	s, err := e.session(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	rec := s.Snapshot()
	return &rec, nil
}

// SubmitAnswer records one answer and advances the cursor. If the answer
// cannot be stored the cursor still advances and a *RepositoryError is
// returned alongside the record so the caller can continue the quiz.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, userID uuid.UUID, req models.SubmitAnswerRequest) (models.AnswerRecord, error) {
	s, err := e.session(ctx, sessionID, userID)
	if err != nil {
		return models.AnswerRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.recordAnswer(req, e.now())
	if err != nil {
		return models.AnswerRecord{}, err
	}
	if err := e.store.SaveAnswer(ctx, &a); err != nil {
		log.Printf("quiz: failed to store answer %d for session %s: %v", a.Position, sessionID, err)
		return a, repoErr("save answer", err)
	}
	return a, nil
}

// FinishQuiz completes a session once. A store failure leaves the session
// open so completion can be retried. Achievement evaluation runs in the
// background and never affects the result.
func (e *Engine) FinishQuiz(ctx context.Context, sessionID, userID uuid.UUID, correct int, totalTimeMs int64) (*models.QuizSession, error) {
	s, err := e.session(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	final, err := s.completion(correct, totalTimeMs, e.now())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := e.store.CompleteSession(ctx, &final); err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrAlreadyCompleted) {
			e.forget(sessionID)
			return nil, alreadyCompleted(sessionID)
		}
		return nil, repoErr("complete session", err)
	}
	s.commit(final)
	s.mu.Unlock()

	e.forget(sessionID)
	log.Printf("quiz: session %s completed, score %d%% (%d/%d)", final.ID, final.FinalScore, final.CorrectAnswers, final.TotalQuestions)

	e.evaluateAchievements(final.UserID, final.ID)
	return &final, nil
}

func (e *Engine) evaluateAchievements(userID, sessionID uuid.UUID) {
	if e.achievements == nil {
		return
	}
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("quiz: achievement evaluation panicked for session %s: %v", sessionID, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), e.achievementTimeout)
		defer cancel()
		n, err := e.achievements.EvaluateAndAward(ctx, userID, sessionID)
		if err != nil {
			log.Printf("quiz: achievement evaluation failed for session %s: %v", sessionID, err)
			return
		}
		if n > 0 {
			log.Printf("quiz: %d achievements awarded for session %s", n, sessionID)
		}
	}()
}

func (e *Engine) forget(id uuid.UUID) {
	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
}

// PerformanceSummary aggregates the user's completed sessions.
func (e *Engine) PerformanceSummary(ctx context.Context, userID uuid.UUID) (models.PerformanceSummary, error) {
	sessions, err := e.store.UserSessions(ctx, userID)
	if err != nil {
		return models.PerformanceSummary{}, repoErr("user sessions", err)
	}
	return Summarize(sessions), nil
}

// History lists the user's sessions, newest first.
func (e *Engine) History(ctx context.Context, userID uuid.UUID) ([]models.QuizSession, error) {
	sessions, err := e.store.UserSessions(ctx, userID)
	if err != nil {
		return nil, repoErr("user sessions", err)
	}
	return sessions, nil
}

// EvictIdle drops open sessions idle longer than maxIdle from memory.
// They are restored from the store on next access.
func (e *Engine) EvictIdle(maxIdle time.Duration) int {
	cutoff := e.now().Add(-maxIdle)
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for id, s := range e.sessions {
		s.mu.Lock()
		idle := s.lastActivity.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(e.sessions, id)
			n++
		}
	}
	return n
}

// Wait blocks until background achievement evaluations finish.
func (e *Engine) Wait() {
	e.bg.Wait()
}
