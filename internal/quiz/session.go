package quiz

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizmaster-backend/internal/models"
)

// State of a quiz session.
type State int

const (
	StateCreated State = iota
	StateInProgress
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is the live, in-memory side of a quiz session.
// All mutation happens under mu; the engine holds it across store writes.
type Session struct {
	mu sync.Mutex

	record       models.QuizSession
	cursor       int
	streak       int
	bestStreak   int
	correctTally int
	answeredMs   int64
	lastActivity time.Time
	// restored sessions may trail the client when earlier answers were
	// never stored; the first answer ahead of the cursor realigns it.
	realign bool
}

func newSession(rec models.QuizSession, now time.Time) *Session {
	return &Session{record: rec, lastActivity: now}
}

// restoreSession rebuilds a live session from its stored record and answers.
func restoreSession(rec models.QuizSession, answers []models.AnswerRecord, now time.Time) *Session {
	s := newSession(rec, now)
	for _, a := range answers {
		s.apply(a)
	}
	s.realign = rec.CompletedAt == nil
	return s
}

func (s *Session) state() State {
	switch {
	case s.record.CompletedAt != nil:
		return StateCompleted
	case s.cursor > 0:
		return StateInProgress
	default:
		return StateCreated
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// Snapshot returns a copy of the session record.
func (s *Session) Snapshot() models.QuizSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() models.QuizSession {
	rec := s.record
	rec.QuestionIDs = append([]uuid.UUID(nil), s.record.QuestionIDs...)
	if rec.CompletedAt == nil {
		rec.TimeTakenMs = s.answeredMs
		rec.BestStreak = s.bestStreak
	}
	return rec
}

// Cursor is the index of the next question to answer.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Session) apply(a models.AnswerRecord) {
	if a.Position >= s.cursor {
		s.cursor = a.Position + 1
	}
	s.answeredMs += a.TimeTakenMs
	if a.IsCorrect {
		s.correctTally++
		s.streak++
		if s.streak > s.bestStreak {
			s.bestStreak = s.streak
		}
	} else {
		s.streak = 0
	}
}

func validOption(opt string) bool {
	switch opt {
	case "", "A", "B", "C", "D":
		return true
	}
	return false
}

// recordAnswer validates a submission, advances the cursor and returns the
// record to persist. Caller holds mu.
func (s *Session) recordAnswer(req models.SubmitAnswerRequest, now time.Time) (models.AnswerRecord, error) {
	id := s.record.ID
	if s.state() == StateCompleted {
		return models.AnswerRecord{}, alreadyCompleted(id)
	}
	if s.cursor >= s.record.TotalQuestions {
		return models.AnswerRecord{}, &InvalidStateError{SessionID: id, Reason: "all questions already answered"}
	}
	if !validOption(req.SelectedOption) {
		return models.AnswerRecord{}, ErrInvalidOption
	}
	if s.realign && req.QuestionID != uuid.Nil {
		s.skipTo(req.QuestionID)
	}
	if s.cursor < len(s.record.QuestionIDs) && req.QuestionID != uuid.Nil {
		if want := s.record.QuestionIDs[s.cursor]; want != req.QuestionID {
			return models.AnswerRecord{}, &InvalidStateError{
				SessionID: id,
				Reason:    fmt.Sprintf("answer for question %s submitted out of order, expected %s", req.QuestionID, want),
			}
		}
	}
	qid := req.QuestionID
	if qid == uuid.Nil && s.cursor < len(s.record.QuestionIDs) {
		qid = s.record.QuestionIDs[s.cursor]
	}
	ms := req.TimeTakenMs
	if ms < 0 {
		ms = 0
	}

	a := models.AnswerRecord{
		SessionID:      id,
		UserID:         s.record.UserID,
		QuestionID:     qid,
		Position:       s.cursor,
		SelectedOption: req.SelectedOption,
		IsCorrect:      req.IsCorrect,
		TimeTakenMs:    ms,
		AnsweredAt:     now,
	}
	s.apply(a)
	s.lastActivity = now
	s.realign = false
	return a, nil
}

// skipTo moves the cursor forward to the position of qid. Skipped
// positions count as unanswered. Caller holds mu.
func (s *Session) skipTo(qid uuid.UUID) {
	for i := s.cursor + 1; i < len(s.record.QuestionIDs); i++ {
		if s.record.QuestionIDs[i] == qid {
			s.streak = 0
			s.cursor = i
			return
		}
	}
}

// completion computes the final record without committing it. Caller holds mu.
func (s *Session) completion(correct int, totalMs int64, now time.Time) (models.QuizSession, error) {
	id := s.record.ID
	if s.state() == StateCompleted {
		return models.QuizSession{}, alreadyCompleted(id)
	}
	if correct < 0 || correct > s.record.TotalQuestions {
		return models.QuizSession{}, &InvalidStateError{
			SessionID: id,
			Reason:    fmt.Sprintf("correct answers %d outside 0..%d", correct, s.record.TotalQuestions),
		}
	}
	if totalMs < 0 {
		return models.QuizSession{}, &InvalidStateError{SessionID: id, Reason: "negative time taken"}
	}
	if correct != s.correctTally {
		log.Printf("quiz: session %s finished with %d correct, %d correct answers recorded", id, correct, s.correctTally)
	}
	if totalMs < s.answeredMs {
		totalMs = s.answeredMs
	}

	final := s.snapshot()
	completedAt := now
	final.CompletedAt = &completedAt
	final.CorrectAnswers = correct
	final.FinalScore = ScorePercentage(correct, s.record.TotalQuestions)
	final.TimeTakenMs = totalMs
	final.BestStreak = s.bestStreak
	return final, nil
}

// commit installs a completed record. Caller holds mu.
func (s *Session) commit(final models.QuizSession) {
	s.record = final
	s.lastActivity = *final.CompletedAt
}

func alreadyCompleted(id uuid.UUID) error {
	return &InvalidStateError{SessionID: id, Reason: "session already completed", Err: ErrAlreadyCompleted}
}
