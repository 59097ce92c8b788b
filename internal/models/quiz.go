package models

import (
	"time"

	"github.com/google/uuid"
)

// Difficulty levels stored on questions.
const (
	DifficultyEasy   = 1
	DifficultyMedium = 2
	DifficultyHard   = 3
)

// Question sources.
const (
	QuestionSourceBank = "bank"
	QuestionSourceAI   = "ai"
)

type Question struct {
	ID            uuid.UUID `json:"id"`
	CategoryID    int       `json:"category_id"`
	CategoryName  string    `json:"category_name,omitempty"`
	Text          string    `json:"question"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption string    `json:"correct_option"`
	Difficulty    int       `json:"difficulty"`
	Source        string    `json:"source"`
	CreatedAt     time.Time `json:"created_at"`
}

// Option returns the text behind an option letter, or "" for an unknown letter.
func (q Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	QuestionCount int    `json:"question_count"`
}

type QuizSession struct {
	ID             uuid.UUID   `json:"id"`
	UserID         uuid.UUID   `json:"user_id"`
	Strategy       string      `json:"quiz_type"`
	TotalQuestions int         `json:"total_questions"`
	QuestionIDs    []uuid.UUID `json:"question_ids"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at"`
	CorrectAnswers int         `json:"correct_answers"`
	FinalScore     int         `json:"final_score"`
	TimeTakenMs    int64       `json:"time_taken_ms"`
	BestStreak     int         `json:"best_streak"`
}

// Completed reports whether the session has a completion timestamp.
func (s QuizSession) Completed() bool {
	return s.CompletedAt != nil
}

type AnswerRecord struct {
	SessionID      uuid.UUID `json:"session_id"`
	UserID         uuid.UUID `json:"user_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	Position       int       `json:"position"`
	SelectedOption string    `json:"selected_option"`
	IsCorrect      bool      `json:"is_correct"`
	TimeTakenMs    int64     `json:"time_taken_ms"`
	AnsweredAt     time.Time `json:"answered_at"`
}

type PerformanceSummary struct {
	TotalQuizzes int     `json:"total_quizzes"`
	AverageScore float64 `json:"average_score"`
	BestScore    int     `json:"best_score"`
	TotalTimeMs  int64   `json:"total_time_ms"`
	BestStreak   int     `json:"best_streak"`
	Level        string  `json:"level"`
}

type Achievement struct {
	ID          int        `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	EarnedAt    *time.Time `json:"earned_at,omitempty"`
}

// Request / response bodies for the quiz API.

type StartQuizRequest struct {
	Strategy      string `json:"quiz_type"`
	QuestionCount int    `json:"question_count"`
	CategoryID    *int   `json:"category_id"`
	Difficulty    int    `json:"difficulty"`
	Topic         string `json:"topic"`
}

type StartQuizResponse struct {
	Session           *QuizSession `json:"session"`
	Questions         []Question   `json:"questions"`
	QuestionTimeLimit int          `json:"question_time_limit_seconds"`
}

type SubmitAnswerRequest struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	IsCorrect      bool      `json:"is_correct"`
	TimeTakenMs    int64     `json:"time_taken_ms"`
}

type FinishQuizRequest struct {
	CorrectAnswers   int   `json:"correct_answers"`
	TotalTimeTakenMs int64 `json:"total_time_taken_ms"`
}

type GenerateQuestionsRequest struct {
	Topic      string `json:"topic"`
	CategoryID int    `json:"category_id"`
	Count      int    `json:"count"`
	Difficulty int    `json:"difficulty"`
}

type CategoryStat struct {
	CategoryID   int     `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Answered     int     `json:"answered"`
	Correct      int     `json:"correct"`
	Accuracy     float64 `json:"accuracy"`
}
