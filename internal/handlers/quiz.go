package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quizmaster-backend/internal/middleware"
	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

// questionTimeLimitSeconds is the per-question countdown clients display.
const questionTimeLimitSeconds = 30

type QuizHandler struct {
	engine *quiz.Engine
	events eventPublisher
}

func NewQuizHandler(engine *quiz.Engine, events eventPublisher) *QuizHandler {
	return &QuizHandler{engine: engine, events: events}
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.QuestionCount < 0 || req.QuestionCount > 50 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"question_count": "must be between 1 and 50"}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, questions, err := h.engine.StartQuiz(r.Context(), req.Strategy, quiz.Params{
		UserID:     userID,
		Count:      req.QuestionCount,
		CategoryID: req.CategoryID,
		Difficulty: req.Difficulty,
		Topic:      req.Topic,
	})
	if err != nil {
		handleQuizError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.StartQuizResponse{
		Session:           session,
		Questions:         questions,
		QuestionTimeLimit: questionTimeLimitSeconds,
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func (h *QuizHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	answer, err := h.engine.SubmitAnswer(r.Context(), id, middleware.GetUserID(r.Context()), req)
	var repoErr *quiz.RepositoryError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"answer": answer, "persisted": true})
	case errors.As(err, &repoErr) && answer.SessionID != uuid.Nil:
		// Accepted in memory; the quiz can go on.
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"answer": answer, "persisted": false})
	default:
		handleQuizError(w, r, err)
	}
}

func (h *QuizHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req models.FinishQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	session, err := h.engine.FinishQuiz(r.Context(), id, userID, req.CorrectAnswers, req.TotalTimeTakenMs)
	if err != nil {
		handleQuizError(w, r, err)
		return
	}

	level := quiz.PerformanceLevel(float64(session.FinalScore) / 100)
	if h.events != nil {
		h.events.Publish(r.Context(), userID, models.WSMessage{
			Type: "session_completed",
			Payload: models.SessionCompletedEvent{
				SessionID:  session.ID,
				FinalScore: session.FinalScore,
				Level:      level,
			},
		})
	}
	log.Printf("Quiz %s finished by %s: %d%% (%s)", session.ID, userID, session.FinalScore, level)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
		"level":   level,
	})
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.engine.Session(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		handleQuizError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.engine.History(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleQuizError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.QuizSession{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *QuizHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.PerformanceSummary(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleQuizError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
