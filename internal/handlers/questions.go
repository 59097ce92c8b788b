package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quizmaster-backend/internal/middleware"
	"quizmaster-backend/internal/models"
)

type questionWriter interface {
	InsertQuestion(ctx context.Context, q *models.Question) error
}

type jobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// enqueueFunc hands a created job to the worker queue.
type enqueueFunc func(ctx context.Context, job *models.Job) error

type QuestionHandler struct {
	questions  questionWriter
	categories categoryLister
	jobs       jobStore
	enqueue    enqueueFunc
}

func NewQuestionHandler(questions questionWriter, categories categoryLister, jobs jobStore, enqueue enqueueFunc) *QuestionHandler {
	return &QuestionHandler{questions: questions, categories: categories, jobs: jobs, enqueue: enqueue}
}

func validateQuestion(q *models.Question) map[string]string {
	fields := map[string]string{}
	q.Text = strings.TrimSpace(q.Text)
	q.CorrectOption = strings.ToUpper(strings.TrimSpace(q.CorrectOption))
	if q.Text == "" {
		fields["question"] = "is required"
	}
	for name, opt := range map[string]*string{"option_a": &q.OptionA, "option_b": &q.OptionB, "option_c": &q.OptionC, "option_d": &q.OptionD} {
		*opt = strings.TrimSpace(*opt)
		if *opt == "" {
			fields[name] = "is required"
		}
	}
	switch q.CorrectOption {
	case "A", "B", "C", "D":
	default:
		fields["correct_option"] = "must be A, B, C or D"
	}
	if q.Difficulty == 0 {
		q.Difficulty = models.DifficultyMedium
	}
	if q.Difficulty < models.DifficultyEasy || q.Difficulty > models.DifficultyHard {
		fields["difficulty"] = "must be 1, 2 or 3"
	}
	return fields
}

// Create adds a hand-written question to the bank.
func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var q models.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if fields := validateQuestion(&q); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}
	q.ID = uuid.Nil
	q.Source = models.QuestionSourceBank

	if err := h.questions.InsertQuestion(r.Context(), &q); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save question", r))
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// Generate queues a background job that fills the bank with AI questions.
func (h *QuestionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" && req.CategoryID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"topic": "topic or category_id is required"}, r))
		return
	}
	if req.Count < 0 || req.Count > 50 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"count": "must be between 1 and 50"}, r))
		return
	}

	configBytes, _ := json.Marshal(req)
	job := &models.Job{
		UserID:     middleware.GetUserID(r.Context()),
		Type:       models.JobQuestionGeneration,
		ConfigJSON: configBytes,
	}
	if err := h.jobs.Create(r.Context(), job); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create job", r))
		return
	}
	if err := h.enqueue(r.Context(), job); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("QUEUE_UNAVAILABLE", "Failed to queue job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

func (h *QuestionHandler) Job(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}
	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil || job.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *QuestionHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch categories", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}
