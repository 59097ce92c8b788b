package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quizmaster-backend/internal/middleware"
	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

// ─── Fakes ───

type stubBank struct {
	questions []models.Question
	inserted  []models.Question
	insertErr error
}

func newStubBank(n int) *stubBank {
	b := &stubBank{}
	for i := 0; i < n; i++ {
		b.questions = append(b.questions, models.Question{
			ID: uuid.New(), CategoryID: 1, Text: fmt.Sprintf("q%d", i),
			OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d",
			CorrectOption: "A", Difficulty: 2, Source: models.QuestionSourceBank,
		})
	}
	return b
}

func (b *stubBank) take(count int) []models.Question {
	if count > len(b.questions) {
		count = len(b.questions)
	}
	return append([]models.Question(nil), b.questions[:count]...)
}

func (b *stubBank) RandomQuestions(_ context.Context, count int) ([]models.Question, error) {
	return b.take(count), nil
}

func (b *stubBank) QuestionsByCategory(_ context.Context, categoryID, count int) ([]models.Question, error) {
	if categoryID != 1 {
		return nil, nil
	}
	return b.take(count), nil
}

func (b *stubBank) AdaptiveQuestions(_ context.Context, _ uuid.UUID, count int) ([]models.Question, error) {
	return b.take(count), nil
}

func (b *stubBank) InsertQuestion(_ context.Context, q *models.Question) error {
	if b.insertErr != nil {
		return b.insertErr
	}
	q.ID = uuid.New()
	b.inserted = append(b.inserted, *q)
	return nil
}

func (b *stubBank) CategoryName(_ context.Context, id int) (string, error) {
	return fmt.Sprintf("Category %d", id), nil
}

type stubStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.QuizSession
	saveErr  error
}

func newStubStore() *stubStore {
	return &stubStore{sessions: make(map[uuid.UUID]models.QuizSession)}
}

func (s *stubStore) CreateSession(_ context.Context, rec *models.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = *rec
	return nil
}

func (s *stubStore) GetSession(_ context.Context, id uuid.UUID) (*models.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, quiz.ErrSessionNotFound
	}
	return &rec, nil
}

func (s *stubStore) CompleteSession(_ context.Context, rec *models.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[rec.ID].CompletedAt != nil {
		return quiz.ErrAlreadyCompleted
	}
	s.sessions[rec.ID] = *rec
	return nil
}

func (s *stubStore) SaveAnswer(_ context.Context, _ *models.AnswerRecord) error {
	return s.saveErr
}

func (s *stubStore) SessionAnswers(_ context.Context, _ uuid.UUID) ([]models.AnswerRecord, error) {
	return nil, nil
}

func (s *stubStore) UserSessions(_ context.Context, userID uuid.UUID) ([]models.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.QuizSession
	for _, rec := range s.sessions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	messages []models.WSMessage
}

func (p *recordingPublisher) Publish(_ context.Context, _ uuid.UUID, msg models.WSMessage) {
	p.messages = append(p.messages, msg)
}

type stubJobs struct {
	jobs      map[uuid.UUID]*models.Job
	createErr error
}

func (s *stubJobs) Create(_ context.Context, j *models.Job) error {
	if s.createErr != nil {
		return s.createErr
	}
	j.ID = uuid.New()
	j.Status = "pending"
	s.jobs[j.ID] = j
	return nil
}

func (s *stubJobs) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	j, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return j, nil
}

type stubCategories struct{}

func (stubCategories) List(context.Context) ([]models.Category, error) {
	return []models.Category{{ID: 1, Name: "Science", QuestionCount: 5}}, nil
}

// ─── Harness ───

type testAPI struct {
	router   http.Handler
	userID   uuid.UUID
	bank     *stubBank
	store    *stubStore
	events   *recordingPublisher
	jobs     *stubJobs
	enqueued []*models.Job
	engine   *quiz.Engine
}

func newTestAPI(t *testing.T, bankSize int) *testAPI {
	t.Helper()
	api := &testAPI{
		userID: uuid.New(),
		bank:   newStubBank(bankSize),
		store:  newStubStore(),
		events: &recordingPublisher{},
		jobs:   &stubJobs{jobs: map[uuid.UUID]*models.Job{}},
	}
	source := quiz.NewSource(api.bank, nil, time.Second)
	api.engine = quiz.NewEngine(source, api.store, nil, quiz.EngineConfig{DefaultQuestionCount: 5})

	quizH := NewQuizHandler(api.engine, api.events)
	questionH := NewQuestionHandler(api.bank, stubCategories{}, api.jobs, func(_ context.Context, j *models.Job) error {
		api.enqueued = append(api.enqueued, j)
		return nil
	})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), api.userID)))
		})
	})
	r.Post("/quizzes/start", quizH.Start)
	r.Post("/sessions/{id}/answers", quizH.Answer)
	r.Post("/sessions/{id}/finish", quizH.Finish)
	r.Get("/sessions/{id}", quizH.Get)
	r.Get("/sessions", quizH.History)
	r.Get("/profile/summary", quizH.Summary)
	r.Get("/categories", questionH.Categories)
	r.Post("/questions", questionH.Create)
	r.Post("/questions/generate", questionH.Generate)
	r.Get("/jobs/{id}", questionH.Job)
	api.router = r
	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	rr := httptest.NewRecorder()
	api.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	decode(t, rr, &resp)
	return resp.Error.Code
}

func (api *testAPI) start(t *testing.T, body models.StartQuizRequest) models.StartQuizResponse {
	t.Helper()
	rr := api.do(t, http.MethodPost, "/quizzes/start", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: status %d, body %s", rr.Code, rr.Body.String())
	}
	var resp models.StartQuizResponse
	decode(t, rr, &resp)
	return resp
}

// ─── Quiz flow ───

func TestQuizFlow(t *testing.T) {
	api := newTestAPI(t, 10)

	started := api.start(t, models.StartQuizRequest{Strategy: "random", QuestionCount: 3})
	if started.Session.Strategy != "random" || started.Session.TotalQuestions != 3 || len(started.Questions) != 3 {
		t.Fatalf("unexpected start response: %+v", started.Session)
	}
	if started.QuestionTimeLimit != 30 {
		t.Errorf("question time limit = %d, want 30", started.QuestionTimeLimit)
	}

	id := started.Session.ID
	for i, q := range started.Questions {
		rr := api.do(t, http.MethodPost, "/sessions/"+id.String()+"/answers", models.SubmitAnswerRequest{
			QuestionID: q.ID, SelectedOption: "A", IsCorrect: i != 1, TimeTakenMs: 1000,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("answer %d: status %d, body %s", i, rr.Code, rr.Body.String())
		}
	}

	rr := api.do(t, http.MethodPost, "/sessions/"+id.String()+"/finish", models.FinishQuizRequest{CorrectAnswers: 2, TotalTimeTakenMs: 3000})
	if rr.Code != http.StatusOK {
		t.Fatalf("finish: status %d, body %s", rr.Code, rr.Body.String())
	}
	var finished struct {
		Session models.QuizSession `json:"session"`
		Level   string             `json:"level"`
	}
	decode(t, rr, &finished)
	if finished.Session.FinalScore != 67 || finished.Level != quiz.LevelAdvanced {
		t.Errorf("score %d level %s, want 67 advanced", finished.Session.FinalScore, finished.Level)
	}
	if len(api.events.messages) != 1 || api.events.messages[0].Type != "session_completed" {
		t.Errorf("expected one session_completed event, got %+v", api.events.messages)
	}

	rr = api.do(t, http.MethodPost, "/sessions/"+id.String()+"/finish", models.FinishQuizRequest{CorrectAnswers: 2})
	if rr.Code != http.StatusConflict {
		t.Errorf("second finish: status %d, want 409", rr.Code)
	}

	rr = api.do(t, http.MethodGet, "/profile/summary", nil)
	var summary models.PerformanceSummary
	decode(t, rr, &summary)
	if summary.TotalQuizzes != 1 || summary.BestScore != 67 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestStartQuizErrors(t *testing.T) {
	api := newTestAPI(t, 0)

	rr := api.do(t, http.MethodPost, "/quizzes/start", models.StartQuizRequest{Strategy: "random"})
	var empty models.ErrorResponse
	decode(t, rr, &empty)
	if rr.Code != http.StatusUnprocessableEntity || empty.Error.Code != "NO_QUESTIONS" {
		t.Errorf("empty bank: status %d", rr.Code)
	}
	if !strings.Contains(empty.Error.Message, "try another strategy") {
		t.Errorf("empty bank message = %q", empty.Error.Message)
	}

	rr = api.do(t, http.MethodPost, "/quizzes/start", models.StartQuizRequest{Strategy: "ai_random"})
	if rr.Code != http.StatusServiceUnavailable || errorCode(t, rr) != "AI_UNAVAILABLE" {
		t.Errorf("ai without provider: status %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, "/quizzes/start", models.StartQuizRequest{QuestionCount: 500})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("oversized count: status %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/quizzes/start", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status %d", rec.Code)
	}
}

func TestAnswerErrors(t *testing.T) {
	api := newTestAPI(t, 5)
	started := api.start(t, models.StartQuizRequest{QuestionCount: 1})
	path := "/sessions/" + started.Session.ID.String() + "/answers"

	rr := api.do(t, http.MethodPost, path, models.SubmitAnswerRequest{SelectedOption: "E"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid option: status %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, path, models.SubmitAnswerRequest{SelectedOption: "B"})
	if rr.Code != http.StatusOK {
		t.Fatalf("answer: status %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, path, models.SubmitAnswerRequest{SelectedOption: "B"})
	if rr.Code != http.StatusConflict || errorCode(t, rr) != "INVALID_STATE" {
		t.Errorf("answer past end: status %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, "/sessions/"+uuid.NewString()+"/answers", models.SubmitAnswerRequest{})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown session: status %d", rr.Code)
	}

	rr = api.do(t, http.MethodPost, "/sessions/not-a-uuid/answers", models.SubmitAnswerRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad session id: status %d", rr.Code)
	}
}

func TestAnswerStoreFailureIsAccepted(t *testing.T) {
	api := newTestAPI(t, 5)
	started := api.start(t, models.StartQuizRequest{QuestionCount: 2})
	api.store.saveErr = errors.New("db down")

	rr := api.do(t, http.MethodPost, "/sessions/"+started.Session.ID.String()+"/answers",
		models.SubmitAnswerRequest{SelectedOption: "A", IsCorrect: true})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status %d, want 202", rr.Code)
	}
	var resp struct {
		Answer    models.AnswerRecord `json:"answer"`
		Persisted bool                `json:"persisted"`
	}
	decode(t, rr, &resp)
	if resp.Persisted || resp.Answer.Position != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSessionOwnership(t *testing.T) {
	api := newTestAPI(t, 5)
	started := api.start(t, models.StartQuizRequest{QuestionCount: 2})

	rr := api.do(t, http.MethodGet, "/sessions/"+started.Session.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("owner get: status %d", rr.Code)
	}

	api.userID = uuid.New()
	rr = api.do(t, http.MethodGet, "/sessions/"+started.Session.ID.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("other user get: status %d, want 404", rr.Code)
	}

	rr = api.do(t, http.MethodGet, "/sessions", nil)
	var history struct {
		Sessions []models.QuizSession `json:"sessions"`
	}
	decode(t, rr, &history)
	if history.Sessions == nil || len(history.Sessions) != 0 {
		t.Errorf("other user should see an empty history, got %+v", history.Sessions)
	}
}

// ─── Questions & jobs ───

func TestCreateQuestion(t *testing.T) {
	api := newTestAPI(t, 0)

	rr := api.do(t, http.MethodPost, "/questions", map[string]interface{}{
		"question": " What is 2+2? ", "option_a": "3", "option_b": "4", "option_c": "5", "option_d": "6",
		"correct_option": "b", "category_id": 1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if len(api.bank.inserted) != 1 {
		t.Fatalf("inserted %d questions", len(api.bank.inserted))
	}
	got := api.bank.inserted[0]
	if got.Text != "What is 2+2?" || got.CorrectOption != "B" || got.Difficulty != models.DifficultyMedium {
		t.Errorf("question not normalized: %+v", got)
	}

	rr = api.do(t, http.MethodPost, "/questions", map[string]interface{}{"question": "Q", "correct_option": "Z"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid question: status %d", rr.Code)
	}
	var resp models.ErrorResponse
	decode(t, rr, &resp)
	for _, field := range []string{"option_a", "option_d", "correct_option"} {
		if _, ok := resp.Error.Fields[field]; !ok {
			t.Errorf("missing field error for %s: %v", field, resp.Error.Fields)
		}
	}
	if resp.Error.RequestID != "req-1" {
		t.Errorf("request id = %q", resp.Error.RequestID)
	}
}

func TestGenerateQuestionsQueuesJob(t *testing.T) {
	api := newTestAPI(t, 0)

	rr := api.do(t, http.MethodPost, "/questions/generate", models.GenerateQuestionsRequest{Topic: "Space", Count: 5})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if len(api.enqueued) != 1 || api.enqueued[0].Type != models.JobQuestionGeneration {
		t.Fatalf("expected one generation job, got %+v", api.enqueued)
	}
	jobID := api.enqueued[0].ID

	rr = api.do(t, http.MethodGet, "/jobs/"+jobID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("job: status %d", rr.Code)
	}

	api.userID = uuid.New()
	rr = api.do(t, http.MethodGet, "/jobs/"+jobID.String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("other user's job: status %d, want 404", rr.Code)
	}

	rr = api.do(t, http.MethodPost, "/questions/generate", models.GenerateQuestionsRequest{Count: 5})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing topic: status %d", rr.Code)
	}
}

func TestCategories(t *testing.T) {
	api := newTestAPI(t, 0)
	rr := api.do(t, http.MethodGet, "/categories", nil)
	var resp struct {
		Categories []models.Category `json:"categories"`
	}
	decode(t, rr, &resp)
	if len(resp.Categories) != 1 || resp.Categories[0].Name != "Science" {
		t.Errorf("unexpected categories: %+v", resp.Categories)
	}
}

// ─── Error mapping ───

func TestHandleQuizError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", quiz.ErrSessionNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"invalid option", quiz.ErrInvalidOption, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"no questions", quiz.ErrNoQuestionsAvailable, http.StatusUnprocessableEntity, "NO_QUESTIONS"},
		{"completed", quiz.ErrAlreadyCompleted, http.StatusConflict, "ALREADY_COMPLETED"},
		{"completed state", &quiz.InvalidStateError{Reason: "session already completed", Err: quiz.ErrAlreadyCompleted}, http.StatusConflict, "ALREADY_COMPLETED"},
		{"state", &quiz.InvalidStateError{Reason: "all questions already answered"}, http.StatusConflict, "INVALID_STATE"},
		{"ai", &quiz.AIGenerationError{Op: "generate", Err: errors.New("timeout")}, http.StatusServiceUnavailable, "AI_UNAVAILABLE"},
		{"repo", &quiz.RepositoryError{Op: "create session", Err: errors.New("down")}, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"other", errors.New("mystery"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handleQuizError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			if rr.Code != tc.status {
				t.Errorf("status %d, want %d", rr.Code, tc.status)
			}
			if got := errorCode(t, rr); got != tc.code {
				t.Errorf("code %s, want %s", got, tc.code)
			}
		})
	}
}
