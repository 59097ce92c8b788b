package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"quizmaster-backend/internal/models"
)

type fakeGenerator struct {
	err    error
	topics []string
}

func (g *fakeGenerator) GenerateQuestions(_ context.Context, topic string, count int, _ string) ([]models.Question, error) {
	g.topics = append(g.topics, topic)
	if g.err != nil {
		return nil, g.err
	}
	qs := make([]models.Question, count)
	for i := range qs {
		qs[i] = models.Question{
			Text:          fmt.Sprintf("q%d", i),
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: "B",
		}
	}
	return qs, nil
}

type fakeQuestions struct {
	inserted []models.Question
	err      error
}

func (f *fakeQuestions) InsertQuestions(_ context.Context, qs []models.Question) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, qs...)
	return len(qs), nil
}

func (f *fakeQuestions) CategoryName(_ context.Context, id int) (string, error) {
	return fmt.Sprintf("Category %d", id), nil
}

type fakeJobs struct {
	statuses []string
	errMsg   string
	result   int
}

func (f *fakeJobs) UpdateStatus(_ context.Context, _ uuid.UUID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeJobs) UpdateError(_ context.Context, _ uuid.UUID, errMsg string, _ int) error {
	f.errMsg = errMsg
	return nil
}

func (f *fakeJobs) SetResult(_ context.Context, _ uuid.UUID, count int) error {
	f.result = count
	return nil
}

type fakeEvents struct {
	mu    sync.Mutex
	types []string
}

func (f *fakeEvents) Publish(_ context.Context, _ uuid.UUID, msg models.WSMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, msg.Type)
}

func (f *fakeEvents) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.types) == 0 {
		return ""
	}
	return f.types[len(f.types)-1]
}

func generationJob(t *testing.T, cfg GenerationConfig) *models.Job {
	t.Helper()
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return &models.Job{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Type:       models.JobQuestionGeneration,
		ConfigJSON: raw,
		Status:     "pending",
		MaxRetries: maxRetries,
	}
}

func TestJobQueueName(t *testing.T) {
	if got := jobQueueName(models.JobQuestionGeneration); got != "queue:question-generation" {
		t.Errorf("jobQueueName = %q", got)
	}
}

func TestParseGenerationConfig(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want GenerationConfig
	}{
		{"defaults", `{}`, GenerationConfig{Count: 10, Difficulty: 2}},
		{"empty payload", ``, GenerationConfig{Count: 10, Difficulty: 2}},
		{"bounded count", `{"topic":" Space ","count":500,"difficulty":3}`, GenerationConfig{Topic: "Space", Count: 50, Difficulty: 3}},
		{"bad difficulty", `{"count":5,"difficulty":9,"category_id":4}`, GenerationConfig{Count: 5, Difficulty: 2, CategoryID: 4}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseGenerationConfig(json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("ParseGenerationConfig: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}

	if _, err := ParseGenerationConfig(json.RawMessage(`{"count":"many"}`)); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestBackoff(t *testing.T) {
	if backoff(1) != 2*time.Second || backoff(2) != 4*time.Second {
		t.Errorf("unexpected backoff: %v, %v", backoff(1), backoff(2))
	}
}

func TestProcessGenerationJob(t *testing.T) {
	gen := &fakeGenerator{}
	questions := &fakeQuestions{}
	jobs := &fakeJobs{}
	events := &fakeEvents{}
	p := NewPool(nil, gen, questions, jobs, events, 1)

	job := generationJob(t, GenerationConfig{CategoryID: 5, Count: 4, Difficulty: 3})
	p.Process(context.Background(), job)

	if len(questions.inserted) != 4 {
		t.Fatalf("inserted %d questions, want 4", len(questions.inserted))
	}
	for _, q := range questions.inserted {
		if q.ID == uuid.Nil || q.CategoryID != 5 || q.Source != models.QuestionSourceAI || q.Difficulty != 3 {
			t.Fatalf("question not stamped: %+v", q)
		}
	}
	if gen.topics[0] != "Category 5" {
		t.Errorf("topic = %q, want category name", gen.topics[0])
	}
	if jobs.result != 4 {
		t.Errorf("result = %d, want 4", jobs.result)
	}
	if got := jobs.statuses[len(jobs.statuses)-1]; got != "completed" {
		t.Errorf("final status = %q, want completed", got)
	}
	if events.last() != "completed" {
		t.Errorf("last event = %q, want completed", events.last())
	}
}

func TestProcessWithoutGeneratorFailsPermanently(t *testing.T) {
	jobs := &fakeJobs{}
	events := &fakeEvents{}
	p := NewPool(nil, nil, &fakeQuestions{}, jobs, events, 1)

	job := generationJob(t, GenerationConfig{Topic: "History"})
	p.Process(context.Background(), job)

	if got := jobs.statuses[len(jobs.statuses)-1]; got != "failed" {
		t.Errorf("final status = %q, want failed", got)
	}
	if jobs.errMsg != ErrNoGenerator.Error() {
		t.Errorf("error message = %q", jobs.errMsg)
	}
	if events.last() != "error" {
		t.Errorf("last event = %q, want error", events.last())
	}
}

func TestProcessUnknownJobType(t *testing.T) {
	jobs := &fakeJobs{}
	p := NewPool(nil, &fakeGenerator{}, &fakeQuestions{}, jobs, &fakeEvents{}, 1)

	job := &models.Job{ID: uuid.New(), UserID: uuid.New(), Type: "transcode"}
	p.Process(context.Background(), job)

	if got := jobs.statuses[len(jobs.statuses)-1]; got != "failed" {
		t.Errorf("final status = %q, want failed", got)
	}
}

func TestGeneratorFailureWithoutQueueMarksFailed(t *testing.T) {
	jobs := &fakeJobs{}
	p := NewPool(nil, &fakeGenerator{err: errors.New("quota")}, &fakeQuestions{}, jobs, &fakeEvents{}, 1)

	p.Process(context.Background(), generationJob(t, GenerationConfig{Topic: "Art"}))

	if got := jobs.statuses[len(jobs.statuses)-1]; got != "failed" {
		t.Errorf("final status = %q, want failed", got)
	}
	if jobs.errMsg != "generation failed: quota" {
		t.Errorf("error message = %q", jobs.errMsg)
	}
}
