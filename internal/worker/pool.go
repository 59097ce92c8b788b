package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

const (
	maxRetries       = 3
	maxBatchSize     = 50
	generatorTimeout = 2 * time.Minute
)

// ErrNoGenerator is returned for generation jobs when no AI provider is configured.
var ErrNoGenerator = errors.New("no AI provider configured")

// GenerationConfig is the payload of a question-generation job.
type GenerationConfig struct {
	Topic      string `json:"topic"`
	CategoryID int    `json:"category_id"`
	Count      int    `json:"count"`
	Difficulty int    `json:"difficulty"`
}

type questionStore interface {
	InsertQuestions(ctx context.Context, qs []models.Question) (int, error)
	CategoryName(ctx context.Context, categoryID int) (string, error)
}

type jobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
	SetResult(ctx context.Context, id uuid.UUID, count int) error
}

type publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// Pool runs background jobs pulled from Redis lists.
type Pool struct {
	redis       *redis.Client
	generator   quiz.AIQuestionProvider
	questions   questionStore
	jobs        jobStore
	events      publisher
	workerCount int
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewPool builds a worker pool. generator may be nil; generation jobs then fail permanently.
func NewPool(
	redisClient *redis.Client,
	generator quiz.AIQuestionProvider,
	questions questionStore,
	jobs jobStore,
	events publisher,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		generator:   generator,
		questions:   questions,
		jobs:        jobs,
		events:      events,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{jobQueueName(models.JobQuestionGeneration)}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

// Stop signals workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

// Enqueue pushes a job onto its queue.
func Enqueue(ctx context.Context, client *redis.Client, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return client.RPush(ctx, jobQueueName(job.Type), string(jobBytes)).Err()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 5s timeout so Stop is noticed promptly
		result, err := p.redis.BLPop(ctx, 5*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)
		p.Process(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

// Process runs one job and records its outcome.
func (p *Pool) Process(ctx context.Context, job *models.Job) {
	p.jobs.UpdateStatus(ctx, job.ID, "processing")
	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 1, StepName: "Generating questions"},
	})

	var (
		added int
		err   error
	)
	switch job.Type {
	case models.JobQuestionGeneration:
		added, err = p.processGeneration(ctx, job)
	default:
		err = permanent(fmt.Errorf("unknown job type: %s", job.Type))
	}

	if err != nil {
		p.handleFailure(ctx, job, err)
		return
	}
	p.handleSuccess(ctx, job, added)
}

// ParseGenerationConfig decodes and bounds a generation job payload.
func ParseGenerationConfig(raw json.RawMessage) (GenerationConfig, error) {
	var cfg GenerationConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid job config: %w", err)
		}
	}
	cfg.Topic = strings.TrimSpace(cfg.Topic)
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Count > maxBatchSize {
		cfg.Count = maxBatchSize
	}
	if cfg.Difficulty < models.DifficultyEasy || cfg.Difficulty > models.DifficultyHard {
		cfg.Difficulty = models.DifficultyMedium
	}
	return cfg, nil
}

func (p *Pool) processGeneration(ctx context.Context, job *models.Job) (int, error) {
	if p.generator == nil {
		return 0, permanent(ErrNoGenerator)
	}
	cfg, err := ParseGenerationConfig(job.ConfigJSON)
	if err != nil {
		return 0, permanent(err)
	}

	topic := cfg.Topic
	if topic == "" && cfg.CategoryID > 0 {
		name, err := p.questions.CategoryName(ctx, cfg.CategoryID)
		if err != nil {
			return 0, fmt.Errorf("failed to load category %d: %w", cfg.CategoryID, err)
		}
		topic = name
	}
	if topic == "" {
		topic = "General Knowledge"
	}

	genCtx, cancel := context.WithTimeout(ctx, generatorTimeout)
	defer cancel()
	questions, err := p.generator.GenerateQuestions(genCtx, topic, cfg.Count, quiz.DifficultyLabel(cfg.Difficulty))
	if err != nil {
		return 0, fmt.Errorf("generation failed: %w", err)
	}

	for i := range questions {
		questions[i].ID = uuid.New()
		questions[i].CategoryID = cfg.CategoryID
		questions[i].Source = models.QuestionSourceAI
		if questions[i].Difficulty == 0 {
			questions[i].Difficulty = cfg.Difficulty
		}
	}

	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 2, StepName: "Saving questions"},
	})

	added, err := p.questions.InsertQuestions(ctx, questions)
	if err != nil {
		return added, fmt.Errorf("failed to store questions: %w", err)
	}
	return added, nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, added int) {
	p.jobs.SetResult(ctx, job.ID, added)
	p.jobs.UpdateStatus(ctx, job.ID, "completed")

	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type:    "completed",
		Payload: models.CompletedEvent{JobID: job.ID, QuestionsAdded: added},
	})

	log.Printf("Job %s completed successfully (%d questions)", job.ID, added)
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// permanent marks an error that retrying cannot fix.
func permanent(err error) error { return permanentError{err} }

func backoff(retry int) time.Duration {
	return time.Duration(1<<uint(retry)) * time.Second
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	var perm permanentError
	if job.RetryCount < maxRetries && !errors.As(err, &perm) && p.redis != nil {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.jobs.UpdateStatus(ctx, job.ID, "pending")
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		retryJob := *job
		time.AfterFunc(backoff(job.RetryCount), func() {
			if err := Enqueue(context.Background(), p.redis, &retryJob); err != nil {
				log.Printf("Job %s: failed to re-queue: %v", retryJob.ID, err)
			}
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, "failed")
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: errMsg,
		},
	})
}

func jobQueueName(jobType string) string {
	return "queue:" + jobType
}
