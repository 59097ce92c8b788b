package quiz

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"quizmaster-backend/internal/models"
)

// Strategy is the question-selection tag recorded on a session.
type Strategy string

const (
	StrategyRandom     Strategy = "random"
	StrategyCategory   Strategy = "category"
	StrategyAdaptive   Strategy = "adaptive"
	StrategyAIRandom   Strategy = "ai_random"
	StrategyAICategory Strategy = "ai_category"
	StrategyHybrid     Strategy = "hybrid"
)

// ParseStrategy normalizes a strategy tag. Unknown or empty tags become random.
func ParseStrategy(s string) (Strategy, bool) {
	switch st := Strategy(s); st {
	case StrategyRandom, StrategyCategory, StrategyAdaptive,
		StrategyAIRandom, StrategyAICategory, StrategyHybrid:
		return st, true
	}
	return StrategyRandom, false
}

// DefaultTopics are used for AI generation when the caller names none.
var DefaultTopics = []string{
	"Science and Technology", "History", "Geography", "Literature", "Mathematics",
	"Arts", "Sports", "General Knowledge", "Nature", "Culture",
}

// DifficultyLabel maps 1/2/3 to easy/medium/hard; anything else is medium.
func DifficultyLabel(d int) string {
	switch d {
	case models.DifficultyEasy:
		return "easy"
	case models.DifficultyHard:
		return "hard"
	default:
		return "medium"
	}
}

// QuestionRepository is the question bank.
type QuestionRepository interface {
	RandomQuestions(ctx context.Context, count int) ([]models.Question, error)
	QuestionsByCategory(ctx context.Context, categoryID, count int) ([]models.Question, error)
	AdaptiveQuestions(ctx context.Context, userID uuid.UUID, count int) ([]models.Question, error)
	InsertQuestion(ctx context.Context, q *models.Question) error
	CategoryName(ctx context.Context, categoryID int) (string, error)
}

// AIQuestionProvider synthesizes questions. A batch is all-or-nothing.
type AIQuestionProvider interface {
	GenerateQuestions(ctx context.Context, topic string, count int, difficulty string) ([]models.Question, error)
}

// Params carries the inputs of a strategy.
type Params struct {
	UserID     uuid.UUID
	Count      int
	CategoryID *int
	Difficulty int
	Topic      string
}

// Source resolves question lists for each strategy.
type Source struct {
	repo      QuestionRepository
	ai        AIQuestionProvider
	aiTimeout time.Duration
	persistAI bool
	topics    []string
	shuffle   func([]models.Question)
	pickTopic func([]string) string
}

// NewSource builds a Source. Pass a nil provider when no AI backend is configured.
func NewSource(repo QuestionRepository, ai AIQuestionProvider, aiTimeout time.Duration) *Source {
	if aiTimeout <= 0 {
		aiTimeout = 20 * time.Second
	}
	return &Source{
		repo:      repo,
		ai:        ai,
		aiTimeout: aiTimeout,
		persistAI: true,
		topics:    DefaultTopics,
		shuffle: func(qs []models.Question) {
			rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		},
		pickTopic: func(ts []string) string { return ts[rand.IntN(len(ts))] },
	}
}

// HasAI reports whether an AI provider is configured.
func (s *Source) HasAI() bool { return s.ai != nil }

func clamp(qs []models.Question, count int) []models.Question {
	if qs == nil {
		return []models.Question{}
	}
	if len(qs) > count {
		return qs[:count]
	}
	return qs
}

func (s *Source) Random(ctx context.Context, count int) ([]models.Question, error) {
	if count <= 0 {
		return []models.Question{}, nil
	}
	qs, err := s.repo.RandomQuestions(ctx, count)
	if err != nil {
		return nil, repoErr("random questions", err)
	}
	return clamp(qs, count), nil
}

func (s *Source) ByCategory(ctx context.Context, categoryID, count int) ([]models.Question, error) {
	if count <= 0 {
		return []models.Question{}, nil
	}
	qs, err := s.repo.QuestionsByCategory(ctx, categoryID, count)
	if err != nil {
		return nil, repoErr("questions by category", err)
	}
	return clamp(qs, count), nil
}

// Adaptive returns questions picked for the user's historical level.
// Callers fall back to Random on error.
func (s *Source) Adaptive(ctx context.Context, userID uuid.UUID, count int) ([]models.Question, error) {
	if count <= 0 {
		return []models.Question{}, nil
	}
	qs, err := s.repo.AdaptiveQuestions(ctx, userID, count)
	if err != nil {
		return nil, repoErr("adaptive questions", err)
	}
	return clamp(qs, count), nil
}

// AIGenerated asks the provider for a batch, bounded by the AI timeout.
// Generated questions are stored in the bank; a failed insert is logged only.
func (s *Source) AIGenerated(ctx context.Context, topic string, count, difficulty int) ([]models.Question, error) {
	return s.generate(ctx, topic, nil, count, difficulty)
}

func (s *Source) generate(ctx context.Context, topic string, categoryID *int, count, difficulty int) ([]models.Question, error) {
	if s.ai == nil {
		return nil, aiErr("generate", ErrAIUnavailable)
	}
	if count <= 0 {
		return []models.Question{}, nil
	}
	if topic == "" {
		topic = s.pickTopic(s.topics)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	qs, err := s.ai.GenerateQuestions(genCtx, topic, count, DifficultyLabel(difficulty))
	if err != nil {
		return nil, aiErr("generate", err)
	}
	if len(qs) == 0 {
		return nil, aiErr("generate", errors.New("provider returned an empty batch"))
	}
	qs = clamp(qs, count)

	for i := range qs {
		if qs[i].ID == uuid.Nil {
			qs[i].ID = uuid.New()
		}
		qs[i].Source = models.QuestionSourceAI
		if qs[i].Difficulty == 0 {
			qs[i].Difficulty = difficulty
		}
		if categoryID != nil {
			qs[i].CategoryID = *categoryID
			qs[i].CategoryName = topic
		}
		if s.persistAI {
			if err := s.repo.InsertQuestion(ctx, &qs[i]); err != nil {
				log.Printf("quiz: failed to store generated question %s: %v", qs[i].ID, err)
			}
		}
	}
	return qs, nil
}

// Hybrid mixes count/2 AI questions with repository questions and shuffles the result.
// If the AI half cannot be produced, the repository supplies the whole list.
func (s *Source) Hybrid(ctx context.Context, count, difficulty int) ([]models.Question, error) {
	if count <= 0 {
		return []models.Question{}, nil
	}

	var aiQs []models.Question
	if aiCount := count / 2; aiCount > 0 && s.ai != nil {
		generated, err := s.AIGenerated(ctx, "", aiCount, difficulty)
		if err != nil {
			log.Printf("quiz: hybrid AI half unavailable, using question bank: %v", err)
		} else {
			aiQs = generated
		}
	}

	repoQs, err := s.Random(ctx, count-len(aiQs))
	if err != nil {
		return nil, err
	}

	out := make([]models.Question, 0, len(aiQs)+len(repoQs))
	out = append(out, aiQs...)
	out = append(out, repoQs...)
	s.shuffle(out)
	return out, nil
}

// Fetch dispatches a strategy with its fallbacks and returns the tag to record.
// Only repository failures and an AI-only request without a provider are fatal.
func (s *Source) Fetch(ctx context.Context, tag string, p Params) ([]models.Question, Strategy, error) {
	strategy, ok := ParseStrategy(tag)
	if !ok && tag != "" {
		log.Printf("quiz: unknown strategy %q, using random", tag)
	}

	switch strategy {
	case StrategyCategory:
		if p.CategoryID == nil || *p.CategoryID < 0 {
			qs, err := s.Random(ctx, p.Count)
			return qs, strategy, err
		}
		qs, err := s.ByCategory(ctx, *p.CategoryID, p.Count)
		return qs, strategy, err

	case StrategyAdaptive:
		qs, err := s.Adaptive(ctx, p.UserID, p.Count)
		if err != nil || len(qs) == 0 {
			if err != nil {
				log.Printf("quiz: adaptive selection failed for user %s, using random: %v", p.UserID, err)
			}
			qs, err = s.Random(ctx, p.Count)
		}
		return qs, strategy, err

	case StrategyAIRandom:
		if !s.HasAI() {
			return nil, strategy, aiErr("generate", ErrAIUnavailable)
		}
		qs, err := s.AIGenerated(ctx, p.Topic, p.Count, p.Difficulty)
		if err != nil {
			log.Printf("quiz: AI generation failed, using random: %v", err)
			qs, err = s.Random(ctx, p.Count)
		}
		return qs, strategy, err

	case StrategyAICategory:
		if !s.HasAI() {
			return nil, strategy, aiErr("generate", ErrAIUnavailable)
		}
		if p.CategoryID == nil || *p.CategoryID < 0 {
			qs, err := s.AIGenerated(ctx, p.Topic, p.Count, p.Difficulty)
			if err != nil {
				log.Printf("quiz: AI generation failed, using random: %v", err)
				qs, err = s.Random(ctx, p.Count)
			}
			return qs, strategy, err
		}
		topic := p.Topic
		if topic == "" {
			name, err := s.repo.CategoryName(ctx, *p.CategoryID)
			if err != nil {
				return nil, strategy, repoErr("category name", err)
			}
			topic = name
		}
		qs, err := s.generate(ctx, topic, p.CategoryID, p.Count, p.Difficulty)
		if err != nil {
			log.Printf("quiz: AI generation for category %d failed, using question bank: %v", *p.CategoryID, err)
			qs, err = s.ByCategory(ctx, *p.CategoryID, p.Count)
		}
		return qs, strategy, err

	case StrategyHybrid:
		qs, err := s.Hybrid(ctx, p.Count, p.Difficulty)
		return qs, strategy, err

	default:
		qs, err := s.Random(ctx, p.Count)
		return qs, StrategyRandom, err
	}
}
