package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

type QuestionRepo struct {
	pool      *pgxpool.Pool
	analytics *AnalyticsRepo
}

func NewQuestionRepo(pool *pgxpool.Pool, analytics *AnalyticsRepo) *QuestionRepo {
	return &QuestionRepo{pool: pool, analytics: analytics}
}

const questionColumns = `q.id, COALESCE(q.category_id, 0), COALESCE(c.name, ''), q.question_text,
	q.option_a, q.option_b, q.option_c, q.option_d, q.correct_option, q.difficulty, q.source, q.created_at`

const questionFrom = ` FROM questions q LEFT JOIN categories c ON c.id = q.category_id`

func scanQuestions(rows pgx.Rows) ([]models.Question, error) {
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		err := rows.Scan(&q.ID, &q.CategoryID, &q.CategoryName, &q.Text,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectOption, &q.Difficulty, &q.Source, &q.CreatedAt)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// RandomQuestions draws without replacement.
func (r *QuestionRepo) RandomQuestions(ctx context.Context, count int) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+questionColumns+questionFrom+" ORDER BY random() LIMIT $1", count)
	if err != nil {
		return nil, err
	}
	return scanQuestions(rows)
}

func (r *QuestionRepo) QuestionsByCategory(ctx context.Context, categoryID, count int) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+questionColumns+questionFrom+" WHERE q.category_id = $1 ORDER BY random() LIMIT $2",
		categoryID, count,
	)
	if err != nil {
		return nil, err
	}
	return scanQuestions(rows)
}

// AdaptiveQuestions prefers questions at the difficulty that suits the user's
// level and fills from the nearest difficulties when the band runs short.
func (r *QuestionRepo) AdaptiveQuestions(ctx context.Context, userID uuid.UUID, count int) ([]models.Question, error) {
	level, err := r.analytics.PerformanceLevel(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.QuestionsNearDifficulty(ctx, quiz.DifficultyForLevel(level), count)
}

func (r *QuestionRepo) QuestionsNearDifficulty(ctx context.Context, difficulty, count int) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+questionColumns+questionFrom+" ORDER BY ABS(q.difficulty - $1), random() LIMIT $2",
		difficulty, count,
	)
	if err != nil {
		return nil, err
	}
	return scanQuestions(rows)
}

func (r *QuestionRepo) InsertQuestion(ctx context.Context, q *models.Question) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Source == "" {
		q.Source = models.QuestionSourceBank
	}
	if q.Difficulty == 0 {
		q.Difficulty = models.DifficultyMedium
	}

	query := `INSERT INTO questions (id, category_id, question_text, option_a, option_b, option_c, option_d, correct_option, difficulty, source)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		q.ID, q.CategoryID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption, q.Difficulty, q.Source,
	).Scan(&q.CreatedAt)
}

// InsertQuestions stores a batch in one round trip.
func (r *QuestionRepo) InsertQuestions(ctx context.Context, qs []models.Question) (int, error) {
	batch := &pgx.Batch{}
	now := time.Now()
	for i := range qs {
		q := &qs[i]
		if q.ID == uuid.Nil {
			q.ID = uuid.New()
		}
		if q.Source == "" {
			q.Source = models.QuestionSourceBank
		}
		if q.Difficulty == 0 {
			q.Difficulty = models.DifficultyMedium
		}
		q.CreatedAt = now
		batch.Queue(`INSERT INTO questions (id, category_id, question_text, option_a, option_b, option_c, option_d, correct_option, difficulty, source, created_at)
			VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			q.ID, q.CategoryID, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectOption, q.Difficulty, q.Source, q.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range qs {
		if _, err := results.Exec(); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (r *QuestionRepo) CategoryName(ctx context.Context, categoryID int) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, "SELECT name FROM categories WHERE id = $1", categoryID).Scan(&name)
	return name, err
}

func (r *QuestionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM questions").Scan(&n)
	return n, err
}
