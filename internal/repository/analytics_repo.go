package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

// AnalyticsRepo computes performance figures from stored sessions and answers.
type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepo(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// PerformanceScore is the share of correct answers over completed sessions, in [0,1].
func (r *AnalyticsRepo) PerformanceScore(ctx context.Context, userID uuid.UUID) (float64, error) {
	var score float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(correct_answers)::float8 / NULLIF(SUM(total_questions), 0), 0)
		 FROM quiz_sessions WHERE user_id = $1 AND completed_at IS NOT NULL`, userID,
	).Scan(&score)
	return score, err
}

func (r *AnalyticsRepo) PerformanceLevel(ctx context.Context, userID uuid.UUID) (string, error) {
	score, err := r.PerformanceScore(ctx, userID)
	if err != nil {
		return "", err
	}
	return quiz.PerformanceLevel(score), nil
}

// CategoryStats breaks down answer accuracy per category.
func (r *AnalyticsRepo) CategoryStats(ctx context.Context, userID uuid.UUID) ([]models.CategoryStat, error) {
	query := `SELECT COALESCE(c.id, 0), COALESCE(c.name, 'Uncategorized'), COUNT(*), COUNT(*) FILTER (WHERE s.is_correct)
		FROM scores s
		JOIN questions q ON q.id = s.question_id
		LEFT JOIN categories c ON c.id = q.category_id
		WHERE s.user_id = $1
		GROUP BY c.id, c.name
		ORDER BY COUNT(*) DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []models.CategoryStat{}
	for rows.Next() {
		var st models.CategoryStat
		if err := rows.Scan(&st.CategoryID, &st.CategoryName, &st.Answered, &st.Correct); err != nil {
			return nil, err
		}
		if st.Answered > 0 {
			st.Accuracy = float64(st.Correct) / float64(st.Answered)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// QuizzesToday counts sessions completed since local midnight.
func (r *AnalyticsRepo) QuizzesToday(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_sessions
		 WHERE user_id = $1 AND completed_at >= date_trunc('day', NOW())`, userID,
	).Scan(&n)
	return n, err
}
