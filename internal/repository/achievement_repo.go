package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizmaster-backend/internal/models"
)

type AchievementRepo struct {
	pool *pgxpool.Pool
}

func NewAchievementRepo(pool *pgxpool.Pool) *AchievementRepo {
	return &AchievementRepo{pool: pool}
}

// Award grants the achievements named by codes and returns only the ones newly earned.
func (r *AchievementRepo) Award(ctx context.Context, userID, sessionID uuid.UUID, codes []string) ([]models.Achievement, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query := `WITH inserted AS (
			INSERT INTO user_achievements (user_id, achievement_id, session_id)
			SELECT $1, a.id, $2 FROM achievements a WHERE a.code = ANY($3)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
			RETURNING achievement_id, earned_at
		)
		SELECT a.id, a.code, a.name, a.description, i.earned_at
		FROM inserted i JOIN achievements a ON a.id = i.achievement_id
		ORDER BY a.id`

	rows, err := r.pool.Query(ctx, query, userID, sessionID, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awarded []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.EarnedAt); err != nil {
			return nil, err
		}
		awarded = append(awarded, a)
	}
	return awarded, rows.Err()
}

func (r *AchievementRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error) {
	query := `SELECT a.id, a.code, a.name, a.description, ua.earned_at
		FROM user_achievements ua JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1 ORDER BY ua.earned_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	achievements := []models.Achievement{}
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Description, &a.EarnedAt); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}
