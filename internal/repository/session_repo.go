package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

// SessionRepo stores quiz sessions and their answers.
type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, quiz_type, total_questions, question_ids, started_at, completed_at,
	correct_answers, final_score, time_taken_ms, best_streak`

func scanSession(row pgx.Row) (*models.QuizSession, error) {
	s := &models.QuizSession{}
	err := row.Scan(&s.ID, &s.UserID, &s.Strategy, &s.TotalQuestions, &s.QuestionIDs, &s.StartedAt, &s.CompletedAt,
		&s.CorrectAnswers, &s.FinalScore, &s.TimeTakenMs, &s.BestStreak)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) CreateSession(ctx context.Context, s *models.QuizSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	ids := s.QuestionIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	query := `INSERT INTO quiz_sessions (id, user_id, quiz_type, total_questions, question_ids, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, s.ID, s.UserID, s.Strategy, s.TotalQuestions, ids, s.StartedAt)
	return err
}

func (r *SessionRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.QuizSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM quiz_sessions WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, quiz.ErrSessionNotFound
	}
	return s, err
}

// CompleteSession writes the final record once. A completed session is never updated again.
func (r *SessionRepo) CompleteSession(ctx context.Context, s *models.QuizSession) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quiz_sessions SET completed_at = $1, correct_answers = $2, final_score = $3,
		 time_taken_ms = $4, best_streak = $5
		 WHERE id = $6 AND completed_at IS NULL`,
		s.CompletedAt, s.CorrectAnswers, s.FinalScore, s.TimeTakenMs, s.BestStreak, s.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM quiz_sessions WHERE id = $1)", s.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return quiz.ErrSessionNotFound
	}
	return quiz.ErrAlreadyCompleted
}

func (r *SessionRepo) SaveAnswer(ctx context.Context, a *models.AnswerRecord) error {
	query := `INSERT INTO scores (session_id, user_id, question_id, position, selected_option, is_correct, time_taken_ms, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		a.SessionID, a.UserID, a.QuestionID, a.Position, a.SelectedOption, a.IsCorrect, a.TimeTakenMs, a.AnsweredAt,
	)
	return err
}

func (r *SessionRepo) SessionAnswers(ctx context.Context, sessionID uuid.UUID) ([]models.AnswerRecord, error) {
	query := `SELECT session_id, user_id, question_id, position, selected_option, is_correct, time_taken_ms, answered_at
		FROM scores WHERE session_id = $1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.AnswerRecord
	for rows.Next() {
		var a models.AnswerRecord
		err := rows.Scan(&a.SessionID, &a.UserID, &a.QuestionID, &a.Position, &a.SelectedOption, &a.IsCorrect, &a.TimeTakenMs, &a.AnsweredAt)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// UserSessions lists a user's sessions, newest first.
func (r *SessionRepo) UserSessions(ctx context.Context, userID uuid.UUID) ([]models.QuizSession, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+sessionColumns+" FROM quiz_sessions WHERE user_id = $1 ORDER BY started_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.QuizSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
