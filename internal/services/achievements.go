package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

// Achievement codes, seeded by the initial migration.
const (
	AchievementFirstQuiz      = "first_quiz"
	AchievementQuizEnthusiast = "quiz_enthusiast"
	AchievementQuizMaster     = "quiz_master"
	AchievementPerfectScore   = "perfect_score"
	AchievementHighAchiever   = "high_achiever"
	AchievementStreakMaster   = "streak_master"
	AchievementSpeedDemon     = "speed_demon"
)

// EarnedAchievements lists every achievement code the history qualifies for.
// Already-held achievements are filtered out by the store.
func EarnedAchievements(history []models.QuizSession, current models.QuizSession) []string {
	summary := quiz.Summarize(history)
	var codes []string

	if summary.TotalQuizzes >= 1 {
		codes = append(codes, AchievementFirstQuiz)
	}
	if summary.TotalQuizzes >= 10 {
		codes = append(codes, AchievementQuizEnthusiast)
	}
	if summary.TotalQuizzes >= 50 {
		codes = append(codes, AchievementQuizMaster)
	}
	if summary.TotalQuizzes >= 5 && summary.AverageScore >= 80 {
		codes = append(codes, AchievementHighAchiever)
	}
	if summary.BestStreak >= 10 {
		codes = append(codes, AchievementStreakMaster)
	}
	if current.Completed() && current.TotalQuestions > 0 {
		if current.FinalScore == 100 {
			codes = append(codes, AchievementPerfectScore)
		}
		if current.TotalQuestions >= 5 && current.FinalScore >= 80 &&
			current.TimeTakenMs < int64(current.TotalQuestions)*5000 {
			codes = append(codes, AchievementSpeedDemon)
		}
	}
	return codes
}

type sessionHistory interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.QuizSession, error)
	UserSessions(ctx context.Context, userID uuid.UUID) ([]models.QuizSession, error)
}

type achievementAwarder interface {
	Award(ctx context.Context, userID, sessionID uuid.UUID, codes []string) ([]models.Achievement, error)
}

type publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// AchievementService evaluates a completed session and awards achievements.
type AchievementService struct {
	sessions  sessionHistory
	awarder   achievementAwarder
	publisher publisher
}

func NewAchievementService(sessions sessionHistory, awarder achievementAwarder, publisher publisher) *AchievementService {
	return &AchievementService{sessions: sessions, awarder: awarder, publisher: publisher}
}

// EvaluateAndAward checks the user's history against every rule and
// returns how many achievements were newly awarded.
func (s *AchievementService) EvaluateAndAward(ctx context.Context, userID, sessionID uuid.UUID) (int, error) {
	current, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("load session: %w", err)
	}
	history, err := s.sessions.UserSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}

	codes := EarnedAchievements(history, *current)
	awarded, err := s.awarder.Award(ctx, userID, sessionID, codes)
	if err != nil {
		return 0, fmt.Errorf("award achievements: %w", err)
	}
	if len(awarded) == 0 {
		return 0, nil
	}

	log.Printf("achievements: user %s earned %d achievement(s) in session %s", userID, len(awarded), sessionID)
	if s.publisher != nil {
		s.publisher.Publish(ctx, userID, models.WSMessage{
			Type:    "achievements_awarded",
			Payload: models.AchievementsEvent{SessionID: sessionID, Achievements: awarded},
		})
	}
	return len(awarded), nil
}
