package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"

	"quizmaster-backend/internal/middleware"
	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
)

type eventPublisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type analyticsReader interface {
	PerformanceScore(ctx context.Context, userID uuid.UUID) (float64, error)
	CategoryStats(ctx context.Context, userID uuid.UUID) ([]models.CategoryStat, error)
	QuizzesToday(ctx context.Context, userID uuid.UUID) (int, error)
}

type achievementLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Achievement, error)
}

type DashboardHandler struct {
	engine       *quiz.Engine
	analytics    analyticsReader
	achievements achievementLister
}

func NewDashboardHandler(engine *quiz.Engine, analytics analyticsReader, achievements achievementLister) *DashboardHandler {
	return &DashboardHandler{engine: engine, analytics: analytics, achievements: achievements}
}

// Stats returns the dashboard: performance level, per-category accuracy,
// today's activity and the profile summary.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	summary, err := h.engine.PerformanceSummary(ctx, userID)
	if err != nil {
		handleQuizError(w, r, err)
		return
	}

	// Secondary panels degrade to zero values rather than failing the page
	score, err := h.analytics.PerformanceScore(ctx, userID)
	if err != nil {
		log.Printf("Dashboard: performance score for %s: %v", userID, err)
	}
	categories, err := h.analytics.CategoryStats(ctx, userID)
	if err != nil {
		log.Printf("Dashboard: category stats for %s: %v", userID, err)
	}
	if categories == nil {
		categories = []models.CategoryStat{}
	}
	today, err := h.analytics.QuizzesToday(ctx, userID)
	if err != nil {
		log.Printf("Dashboard: today's quizzes for %s: %v", userID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"level":               quiz.PerformanceLevel(score),
		"performance_percent": int(score*100 + 0.5),
		"quizzes_today":       today,
		"categories":          categories,
		"summary":             summary,
	})
}

func (h *DashboardHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.achievements.ListByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch achievements", r))
		return
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": achievements})
}
