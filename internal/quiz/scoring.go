package quiz

import (
	"math"

	"quizmaster-backend/internal/models"
)

// Performance levels, best first.
const (
	LevelExpert       = "EXPERT"
	LevelAdvanced     = "ADVANCED"
	LevelIntermediate = "INTERMEDIATE"
	LevelBeginner     = "BEGINNER"
)

// ScorePercentage is round(correct/total*100); an empty quiz scores 0.
func ScorePercentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// PerformanceLevel maps a score in [0,1] to a level label.
func PerformanceLevel(score float64) string {
	switch {
	case score >= 0.8:
		return LevelExpert
	case score >= 0.6:
		return LevelAdvanced
	case score >= 0.4:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// DifficultyForLevel is the adaptive policy: which question difficulty suits a level.
func DifficultyForLevel(level string) int {
	switch level {
	case LevelExpert:
		return models.DifficultyHard
	case LevelAdvanced, LevelIntermediate:
		return models.DifficultyMedium
	default:
		return models.DifficultyEasy
	}
}

func completed(sessions []models.QuizSession) []models.QuizSession {
	out := make([]models.QuizSession, 0, len(sessions))
	for _, s := range sessions {
		if s.Completed() {
			out = append(out, s)
		}
	}
	return out
}

// AverageScore is sum(correct)/sum(total)*100 over completed sessions,
// 0 when they hold no questions.
func AverageScore(sessions []models.QuizSession) float64 {
	correct, total := 0, 0
	for _, s := range completed(sessions) {
		correct += s.CorrectAnswers
		total += s.TotalQuestions
	}
	if total == 0 {
		return 0
	}
	return float64(correct) * 100 / float64(total)
}

func BestScore(sessions []models.QuizSession) int {
	best := 0
	for _, s := range completed(sessions) {
		if score := ScorePercentage(s.CorrectAnswers, s.TotalQuestions); score > best {
			best = score
		}
	}
	return best
}

// TotalTime sums time taken across completed sessions, in milliseconds.
func TotalTime(sessions []models.QuizSession) int64 {
	var total int64
	for _, s := range completed(sessions) {
		total += s.TimeTakenMs
	}
	return total
}

// BestStreak is the longest run of consecutive correct answers.
func BestStreak(answers []models.AnswerRecord) int {
	best, run := 0, 0
	for _, a := range answers {
		if !a.IsCorrect {
			run = 0
			continue
		}
		run++
		if run > best {
			best = run
		}
	}
	return best
}

// Summarize aggregates a user's sessions into a PerformanceSummary.
func Summarize(sessions []models.QuizSession) models.PerformanceSummary {
	done := completed(sessions)
	avg := AverageScore(done)
	streak := 0
	for _, s := range done {
		if s.BestStreak > streak {
			streak = s.BestStreak
		}
	}
	return models.PerformanceSummary{
		TotalQuizzes: len(done),
		AverageScore: avg,
		BestScore:    BestScore(done),
		TotalTimeMs:  TotalTime(done),
		BestStreak:   streak,
		Level:        PerformanceLevel(avg / 100),
	}
}
