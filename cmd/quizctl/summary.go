package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
	"quizmaster-backend/internal/repository"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <username|email>",
	Short: "Print a player's performance summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		users := repository.NewUserRepo(pool)
		var user *models.User
		if strings.Contains(args[0], "@") {
			user, err = users.GetByEmail(ctx, args[0])
		} else {
			user, err = users.GetByUsername(ctx, args[0])
		}
		if err != nil {
			return fmt.Errorf("user %q not found: %w", args[0], err)
		}

		sessions, err := repository.NewSessionRepo(pool).UserSessions(ctx, user.ID)
		if err != nil {
			return err
		}
		fmt.Print(formatSummary(user.Username, quiz.Summarize(sessions)))
		return nil
	},
}

func formatSummary(username string, s models.PerformanceSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n", username)
	b.WriteString("-------------\n")
	fmt.Fprintf(&b, "Quizzes:       %d\n", s.TotalQuizzes)
	fmt.Fprintf(&b, "Average score: %.1f%%\n", s.AverageScore)
	fmt.Fprintf(&b, "Best score:    %d%%\n", s.BestScore)
	fmt.Fprintf(&b, "Best streak:   %d\n", s.BestStreak)
	fmt.Fprintf(&b, "Time played:   %s\n", (time.Duration(s.TotalTimeMs) * time.Millisecond).Round(time.Second))
	fmt.Fprintf(&b, "Level:         %s\n", s.Level)
	return b.String()
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
