package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizmaster-backend/internal/ai"
	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/quiz"
	"quizmaster-backend/internal/repository"
)

var (
	generateCount      int
	generateDifficulty int
	generateCategory   string
)

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate questions with the configured AI provider and store them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateCount < 1 || generateCount > 50 {
			return fmt.Errorf("--count must be between 1 and 50")
		}
		ctx := cmd.Context()
		cfg, pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		generator, closer, err := ai.New(ctx, ai.Config{
			Provider:       cfg.AIProvider,
			Endpoint:       cfg.AIEndpoint,
			APIKey:         cfg.AIAPIKey,
			Model:          cfg.AIModel,
			Timeout:        cfg.AITimeout,
			ConcurrentReqs: cfg.AIConcurrentRequests,
		})
		if err != nil {
			return err
		}
		defer closer.Close()
		if generator == nil {
			return quiz.ErrAIUnavailable
		}

		categoryID := 0
		if generateCategory != "" {
			if categoryID, err = repository.NewCategoryRepo(pool).Ensure(ctx, generateCategory); err != nil {
				return err
			}
		}

		questions, err := generator.GenerateQuestions(ctx, args[0], generateCount, quiz.DifficultyLabel(generateDifficulty))
		if err != nil {
			return err
		}
		for i := range questions {
			questions[i].CategoryID = categoryID
			questions[i].Source = models.QuestionSourceAI
		}

		n, err := repository.NewQuestionRepo(pool, repository.NewAnalyticsRepo(pool)).InsertQuestions(ctx, questions)
		if err != nil {
			return fmt.Errorf("stored %d of %d questions: %w", n, len(questions), err)
		}
		fmt.Printf("✅ Added %d %s questions about %q\n", n, quiz.DifficultyLabel(generateDifficulty), args[0])
		return nil
	},
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 10, "number of questions")
	generateCmd.Flags().IntVarP(&generateDifficulty, "difficulty", "d", models.DifficultyMedium, "difficulty 1-3")
	generateCmd.Flags().StringVarP(&generateCategory, "category", "c", "", "category name to file questions under")
	rootCmd.AddCommand(generateCmd)
}
