package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"quizmaster-backend/internal/models"
	"quizmaster-backend/internal/repository"
)

// seedQuestion is one entry of a seed file. Category is a name; it is
// created on first use.
type seedQuestion struct {
	Category      string `json:"category"`
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"correct_option"`
	Difficulty    int    `json:"difficulty"`
}

// parseSeed decodes and validates a seed file, rejecting it whole on the first bad entry.
func parseSeed(r io.Reader) ([]seedQuestion, error) {
	var items []seedQuestion
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	for i := range items {
		q := &items[i]
		q.Category = strings.TrimSpace(q.Category)
		q.Question = strings.TrimSpace(q.Question)
		q.CorrectOption = strings.ToUpper(strings.TrimSpace(q.CorrectOption))
		if q.Question == "" {
			return nil, fmt.Errorf("entry %d: question is empty", i)
		}
		if q.OptionA == "" || q.OptionB == "" || q.OptionC == "" || q.OptionD == "" {
			return nil, fmt.Errorf("entry %d: all four options are required", i)
		}
		if !strings.Contains("ABCD", q.CorrectOption) || len(q.CorrectOption) != 1 {
			return nil, fmt.Errorf("entry %d: correct_option %q must be A, B, C or D", i, q.CorrectOption)
		}
		if q.Difficulty == 0 {
			q.Difficulty = models.DifficultyMedium
		}
		if q.Difficulty < models.DifficultyEasy || q.Difficulty > models.DifficultyHard {
			return nil, fmt.Errorf("entry %d: difficulty %d must be 1, 2 or 3", i, q.Difficulty)
		}
	}
	return items, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.json>",
	Short: "Load questions from a JSON file into the bank",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		items, err := parseSeed(f)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		_, pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		categories := repository.NewCategoryRepo(pool)
		questions := repository.NewQuestionRepo(pool, repository.NewAnalyticsRepo(pool))

		categoryIDs := map[string]int{}
		batch := make([]models.Question, 0, len(items))
		for _, it := range items {
			q := models.Question{
				Text:          it.Question,
				OptionA:       it.OptionA,
				OptionB:       it.OptionB,
				OptionC:       it.OptionC,
				OptionD:       it.OptionD,
				CorrectOption: it.CorrectOption,
				Difficulty:    it.Difficulty,
				Source:        models.QuestionSourceBank,
			}
			if it.Category != "" {
				id, ok := categoryIDs[it.Category]
				if !ok {
					if id, err = categories.Ensure(ctx, it.Category); err != nil {
						return fmt.Errorf("category %q: %w", it.Category, err)
					}
					categoryIDs[it.Category] = id
				}
				q.CategoryID = id
			}
			batch = append(batch, q)
		}

		n, err := questions.InsertQuestions(ctx, batch)
		if err != nil {
			return fmt.Errorf("stored %d of %d questions: %w", n, len(batch), err)
		}
		fmt.Printf("✅ Seeded %d questions across %d categories\n", n, len(categoryIDs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
