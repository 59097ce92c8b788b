package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"quizmaster-backend/internal/models"
)

// ErrEmptyBatch is returned when a provider answers with no questions.
var ErrEmptyBatch = errors.New("ai: empty question batch")

// wireQuestion is the item shape every provider is asked to produce.
type wireQuestion struct {
	Question      string `json:"question"`
	OptionA       string `json:"optionA"`
	OptionB       string `json:"optionB"`
	OptionC       string `json:"optionC"`
	OptionD       string `json:"optionD"`
	CorrectOption string `json:"correctOption"`
}

// cleanJSON strips markdown fences models like to wrap JSON in.
func cleanJSON(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseBatch decodes a JSON array of questions. The batch is all-or-nothing:
// one malformed item rejects the whole response.
func ParseBatch(raw string, difficulty string) ([]models.Question, error) {
	text := cleanJSON(raw)

	var items []wireQuestion
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("ai: response is not a JSON array: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
			return nil, fmt.Errorf("ai: response is not a JSON array: %w", err)
		}
	}
	return toQuestions(items, difficulty)
}

func toQuestions(items []wireQuestion, difficulty string) ([]models.Question, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	level := DifficultyFromLabel(difficulty)
	out := make([]models.Question, 0, len(items))
	for i, it := range items {
		q := models.Question{
			Text:          strings.TrimSpace(it.Question),
			OptionA:       strings.TrimSpace(it.OptionA),
			OptionB:       strings.TrimSpace(it.OptionB),
			OptionC:       strings.TrimSpace(it.OptionC),
			OptionD:       strings.TrimSpace(it.OptionD),
			CorrectOption: strings.ToUpper(strings.TrimSpace(it.CorrectOption)),
			Difficulty:    level,
			Source:        models.QuestionSourceAI,
		}
		if err := validate(q); err != nil {
			return nil, fmt.Errorf("ai: item %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func validate(q models.Question) error {
	if q.Text == "" {
		return errors.New("missing question text")
	}
	for _, letter := range []string{"A", "B", "C", "D"} {
		if q.Option(letter) == "" {
			return fmt.Errorf("missing option %s", letter)
		}
	}
	if q.Option(q.CorrectOption) == "" {
		return fmt.Errorf("correct option %q is not one of A-D", q.CorrectOption)
	}
	return nil
}

// DifficultyFromLabel maps easy/medium/hard back to 1/2/3; unknown labels are medium.
func DifficultyFromLabel(label string) int {
	switch strings.ToLower(label) {
	case "easy":
		return models.DifficultyEasy
	case "hard":
		return models.DifficultyHard
	default:
		return models.DifficultyMedium
	}
}

func buildPrompt(topic string, count int, difficulty string) string {
	var b strings.Builder

	b.WriteString("You are an expert quiz writer. Generate multiple choice trivia questions.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown, no backticks.\n\n")
	b.WriteString(fmt.Sprintf("Generate exactly %d questions about %s.\n", count, topic))
	b.WriteString(fmt.Sprintf("Difficulty: %s\n", difficulty))

	switch difficulty {
	case "easy":
		b.WriteString("Easy = common knowledge most adults would know.\n")
	case "hard":
		b.WriteString("Hard = specialist knowledge, specific dates, names or figures.\n")
	default:
		b.WriteString("Medium = requires some familiarity with the topic.\n")
	}

	b.WriteString(`
JSON schema per question:
{"question": "string", "optionA": "string", "optionB": "string", "optionC": "string", "optionD": "string", "correctOption": "A"|"B"|"C"|"D"}

Every question has exactly one correct option. Options must be distinct.
`)
	return b.String()
}
