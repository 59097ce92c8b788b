package ai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"quizmaster-backend/internal/models"
)

const submitQuestionsTool = "submit_questions"

// OpenAIGenerator asks a chat completion model for questions through a forced tool call.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator. baseURL may be empty for the public API.
func NewOpenAIGenerator(apiKey, model, baseURL string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func (g *OpenAIGenerator) GenerateQuestions(ctx context.Context, topic string, count int, difficulty string) ([]models.Question, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an expert quiz question generator. Every question has exactly 4 options and one correct answer.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildPrompt(topic, count, difficulty),
				},
			},
			Tools: []openai.Tool{
				{
					Type: openai.ToolTypeFunction,
					Function: &openai.FunctionDefinition{
						Name:        submitQuestionsTool,
						Description: "Submit generated quiz questions",
						Parameters: map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"questions": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"question":      stringProp("The question text"),
											"optionA":       stringProp("Option A"),
											"optionB":       stringProp("Option B"),
											"optionC":       stringProp("Option C"),
											"optionD":       stringProp("Option D"),
											"correctOption": map[string]interface{}{"type": "string", "enum": []string{"A", "B", "C", "D"}},
										},
										"required": []string{"question", "optionA", "optionB", "optionC", "optionD", "correctOption"},
									},
								},
							},
							"required": []string{"questions"},
						},
					},
				},
			},
			ToolChoice: openai.ToolChoice{
				Type:     openai.ToolTypeFunction,
				Function: openai.ToolFunction{Name: submitQuestionsTool},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ai: no choices in OpenAI response")
	}
	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		// Some compatible servers ignore tool_choice and answer in plain content.
		return ParseBatch(msg.Content, difficulty)
	}
	call := msg.ToolCalls[0]
	if call.Function.Name != submitQuestionsTool {
		return nil, fmt.Errorf("ai: unexpected tool call: %s", call.Function.Name)
	}

	var args struct {
		Questions []wireQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return nil, fmt.Errorf("ai: failed to parse tool arguments: %w", err)
	}
	return toQuestions(args.Questions, difficulty)
}
