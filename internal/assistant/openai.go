package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/sqlchat/sqlchat/internal/session"
	"github.com/sqlchat/sqlchat/internal/warehouse"
)

const decisionFunctionName = "handle_user_request"

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIAssistant implements Decider, Synthesizer, and Translator against an
// OpenAI-compatible chat completions endpoint.
type OpenAIAssistant struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4o
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/") + "/v1"
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIAssistant{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: float32(cfg.Temperature),
	}, nil
}

var decisionFunction = openai.FunctionDefinition{
	Name: decisionFunctionName,
	Description: "Give the response in the language of the user. " +
		"Generate a final response, which can be 'chat', 'sql', or 'done'. " +
		"If any database data is needed, set 'type'='sql'. If no DB data is required, set 'type'='chat'. " +
		"If no further queries or conversation are needed, set 'type'='done'. " +
		"The field 'query' should be empty unless 'type'='sql', in which case it should be one valid read-only SQL statement.",
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"type": {
				Type:        jsonschema.String,
				Description: "'chat', 'sql', or 'done'.",
			},
			"reply": {
				Type: jsonschema.String,
				Description: "A user-facing text or explanation. If 'type'='sql', this might also describe the purpose of the query. " +
					"If 'type'='chat' or 'done', this is just the final conversation text.",
			},
			"query": {
				Type:        jsonschema.String,
				Description: "A valid read-only SQL query if 'type' is 'sql'. Otherwise, an empty string.",
			},
		},
		Required: []string{"type", "reply", "query"},
	},
}

// Decide forces a call of the decision function so the model always answers
// with the {type, reply, query} object.
func (a *OpenAIAssistant) Decide(ctx context.Context, conversation []session.Message) (Decision, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:        a.model,
		Messages:     toChatMessages(conversation),
		Functions:    []openai.FunctionDefinition{decisionFunction},
		FunctionCall: openai.FunctionCall{Name: decisionFunctionName},
		Temperature:  a.temperature,
		TopP:         1,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("request decision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Decision{}, fmt.Errorf("empty decision choices")
	}
	call := resp.Choices[0].Message.FunctionCall
	if call == nil {
		return Decision{}, fmt.Errorf("decision response carried no function call")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(call.Arguments), &decision); err != nil {
		return Decision{}, fmt.Errorf("decode decision arguments: %w", err)
	}
	return decision, nil
}

func (a *OpenAIAssistant) Summarize(ctx context.Context, query string, results []warehouse.Row) (string, error) {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshal query results: %w", err)
	}
	userPrompt := fmt.Sprintf(
		"SQL Query: %s\nSQL Results: %s\n\nBased solely on the SQL results above, provide a concise final report summarizing the key data insights. Do not include any additional commentary or extraneous details.",
		query, string(resultsJSON),
	)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reportSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   200,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("request report: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty report choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Merge asks for JSON-mode output so the unified message survives transport
// through the conversation log without markdown noise.
func (a *OpenAIAssistant) Merge(ctx context.Context, reply, query, report string, results []warehouse.Row) (string, error) {
	partial := map[string]any{
		"reply":        reply,
		"query":        query,
		"results":      results,
		"final_report": report,
	}
	partialJSON, err := json.Marshal(partial)
	if err != nil {
		return "", fmt.Errorf("marshal partial output: %w", err)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: mergeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(partialJSON)},
		},
		Temperature: a.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("request merge: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty merge choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	var merged struct {
		FinalMessage string `json:"final_message"`
	}
	if err := json.Unmarshal([]byte(content), &merged); err == nil && merged.FinalMessage != "" {
		return merged.FinalMessage, nil
	}
	return content, nil
}

func (a *OpenAIAssistant) Translate(ctx context.Context, naturalQuery string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Convert this natural language query into SQL: " + strings.TrimSpace(naturalQuery)},
		},
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("request translation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty translation choices")
	}

	sqlText := stripMarkdownSQL(resp.Choices[0].Message.Content)
	if sqlText == "" {
		return "", fmt.Errorf("model returned empty SQL")
	}
	return sqlText, nil
}

func toChatMessages(conversation []session.Message) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(conversation))
	for _, msg := range conversation {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	return messages
}

func stripMarkdownSQL(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
