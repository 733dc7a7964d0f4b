package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// OpenAIProvider calls the OpenAI chat completions API. Any endpoint
// speaking the same protocol works through BaseURL.
type OpenAIProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(config ProviderConfig) *OpenAIProvider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	config.BaseURL = strings.TrimSuffix(config.baseURL("https://api.openai.com"), "/")
	return &OpenAIProvider{config: config, client: config.httpClient()}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	oreq := openAIChatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		oreq.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	headers := map[string]string{}
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}

	var oresp openAIChatResponse
	if err := postJSON(ctx, p.client, p.Name(), p.config.BaseURL+"/v1/chat/completions", headers, oreq, &oresp, openAIStyleError); err != nil {
		return CompletionResponse{}, err
	}
	if len(oresp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("%w: openai returned no choices", ErrEmptyCompletion)
	}

	msg := oresp.Choices[0].Message
	if msg.Role == "" {
		msg.Role = RoleAssistant
	}
	return CompletionResponse{
		ID:      oresp.ID,
		Model:   oresp.Model,
		Message: msg,
		Usage:   oresp.Usage,
	}, nil
}
