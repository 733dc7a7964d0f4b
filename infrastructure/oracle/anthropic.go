package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic messages API.
type AnthropicProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(config ProviderConfig) *AnthropicProvider {
	if config.Model == "" {
		config.Model = "claude-3-5-haiku-latest"
	}
	config.BaseURL = strings.TrimSuffix(config.baseURL("https://api.anthropic.com"), "/")
	return &AnthropicProvider{config: config, client: config.httpClient()}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	areq := anthropicRequest{Model: model, MaxTokens: maxTokens, Temperature: req.Temperature}
	var system []string
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		areq.Messages = append(areq.Messages, msg)
	}
	areq.System = strings.Join(system, "\n\n")

	headers := map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var aresp anthropicResponse
	if err := postJSON(ctx, p.client, p.Name(), p.config.BaseURL+"/v1/messages", headers, areq, &aresp, openAIStyleError); err != nil {
		return CompletionResponse{}, err
	}

	var sb strings.Builder
	for _, block := range aresp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return CompletionResponse{}, fmt.Errorf("%w: anthropic returned no text", ErrEmptyCompletion)
	}

	return CompletionResponse{
		ID:      aresp.ID,
		Model:   aresp.Model,
		Message: Message{Role: RoleAssistant, Content: sb.String()},
		Usage: Usage{
			PromptTokens:     aresp.Usage.InputTokens,
			CompletionTokens: aresp.Usage.OutputTokens,
			TotalTokens:      aresp.Usage.InputTokens + aresp.Usage.OutputTokens,
		},
	}, nil
}
