package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OllamaProvider calls a local Ollama server's chat API.
type OllamaProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(config ProviderConfig) *OllamaProvider {
	if config.Model == "" {
		config.Model = "llama3.2"
	}
	config.BaseURL = strings.TrimSuffix(config.baseURL("http://localhost:11434"), "/")
	return &OllamaProvider{config: config, client: config.httpClient()}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

// Complete implements Provider.
func (p *OllamaProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	oreq := ollamaRequest{
		Model:    model,
		Messages: req.Messages,
		Options:  &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens},
	}
	if req.JSONMode {
		oreq.Format = "json"
	}

	var oresp ollamaResponse
	err := postJSON(ctx, p.client, p.Name(), p.config.BaseURL+"/api/chat", nil, oreq, &oresp, ollamaError)
	if err != nil {
		return CompletionResponse{}, err
	}
	if oresp.Message.Content == "" {
		return CompletionResponse{}, fmt.Errorf("%w: ollama returned no content", ErrEmptyCompletion)
	}

	return CompletionResponse{
		Model:   oresp.Model,
		Message: Message{Role: RoleAssistant, Content: oresp.Message.Content},
		Usage: Usage{
			PromptTokens:     oresp.PromptEvalCount,
			CompletionTokens: oresp.EvalCount,
			TotalTokens:      oresp.PromptEvalCount + oresp.EvalCount,
		},
	}, nil
}

func ollamaError(body []byte) (string, string) {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", ""
	}
	return "", e.Error
}
