package oracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GeminiProvider calls the Google Gemini generateContent API.
type GeminiProvider struct {
	config ProviderConfig
	client *http.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(config ProviderConfig) *GeminiProvider {
	if config.Model == "" {
		config.Model = "gemini-2.0-flash-exp"
	}
	config.BaseURL = config.baseURL("https://generativelanguage.googleapis.com")
	return &GeminiProvider{config: config, client: config.httpClient()}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
			Role string `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	greq := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.JSONMode {
		greq.GenerationConfig.ResponseMimeType = "application/json"
	}
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			greq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
			continue
		}
		role := msg.Role
		if role == RoleAssistant {
			role = "model"
		}
		greq.Contents = append(greq.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.config.BaseURL, url.PathEscape(model))

	var gresp geminiResponse
	err := postJSON(ctx, p.client, p.Name(), endpoint,
		map[string]string{"x-goog-api-key": p.config.APIKey}, greq, &gresp, openAIStyleError)
	if err != nil {
		return CompletionResponse{}, err
	}
	if len(gresp.Candidates) == 0 {
		return CompletionResponse{}, fmt.Errorf("%w: gemini returned no candidates", ErrEmptyCompletion)
	}

	var sb strings.Builder
	for _, part := range gresp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	return CompletionResponse{
		Model:   model,
		Message: Message{Role: RoleAssistant, Content: sb.String()},
		Usage: Usage{
			PromptTokens:     gresp.UsageMetadata.PromptTokenCount,
			CompletionTokens: gresp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gresp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
