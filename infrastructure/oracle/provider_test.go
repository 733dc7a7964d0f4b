package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domainoracle "github.com/felixgeelhaar/react-agent/domain/oracle"
)

func testRequest() CompletionRequest {
	return CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hello"},
		},
		Temperature: 0.5,
		MaxTokens:   64,
		JSONMode:    true,
	}
}

func TestGeminiProvider_Complete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("Path = %s, want /v1beta/models/gemini-test:generateContent", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("x-goog-api-key = %q, want key", r.Header.Get("x-goog-api-key"))
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be brief" {
			t.Errorf("SystemInstruction = %+v, want be brief", req.SystemInstruction)
		}
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Errorf("Contents = %+v, want one user message", req.Contents)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("ResponseMimeType = %q, want application/json", req.GenerationConfig.ResponseMimeType)
		}

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "{\"thought\":"}, {"text": "\"hi\"}"}], "role": "model"}}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 4, "totalTokenCount": 7}
		}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(ProviderConfig{APIKey: "key", BaseURL: server.URL, Model: "gemini-test"})
	resp, err := p.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Message.Content != `{"thought":"hi"}` {
		t.Errorf("Content = %q, want joined parts", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", resp.Usage.TotalTokens)
	}
}

func TestGeminiProvider_NoCandidates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(ProviderConfig{APIKey: "key", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), testRequest())
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("error = %v, want ErrEmptyCompletion", err)
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("Authorization = %q, want Bearer key", r.Header.Get("Authorization"))
		}

		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("Model = %s, want gpt-4o-mini", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("ResponseFormat = %+v, want json_object", req.ResponseFormat)
		}
		if len(req.Messages) != 2 {
			t.Errorf("len(Messages) = %d, want 2", len(req.Messages))
		}

		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
		}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "key", BaseURL: server.URL})
	resp, err := p.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.ID != "chatcmpl-1" {
		t.Errorf("ID = %s, want chatcmpl-1", resp.ID)
	}
	if resp.Message.Content != "ok" {
		t.Errorf("Content = %q, want ok", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 6 {
		t.Errorf("TotalTokens = %d, want 6", resp.Usage.TotalTokens)
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Path = %s, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("x-api-key = %q, want key", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("anthropic-version header missing")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != "be brief" {
			t.Errorf("System = %q, want be brief", req.System)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser {
			t.Errorf("Messages = %+v, want one user message", req.Messages)
		}

		_, _ = w.Write([]byte(`{
			"id": "msg_1", "model": "claude", "role": "assistant",
			"content": [{"type": "text", "text": "hel"}, {"type": "text", "text": "lo"}],
			"usage": {"input_tokens": 2, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(ProviderConfig{APIKey: "key", BaseURL: server.URL})
	resp, err := p.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Message.Content != "hello" {
		t.Errorf("Content = %q, want hello", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", resp.Usage.TotalTokens)
	}
}

func TestOllamaProvider_Complete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Path = %s, want /api/chat", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Stream = true, want false")
		}
		if req.Format != "json" {
			t.Errorf("Format = %q, want json", req.Format)
		}

		_, _ = w.Write([]byte(`{
			"model": "llama3", "message": {"role": "assistant", "content": "{}"},
			"done": true, "prompt_eval_count": 4, "eval_count": 2
		}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(ProviderConfig{BaseURL: server.URL, Model: "llama3"})
	resp, err := p.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Message.Content != "{}" {
		t.Errorf("Content = %q, want {}", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 6 {
		t.Errorf("TotalTokens = %d, want 6", resp.Usage.TotalTokens)
	}
}

func TestProviderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantType    string
		wantMessage string
		unavailable bool
	}{
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"type": "rate_limit_error", "message": "slow down"}}`,
			wantType:    "rate_limit_error",
			wantMessage: "slow down",
			unavailable: true,
		},
		{
			name:        "server error",
			status:      http.StatusServiceUnavailable,
			body:        `{"error": {"status": "UNAVAILABLE", "message": "overloaded"}}`,
			wantType:    "UNAVAILABLE",
			wantMessage: "overloaded",
			unavailable: true,
		},
		{
			name:        "bad request",
			status:      http.StatusBadRequest,
			body:        `{"error": {"type": "invalid_request_error", "message": "bad model"}}`,
			wantType:    "invalid_request_error",
			wantMessage: "bad model",
		},
		{
			name:        "plain body",
			status:      http.StatusUnauthorized,
			body:        `denied`,
			wantMessage: "denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := NewOpenAIProvider(ProviderConfig{APIKey: "key", BaseURL: server.URL})
			_, err := p.Complete(context.Background(), testRequest())

			var pe *ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *ProviderError", err)
			}
			if pe.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.status)
			}
			if pe.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", pe.Type, tt.wantType)
			}
			if pe.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", pe.Message, tt.wantMessage)
			}
			if got := errors.Is(err, domainoracle.ErrOracleUnavailable); got != tt.unavailable {
				t.Errorf("errors.Is(ErrOracleUnavailable) = %v, want %v", got, tt.unavailable)
			}
		})
	}
}

func TestProvider_MalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "key", BaseURL: server.URL})
	_, err := p.Complete(context.Background(), testRequest())
	if !errors.Is(err, domainoracle.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestProvider_Unreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewOpenAIProvider(ProviderConfig{APIKey: "key", BaseURL: url})
	_, err := p.Complete(context.Background(), testRequest())
	if !errors.Is(err, domainoracle.ErrOracleUnavailable) {
		t.Errorf("error = %v, want ErrOracleUnavailable", err)
	}
}

func TestProvider_Names(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider Provider
		want     string
	}{
		{NewGeminiProvider(ProviderConfig{}), "gemini"},
		{NewOpenAIProvider(ProviderConfig{}), "openai"},
		{NewAnthropicProvider(ProviderConfig{}), "anthropic"},
		{NewOllamaProvider(ProviderConfig{}), "ollama"},
	}
	for _, tt := range tests {
		if got := tt.provider.Name(); got != tt.want {
			t.Errorf("Name() = %s, want %s", got, tt.want)
		}
	}
}
