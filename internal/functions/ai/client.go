package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
)

var (
	// ErrNotConfigured indicates the AI client is not configured
	ErrNotConfigured = errors.New("AI client not configured")
	// ErrAPICallFailed indicates the AI API call failed
	ErrAPICallFailed = errors.New("AI API call failed")
	// ErrInvalidResponse indicates an invalid response from the AI API
	ErrInvalidResponse = errors.New("invalid AI API response")
	// ErrUnsupportedProvider indicates an unsupported AI provider
	ErrUnsupportedProvider = errors.New("unsupported AI provider")
)

// ProviderName identifies a language-model backend
type ProviderName string

const (
	// ProviderOpenAI represents OpenAI API
	ProviderOpenAI ProviderName = "openai"
	// ProviderGroq represents the OpenAI-compatible Groq API
	ProviderGroq ProviderName = "groq"
	// ProviderClaude represents Anthropic Claude API
	ProviderClaude ProviderName = "claude"
	// ProviderGemini represents Google Gemini API
	ProviderGemini ProviderName = "gemini"
)

// Provider produces schema-shaped JSON from free text
type Provider interface {
	Name() string
	// GenerateStructured returns the raw JSON object produced for prompt
	GenerateStructured(ctx context.Context, prompt string, schema Schema) ([]byte, error)
}

// Client handles AI API communication for proposal extraction
type Client struct {
	provider   ProviderName
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*Client)(nil)

// NewProvider builds the provider selected by cfg. It is a pure function of cfg;
// a missing api key yields a client whose calls fail with ErrNotConfigured.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultLLMTimeout
	}
	c := &Client{
		provider:   ProviderName(strings.ToLower(strings.TrimSpace(cfg.Provider))),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}

	var defaultURL, defaultModel string
	switch c.provider {
	case ProviderOpenAI:
		defaultURL, defaultModel = "https://api.openai.com/v1", "gpt-4o-mini"
	case ProviderGroq:
		defaultURL, defaultModel = "https://api.groq.com/openai/v1", "llama-3.1-8b-instant"
	case ProviderClaude:
		defaultURL, defaultModel = "https://api.anthropic.com/v1", "claude-3-haiku-20240307"
	case ProviderGemini:
		defaultURL, defaultModel = "https://generativelanguage.googleapis.com/v1beta", "gemini-1.5-flash"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
	if c.baseURL == "" {
		c.baseURL = defaultURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	return c, nil
}

// Name returns the provider name, e.g. "openai"
func (c *Client) Name() string {
	return string(c.provider)
}

// IsConfigured returns whether the client has credentials
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// GenerateStructured asks the model for a JSON object matching schema
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema Schema) ([]byte, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var (
		text string
		err  error
	)
	switch c.provider {
	case ProviderClaude:
		text, err = c.sendClaudeRequest(ctx, prompt, schema)
	case ProviderGemini:
		text, err = c.sendGeminiRequest(ctx, prompt, schema)
	default:
		text, err = c.sendChatRequest(ctx, prompt, schema)
	}
	if err != nil {
		return nil, err
	}
	return extractJSONObject(text)
}

// ChatMessage represents a message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat switches OpenAI-compatible APIs to JSON mode
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// sendChatRequest sends a chat completion request to an OpenAI-compatible API
func (c *Client) sendChatRequest(ctx context.Context, prompt string, schema Schema) (string, error) {
	request := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt(schema)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      2000,
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var chatResp ChatResponse
	if err := c.postJSON(ctx, c.baseURL+"/chat/completions", headers, request, &chatResp); err != nil {
		return "", err
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrInvalidResponse
	}
	return chatResp.Choices[0].Message.Content, nil
}

type claudeRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *apiError `json:"error,omitempty"`
}

// sendClaudeRequest uses the Anthropic messages API
func (c *Client) sendClaudeRequest(ctx context.Context, prompt string, schema Schema) (string, error) {
	request := claudeRequest{
		Model:     c.model,
		MaxTokens: 2000,
		System:    systemPrompt(schema),
		Messages:  []ChatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	var resp claudeResponse
	if err := c.postJSON(ctx, c.baseURL+"/messages", headers, request, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, resp.Error.Message)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrInvalidResponse
	}
	return sb.String(), nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"responseMimeType"`
		ResponseSchema   Schema  `json:"responseSchema,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

// sendGeminiRequest uses generateContent with a response schema
func (c *Client) sendGeminiRequest(ctx context.Context, prompt string, schema Schema) (string, error) {
	var request geminiRequest
	request.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt(nil)}}}
	request.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}
	request.GenerationConfig.ResponseMimeType = "application/json"
	request.GenerationConfig.ResponseSchema = schema.OpenAPI()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	var resp geminiResponse
	if err := c.postJSON(ctx, endpoint, nil, request, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrAPICallFailed, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrInvalidResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAPICallFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrAPICallFailed, resp.StatusCode, truncate(string(respBody), 300))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// extractJSONObject strips markdown fences and returns the outermost JSON object
func extractJSONObject(text string) ([]byte, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in model output", ErrInvalidResponse)
	}
	return []byte(s[start : end+1]), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
