package assistant

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
	"time"

	"github.com/meditrack/coordination/pkg/circuitbreaker"
	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/logger"
)

const (
	systemPrompt = "You are a helpful health assistant. Provide SHORT, CONCISE, and DIRECT answers. " +
		"Do NOT use markdown formatting (no asterisks ** or *). Use plain text only. " +
		"Use simple numbering (1., 2.) for lists if needed. Focus on actionable advice. " +
		"Always end with a brief reminder to consult a doctor."
	systemAck = "Understood. I will provide short, concise, and direct health information in plain text " +
		"without markdown symbols. I will use simple numbering for lists and always end with a brief " +
		"reminder to consult a doctor."

	maxOutputTokens = 1000
)

// ErrNotConfigured is returned when no API key is set
var ErrNotConfigured = errors.New("assistant model is not configured")

var safetyCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// GeminiClient calls the Gemini generateContent REST endpoint
type GeminiClient struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
	breaker *circuitbreaker.CircuitBreaker
}

// NewGeminiClient creates a model client. A nil client gets one with cfg.Timeout.
func NewGeminiClient(cfg config.AssistantConfig, client *http.Client, log *logger.Logger) *GeminiClient {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &GeminiClient{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("assistant"), log),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent       `json:"contents"`
	GenerationConfig map[string]int        `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Chat sends message after the priming exchange and history
func (g *GeminiClient) Chat(ctx context.Context, history []Turn, message string) (string, error) {
	contents := make([]geminiContent, 0, len(history)+3)
	contents = append(contents,
		geminiContent{Role: "user", Parts: []geminiPart{{Text: systemPrompt}}},
		geminiContent{Role: "model", Parts: []geminiPart{{Text: systemAck}}},
	)
	for _, turn := range history {
		role := "user"
		if turn.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: turn.Content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: message}}})
	return g.generate(ctx, contents)
}

// Generate sends prompt alone
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}})
}

func (g *GeminiClient) generate(ctx context.Context, contents []geminiContent) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: map[string]int{"maxOutputTokens": maxOutputTokens},
	}
	for _, category := range safetyCategories {
		req.SafetySettings = append(req.SafetySettings, geminiSafetySetting{Category: category, Threshold: "BLOCK_NONE"})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))

	result, err := g.breaker.Execute(ctx, func() (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("model request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusMultipleChoices {
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		}

		var decoded geminiResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode model response: %w", err)
		}
		return decoded, nil
	})
	if err != nil {
		return "", err
	}

	decoded := result.(geminiResponse)
	if len(decoded.Candidates) == 0 {
		return "", nil
	}
	var text strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return strings.TrimSpace(text.String()), nil
}
