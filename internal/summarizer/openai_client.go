package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	modelListCacheKey = "models"
	modelListTTL      = 5 * time.Minute
)

// summarizationPrompt instructs the model to return structured JSON. The
// heuristic fallback in parse.go covers models that ignore it.
const summarizationPrompt = `Analyze the following text and respond with ONLY a JSON object:
{"summary": "2-3 sentence description of the text's tone, intent and purpose", "tone": "one word (formal/casual/professional/friendly/academic/persuasive/narrative/technical/humorous/serious/emotional/neutral)", "intent": "one word (inform/persuade/entertain/instruct/describe/narrate/analyze/summarize/express/general)", "topArguments": ["up to 3 key points"], "confidence": 0.0-1.0}`

// Client is an OpenAI-compatible chat-completions client implementing both
// the Summarizer and ModelRouter collaborator contracts.
type Client struct {
	baseURL        string
	apiKey         string
	httpClient     *http.Client
	fallbackModels []string
	listCache      *cache.Cache
}

// NewClient creates a provider client. fallbackModels are tried in order by
// SendToModel when the requested model fails.
func NewClient(baseURL, apiKey string, fallbackModels []string) *Client {
	return &Client{
		baseURL:        baseURL,
		apiKey:         apiKey,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		fallbackModels: fallbackModels,
		listCache:      cache.New(modelListTTL, modelListTTL),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateSummary asks the model to describe the text and parses the
// response, falling back to heuristic extraction for unstructured output.
func (c *Client) GenerateSummary(ctx context.Context, text string, model ModelRef) (*SummaryResult, error) {
	if model.ID == "" {
		return nil, ErrNoModel
	}

	raw, err := c.complete(ctx, model.ID, summarizationPrompt, text)
	if err != nil {
		return nil, err
	}

	res, err := ParseResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary response: %w", err)
	}
	return res, nil
}

// SendToModel runs an arbitrary prompt over the text, trying the configured
// fallback models in order when the requested one fails.
func (c *Client) SendToModel(ctx context.Context, text, prompt string, model ModelRef) (*RouteResult, error) {
	if model.ID == "" {
		return nil, ErrNoModel
	}

	candidates := append([]string{model.ID}, c.fallbackModels...)

	var lastErr error
	for i, id := range candidates {
		if id == "" || (i > 0 && id == model.ID) {
			continue
		}

		result, err := c.complete(ctx, id, prompt, text)
		if err != nil {
			lastErr = err
			log.Printf("⚠️  [PROVIDER] Model %s failed: %v", id, err)
			// Context cancellation applies to every candidate equally.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		return &RouteResult{
			ResultText:   result,
			ActualModel:  ModelRef{ID: id, Provider: model.Provider},
			UsedFallback: i > 0,
		}, nil
	}

	return nil, fmt.Errorf("all models failed: %w", lastErr)
}

// complete performs a single chat-completions call.
func (c *Client) complete(ctx context.Context, modelID, systemPrompt, userText string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: modelID,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncateForLog(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return parsed.Choices[0].Message.Content, nil
}

// ListModels returns the provider's model IDs, cached for a few minutes so
// UI polling does not hammer the provider.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if cached, ok := c.listCache.Get(modelListCacheKey); ok {
		return cached.([]string), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model list request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		ids = append(ids, m.ID)
	}

	c.listCache.Set(modelListCacheKey, ids, cache.DefaultExpiration)
	return ids, nil
}

func truncateForLog(data []byte) string {
	const max = 200
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
