package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	httputils "uiforge/uiforge/utils/http"
	"uiforge/uiforge/utils/logging"

	"go.uber.org/zap"
)

const ProviderOpenRouter = "openrouter"

// OpenRouterClient is the chat-completion style provider.
type OpenRouterClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	referer string
	title   string
}

func NewOpenRouterClient(baseURL, apiKey string, timeout time.Duration) *OpenRouterClient {
	return &OpenRouterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
		referer: "http://localhost:3000",
		title:   "UI Forge",
	}
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role Role `json:"role"`
	// string, or []chatContentPart when images are attached
	Content interface{} `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *OpenRouterClient) Name() string { return ProviderOpenRouter }

func buildChatMessages(p Prompt) []chatMessage {
	msgs := make([]chatMessage, 0, len(p.Context)+2)
	msgs = append(msgs, chatMessage{Role: RoleSystem, Content: p.System})
	for _, t := range p.Context {
		msgs = append(msgs, chatMessage{Role: t.Role, Content: t.Content})
	}
	last := chatMessage{Role: RoleUser, Content: p.User}
	if len(p.Images) > 0 {
		parts := []chatContentPart{{Type: "text", Text: p.User}}
		for _, img := range p.Images {
			parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: img.URL}})
		}
		last.Content = parts
	}
	return append(msgs, last)
}

func (c *OpenRouterClient) Invoke(ctx context.Context, p Prompt) (*RawResponse, error) {
	defer logging.LogDuration(ctx, "openrouter_invoke")()
	if c.apiKey == "" {
		return nil, missingKey(ProviderOpenRouter)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := chatRequest{
		Model:       p.Model,
		Messages:    buildChatMessages(p),
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Stream:      false,
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"HTTP-Referer":  c.referer,
		"X-Title":       c.title,
	}

	var resp chatResponse
	if err := httputils.PostJSON(ctx, c.client, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		pe := classify(ProviderOpenRouter, err)
		logging.AppLogger.Warn("openrouter call failed",
			zap.String("model", p.Model), zap.String("kind", string(pe.Kind)), zap.Int("status", pe.Status))
		return nil, pe
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, emptyResponse(ProviderOpenRouter)
	}

	out := &RawResponse{Provider: ProviderOpenRouter, Model: p.Model, Text: resp.Choices[0].Message.Content}
	if resp.Usage != nil {
		out.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return out, nil
}
