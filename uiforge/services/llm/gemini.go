package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	httputils "uiforge/uiforge/utils/http"
	"uiforge/uiforge/utils/logging"

	"go.uber.org/zap"
)

const ProviderGemini = "gemini"

// GeminiClient is the prompt-completion style provider. It takes one
// flattened prompt and reports no token usage.
type GeminiClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

func NewGeminiClient(baseURL, apiKey string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Name() string { return ProviderGemini }

func (c *GeminiClient) Invoke(ctx context.Context, p Prompt) (*RawResponse, error) {
	defer logging.LogDuration(ctx, "gemini_invoke")()
	if c.apiKey == "" {
		return nil, missingKey(ProviderGemini)
	}
	if len(p.Images) > 0 {
		logging.AppLogger.Warn("gemini provider ignores image attachments", zap.Int("images", len(p.Images)))
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var req geminiRequest
	req.Contents = []geminiContent{{Parts: []geminiPart{{Text: p.Flatten()}}}}
	req.GenerationConfig.Temperature = p.Temperature
	req.GenerationConfig.MaxOutputTokens = p.MaxTokens

	endpoint := c.baseURL + "/models/" + url.PathEscape(p.Model) + ":generateContent?key=" + url.QueryEscape(c.apiKey)

	var resp geminiResponse
	if err := httputils.PostJSON(ctx, c.client, endpoint, nil, req, &resp); err != nil {
		pe := classify(ProviderGemini, err)
		// the request URL carries the key, keep it out of logs and errors
		pe.Message = c.redactKey(pe.Message)
		var ue *url.Error
		if errors.As(pe.Err, &ue) {
			ue.URL = c.redactKey(ue.URL)
		}
		logging.AppLogger.Warn("gemini call failed",
			zap.String("model", p.Model), zap.String("kind", string(pe.Kind)), zap.Int("status", pe.Status))
		return nil, pe
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == "" {
		return nil, emptyResponse(ProviderGemini)
	}
	return &RawResponse{
		Provider: ProviderGemini,
		Model:    p.Model,
		Text:     resp.Candidates[0].Content.Parts[0].Text,
	}, nil
}

// redactKey hides the api key in both its raw and query-escaped forms.
func (c *GeminiClient) redactKey(s string) string {
	s = strings.ReplaceAll(s, url.QueryEscape(c.apiKey), "***")
	return strings.ReplaceAll(s, c.apiKey, "***")
}
