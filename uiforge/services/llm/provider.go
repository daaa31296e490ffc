// Package llm talks to the remote model providers. Each provider speaks its
// own wire shape behind the Provider interface; retries belong to callers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	httputils "uiforge/uiforge/utils/http"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior conversation entry given to the model as context.
type Turn struct {
	Role    Role
	Content string
}

type Image struct {
	URL string
}

// Prompt is everything a provider needs for one call.
type Prompt struct {
	System      string
	Context     []Turn
	User        string
	Images      []Image // attached to the final user turn only
	Model       string
	Temperature float64
	MaxTokens   int
}

// Flatten renders the prompt as one string for prompt-style providers.
func (p Prompt) Flatten() string {
	lines := make([]string, 0, len(p.Context))
	for _, t := range p.Context {
		content := t.Content
		if content == "" {
			content = "No content"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", t.Role, content))
	}
	return fmt.Sprintf("%s\n\nContext: %s\n\nUser Request: %s", p.System, strings.Join(lines, "\n"), p.User)
}

// Usage is nil on RawResponse when the provider does not report it.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type RawResponse struct {
	Provider string
	Model    string
	Text     string
	Usage    *Usage
}

type Provider interface {
	Name() string
	Invoke(ctx context.Context, prompt Prompt) (*RawResponse, error)
}

type ErrorKind string

const (
	KindTimeout   ErrorKind = "Timeout"
	KindAuth      ErrorKind = "Auth"
	KindTransport ErrorKind = "Transport"
	KindRateLimit ErrorKind = "RateLimit"
)

type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classify turns a transport error into a ProviderError.
func classify(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	out := &ProviderError{Provider: provider, Kind: KindTransport, Message: err.Error(), Err: err}

	var se *httputils.StatusError
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = KindTimeout
	case errors.As(err, &se):
		out.Status = se.Code
		out.Message = strings.TrimSpace(se.Body)
		switch se.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			out.Kind = KindAuth
		case http.StatusTooManyRequests:
			out.Kind = KindRateLimit
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			out.Kind = KindTimeout
		}
	case errors.As(err, &ne) && ne.Timeout():
		out.Kind = KindTimeout
	}
	return out
}

func missingKey(provider string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindAuth, Message: "api key is not configured"}
}

func emptyResponse(provider string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindTransport, Message: "no content in response"}
}
