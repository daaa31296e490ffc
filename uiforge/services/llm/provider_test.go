package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePrompt() Prompt {
	return Prompt{
		System: "sys",
		Context: []Turn{
			{Role: RoleUser, Content: "make a card"},
			{Role: RoleAssistant, Content: "Generated component:\n```jsx\n<div/>\n```"},
		},
		User:        "now add a button",
		Model:       "gpt-4o-mini",
		Temperature: 0.5,
		MaxTokens:   100,
	}
}

func TestOpenRouter_Success(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("HTTP-Referer"))
		assert.NotEmpty(t, r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`))
	}))
	defer srv.Close()

	c := NewOpenRouterClient(srv.URL+"/", "key", time.Second)
	resp, err := c.Invoke(context.Background(), samplePrompt())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, ProviderOpenRouter, resp.Provider)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, *resp.Usage)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.EqualValues(t, 100, got["max_tokens"])
	msgs := got["messages"].([]interface{})
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assert.Equal(t, "now add a button", msgs[3].(map[string]interface{})["content"])
}

func TestOpenRouter_ImagesOnLastTurnOnly(t *testing.T) {
	p := samplePrompt()
	p.Images = []Image{{URL: "https://img/a.png"}}
	msgs := buildChatMessages(p)
	require.Len(t, msgs, 4)
	for _, m := range msgs[:3] {
		_, isString := m.Content.(string)
		assert.True(t, isString)
	}
	parts, ok := msgs[3].Content.([]chatContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "https://img/a.png", parts[1].ImageURL.URL)
}

func TestOpenRouter_NoUsageIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	}))
	defer srv.Close()
	resp, err := NewOpenRouterClient(srv.URL, "key", time.Second).Invoke(context.Background(), samplePrompt())
	require.NoError(t, err)
	assert.Nil(t, resp.Usage)
}

func TestOpenRouter_ErrorKinds(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   ErrorKind
	}{
		{http.StatusUnauthorized, "bad key", KindAuth},
		{http.StatusForbidden, "nope", KindAuth},
		{http.StatusTooManyRequests, "slow", KindRateLimit},
		{http.StatusInternalServerError, "oops", KindTransport},
		{http.StatusOK, `{"choices":[]}`, KindTransport},
		{http.StatusOK, `not json`, KindTransport},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(c.status)
			_, _ = w.Write([]byte(c.body))
		}))
		_, err := NewOpenRouterClient(srv.URL, "key", time.Second).Invoke(context.Background(), samplePrompt())
		srv.Close()

		var pe *ProviderError
		require.True(t, errors.As(err, &pe), "status %d", c.status)
		assert.Equal(t, c.kind, pe.Kind, "status %d", c.status)
	}
}

func TestOpenRouter_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewOpenRouterClient(srv.URL, "key", 50*time.Millisecond).Invoke(context.Background(), samplePrompt())
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindTimeout, pe.Kind)
}

func TestMissingKeyIsAuth(t *testing.T) {
	_, err := NewOpenRouterClient("http://unused", "", time.Second).Invoke(context.Background(), samplePrompt())
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindAuth, pe.Kind)

	_, err = NewGeminiClient("http://unused", "", time.Second).Invoke(context.Background(), samplePrompt())
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindAuth, pe.Kind)
}

func TestGemini_Success(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gkey", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"answer"}]}}]}`))
	}))
	defer srv.Close()

	p := samplePrompt()
	p.Model = "gemini-1.5-flash"
	p.Images = []Image{{URL: "ignored"}}
	resp, err := NewGeminiClient(srv.URL, "gkey", time.Second).Invoke(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Text)
	assert.Nil(t, resp.Usage)

	require.Len(t, got.Contents, 1)
	text := got.Contents[0].Parts[0].Text
	assert.True(t, strings.HasPrefix(text, "sys\n\nContext: user: make a card\nassistant: Generated component:"))
	assert.True(t, strings.HasSuffix(text, "\n\nUser Request: now add a button"))
	assert.Equal(t, 100, got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.5, got.GenerationConfig.Temperature, 1e-9)
}

func TestGemini_ErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid key=gkey"))
	}))
	defer srv.Close()

	_, err := NewGeminiClient(srv.URL, "gkey", time.Second).Invoke(context.Background(), samplePrompt())
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindTransport, pe.Kind)
	assert.Equal(t, http.StatusBadRequest, pe.Status)
	assert.NotContains(t, pe.Error(), "gkey")
}

func TestGemini_TransportErrorHidesEscapedKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	key := "g+k/y=1"
	_, err := NewGeminiClient(base, key, time.Second).Invoke(context.Background(), samplePrompt())
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindTransport, pe.Kind)
	assert.NotContains(t, pe.Error(), key)
	assert.NotContains(t, pe.Error(), url.QueryEscape(key))

	var ue *url.Error
	require.True(t, errors.As(err, &ue))
	assert.NotContains(t, ue.Error(), url.QueryEscape(key))
	assert.Contains(t, ue.URL, "key=***")
}
