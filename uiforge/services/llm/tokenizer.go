package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens counts tokens with cl100k_base. It falls back to a
// four-characters-per-token guess if the codec cannot load.
func EstimateTokens(text string) int {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = c
		}
	})
	if codec != nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return (len(text) + 3) / 4
}

// EstimatePrompt counts every part of the prompt that is sent as text.
func EstimatePrompt(p Prompt) int {
	n := EstimateTokens(p.System) + EstimateTokens(p.User)
	for _, t := range p.Context {
		n += EstimateTokens(t.Content)
	}
	return n
}
