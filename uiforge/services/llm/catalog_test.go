package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini", "openrouter"}, c.ProviderNames())
	assert.Len(t, c.Providers[ProviderOpenRouter], 5)
	assert.Len(t, c.Providers[ProviderGemini], 2)

	assert.Equal(t, ProviderOpenRouter, c.ProviderFor("gpt-4o-mini"))
	assert.Equal(t, ProviderGemini, c.ProviderFor("gemini-1.5-pro"))
	assert.Equal(t, ProviderOpenRouter, c.ProviderFor("some-unknown-model"))
	assert.False(t, c.Has("some-unknown-model"))
}

func TestCatalogOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("providers:\n  gemini:\n    - id: g1\n      name: G1\n"), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, c.ProviderFor("g1"))
	assert.Equal(t, ProviderOpenRouter, c.ProviderFor("other"))
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseCatalog([]byte("providers:\n  a:\n    - id: m\n  b:\n    - id: m\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("providers: {}\n"))
	assert.Error(t, err)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Greater(t, EstimateTokens("hello world, this is a prompt"), 0)
	assert.Greater(t, EstimatePrompt(samplePrompt()), EstimateTokens("sys"))
}
