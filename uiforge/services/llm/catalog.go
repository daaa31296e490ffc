package llm

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Model struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Vendor      string `yaml:"vendor" json:"vendor"`
	Description string `yaml:"description" json:"description"`
}

// Catalog is the static model to provider table.
type Catalog struct {
	DefaultProvider string             `yaml:"default_provider"`
	Providers       map[string][]Model `yaml:"providers"`

	index map[string]string
}

// LoadCatalog reads a YAML catalog from path, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model catalog: %w", err)
		}
		data = b
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	if len(c.Providers) == 0 {
		return nil, fmt.Errorf("model catalog has no providers")
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = ProviderOpenRouter
	}
	c.index = make(map[string]string)
	for provider, models := range c.Providers {
		for _, m := range models {
			if prev, dup := c.index[m.ID]; dup && prev != provider {
				return nil, fmt.Errorf("model %q listed under both %s and %s", m.ID, prev, provider)
			}
			c.index[m.ID] = provider
		}
	}
	return &c, nil
}

// MustDefaultCatalog returns the embedded catalog.
func MustDefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// ProviderFor resolves the provider serving model. Unknown models go to the
// default (chat-style) provider.
func (c *Catalog) ProviderFor(model string) string {
	if p, ok := c.index[model]; ok {
		return p
	}
	return c.DefaultProvider
}

func (c *Catalog) Has(model string) bool {
	_, ok := c.index[model]
	return ok
}

// ProviderNames is sorted for stable output.
func (c *Catalog) ProviderNames() []string {
	names := make([]string, 0, len(c.Providers))
	for n := range c.Providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
