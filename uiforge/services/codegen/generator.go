package codegen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/utils/logging"

	"go.uber.org/zap"
)

const KindAllProvidersFailed = "AllProvidersFailed"

// GenerationError is returned when both the requested and the fallback model failed.
type GenerationError struct {
	Kind     string
	Primary  error
	Fallback error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: primary: %v; fallback: %v", e.Kind, e.Primary, e.Fallback)
}

func (e *GenerationError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

type GeneratorConfig struct {
	DefaultModel  string
	FallbackModel string
	Temperature   float64
	Builder       PromptBuilder
}

// Generator runs the primary then fallback policy. It never tries a third model.
type Generator struct {
	cfg       GeneratorConfig
	catalog   *llm.Catalog
	providers map[string]llm.Provider
}

func NewGenerator(cfg GeneratorConfig, catalog *llm.Catalog, providers ...llm.Provider) *Generator {
	byName := make(map[string]llm.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Generator{cfg: cfg, catalog: catalog, providers: byName}
}

func (g *Generator) Catalog() *llm.Catalog { return g.catalog }

func (g *Generator) DefaultModel() string { return g.cfg.DefaultModel }

func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	defer logging.LogDuration(ctx, "codegen_generate")()

	model := req.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}
	start := time.Now()

	res, primaryErr := g.attempt(ctx, req, model)
	if primaryErr == nil {
		res.Elapsed = time.Since(start)
		return res, nil
	}
	logging.AppLogger.Warn("primary model failed, trying fallback",
		zap.String("model", model), zap.String("fallback", g.cfg.FallbackModel), zap.Error(primaryErr))

	res, fallbackErr := g.attempt(ctx, req, g.cfg.FallbackModel)
	if fallbackErr == nil {
		res.UsedFallback = true
		res.Elapsed = time.Since(start)
		return res, nil
	}
	logging.ErrorLogger.Error("all models failed",
		zap.String("model", model), zap.String("fallback", g.cfg.FallbackModel),
		zap.NamedError("primary", primaryErr), zap.NamedError("fallback_error", fallbackErr))
	return nil, &GenerationError{Kind: KindAllProvidersFailed, Primary: primaryErr, Fallback: fallbackErr}
}

// attempt runs one resolve, build, invoke, parse cycle.
func (g *Generator) attempt(ctx context.Context, req Request, model string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation attempt with %s panicked: %v", model, r)
		}
	}()

	name := g.catalog.ProviderFor(model)
	provider, ok := g.providers[name]
	if !ok {
		return nil, &llm.ProviderError{Provider: name, Kind: llm.KindTransport, Message: "provider is not configured"}
	}

	prompt := g.cfg.Builder.Build(req, model)
	if req.Temperature == nil {
		prompt.Temperature = g.cfg.Temperature
	}

	raw, err := provider.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("provider returned no response")
	}

	out := ParseResponse(raw)
	return &Result{
		Component:   out.Result,
		Provenance:  out.Provenance,
		Model:       model,
		Provider:    name,
		Usage:       raw.Usage,
		Temperature: prompt.Temperature,
	}, nil
}
