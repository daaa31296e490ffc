package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"uiforge/uiforge/services/llm"
	"uiforge/uiforge/utils/jsonutils"
	"uiforge/uiforge/utils/logging"

	"go.uber.org/zap"
)

// Provenance records how a result was obtained from the model text.
type Provenance string

const (
	Structured  Provenance = "structured"
	Degraded    Provenance = "degraded"
	Unparseable Provenance = "unparseable"
)

type Outcome struct {
	Result     ComponentResult
	Provenance Provenance
}

var (
	codeLangs  = []string{"jsx", "tsx", "js", "javascript", "ts", "typescript", "html", "markup", ""}
	styleLangs = []string{"css", "scss"}
)

const maxProseExplanation = 2000

// ParseResponse parses a provider answer and carries its token usage over.
func ParseResponse(resp *llm.RawResponse) Outcome {
	out := Parse(resp.Text, resp.Provider)
	out.Result.Tokens = resp.Usage
	return out
}

// Parse extracts a ComponentResult from free-form model output. It never
// panics; text it cannot read yields an Unparseable outcome.
func Parse(raw, providerID string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorLogger.Error("response parser panicked",
				zap.String("provider", providerID), zap.Any("panic", r))
			out = unparseable(raw)
		}
	}()

	text := strings.TrimSpace(jsonutils.StripInvisible(raw))
	blocks := jsonutils.FencedBlocks(text)

	for _, candidate := range jsonCandidates(text, blocks) {
		if obj, ok := decodeObject(candidate); ok {
			return Outcome{Result: fromObject(obj), Provenance: Structured}
		}
	}

	jsx, hasJSX := jsonutils.FirstFence(blocks, codeLangs...)
	css, hasCSS := jsonutils.FirstFence(blocks, styleLangs...)
	if !hasJSX && !hasCSS {
		logging.AppLogger.Warn("model response unparseable",
			zap.String("provider", providerID), zap.Int("length", len(raw)))
		return unparseable(text)
	}

	res := withDefaults(ComponentResult{JSX: jsx.Body, CSS: css.Body, Explanation: prose(text)})
	logging.AppLogger.Warn("model response parsed in degraded mode",
		zap.String("provider", providerID), zap.Bool("jsx", hasJSX), zap.Bool("css", hasCSS))
	return Outcome{Result: res, Provenance: Degraded}
}

// jsonCandidates lists the spans to try, in order: fenced json, first
// balanced object, whole payload.
func jsonCandidates(text string, blocks []jsonutils.Fence) []string {
	var out []string
	if f, ok := jsonutils.FirstFence(blocks, "json"); ok {
		out = append(out, f.Body)
	} else {
		for _, b := range blocks {
			if b.Lang == "" && strings.HasPrefix(strings.TrimSpace(b.Body), "{") {
				out = append(out, b.Body)
				break
			}
		}
	}
	if obj, ok := jsonutils.BalancedObject(text); ok {
		out = append(out, obj)
	}
	return append(out, text)
}

// decodeObject accepts a candidate only if it is an object carrying at
// least one component field. Trailing commas get one retry.
func decodeObject(candidate string) (map[string]interface{}, bool) {
	for _, s := range []string{candidate, jsonutils.StripTrailingCommas(candidate)} {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &obj); err != nil {
			continue
		}
		for _, k := range []string{"jsx", "css", "componentName"} {
			if _, ok := obj[k]; ok {
				return obj, true
			}
		}
		return nil, false
	}
	return nil, false
}

func fromObject(obj map[string]interface{}) ComponentResult {
	res := ComponentResult{
		ComponentName: str(obj["componentName"]),
		Explanation:   str(obj["explanation"]),
		JSX:           str(obj["jsx"]),
		CSS:           str(obj["css"]),
		Category:      strings.ToLower(str(obj["category"])),
		Complexity:    strings.ToLower(str(obj["complexity"])),
		Dependencies:  strList(obj["dependencies"]),
		Features:      strList(obj["features"]),
		Usage:         str(obj["usage"]),
	}
	if props, ok := obj["props"].(map[string]interface{}); ok {
		res.Props = props
	}
	return withDefaults(res)
}

func withDefaults(r ComponentResult) ComponentResult {
	if r.ComponentName == "" {
		r.ComponentName = DefaultComponentName
	}
	if r.Explanation == "" {
		r.Explanation = DefaultExplanation
	}
	if r.Props == nil {
		r.Props = map[string]interface{}{}
	}
	if len(r.Dependencies) == 0 {
		r.Dependencies = []string{"react"}
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	switch r.Complexity {
	case "simple", "medium", "complex":
	default:
		r.Complexity = DefaultComplexity
	}
	return r
}

func unparseable(text string) Outcome {
	explanation := strings.TrimSpace(text)
	if explanation == "" {
		explanation = "The model returned an empty response."
	}
	explanation = jsonutils.Truncate(explanation, maxProseExplanation)
	return Outcome{Result: withDefaults(ComponentResult{Explanation: explanation}), Provenance: Unparseable}
}

// prose is the text outside fenced blocks, used as the explanation of a
// degraded result.
func prose(text string) string {
	joined := strings.Join(strings.Fields(jsonutils.StripFences(text)), " ")
	return jsonutils.Truncate(joined, maxProseExplanation)
}

func str(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// strList accepts an array of strings or a comma separated string.
func strList(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if s := strings.TrimSpace(str(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
