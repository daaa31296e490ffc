package jsonutils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Fence is one triple-backtick block found in model output.
type Fence struct {
	Lang string
	Body string
}

var (
	reFence         = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\r?\n(.*?)```")
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// StripInvisible removes BOMs and zero-width characters models like to emit.
func StripInvisible(input string) string {
	return strings.Map(func(r rune) rune {
		if r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D' {
			return -1 // skip
		}
		return r
	}, input)
}

// FencedBlocks returns every fenced block in order of appearance. Lang is
// lower-cased; Body is the block contents without the final line break.
func FencedBlocks(input string) []Fence {
	matches := reFence.FindAllStringSubmatch(input, -1)
	out := make([]Fence, 0, len(matches))
	for _, m := range matches {
		body := strings.TrimSuffix(m[2], "\n")
		body = strings.TrimSuffix(body, "\r")
		out = append(out, Fence{Lang: strings.ToLower(m[1]), Body: body})
	}
	return out
}

// StripFences removes every fenced block, tags included.
func StripFences(input string) string {
	return reFence.ReplaceAllString(input, "")
}

// FirstFence returns the first block whose tag is in langs. An empty string
// in langs matches untagged blocks.
func FirstFence(blocks []Fence, langs ...string) (Fence, bool) {
	for _, b := range blocks {
		for _, l := range langs {
			if b.Lang == l {
				return b, true
			}
		}
	}
	return Fence{}, false
}

// BalancedObject returns the first {...} span whose braces balance,
// ignoring braces inside JSON strings.
func BalancedObject(input string) (string, bool) {
	start := strings.IndexByte(input, '{')
	for start >= 0 {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(input); i++ {
			c := input[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return input[start : i+1], true
				}
			}
		}
		// unbalanced from this brace; try the next one
		next := strings.IndexByte(input[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// StripTrailingCommas removes commas that directly precede } or ].
func StripTrailingCommas(input string) string {
	return reTrailingComma.ReplaceAllString(input, "$1")
}

// Truncate shortens s to at most n bytes without splitting a rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
