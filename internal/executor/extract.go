package executor

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractDelimited returns the text strictly between the first open/close
// marker pair, and true if both markers were found in order. An open
// marker that sits inside an open ``` fence is not matched (false). Used for
// the `<persistent_memory>...</persistent_memory>` contract and reusable for any other delimited-block convention a
// skill defines.
//
// Mirrors extractYAML's (internal/agent/decide_helpers.go)
// first-open/first-close-after-open strategy, generalized from a
// hardcoded ```yaml fence to arbitrary markers.
func ExtractDelimited(content, open, close string) (string, bool) {
	start := strings.Index(content, open)
	if start < 0 {
		return "", false
	}
	// An open marker inside an unclosed ``` fence is embedded in a code
	// span and is not matched.
	if strings.Count(content[:start], "```")%2 == 1 {
		return "", false
	}
	rest := content[start+len(open):]
	end := strings.Index(rest, close)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// ExtractYAML extracts YAML content from a ```yaml ... ``` fenced block,
// falling back to a bare ``` ... ``` fence, falling back to treating the
// entire content as YAML. Returns an error only when a fence opens but
// never closes.
//
// Direct adaptation of extractYAML (internal/agent/decide_helpers.go),
// renamed and exported for reuse across all skill executors rather
// than being agent-package-local.
func ExtractYAML(content string) (string, error) {
	if idx := strings.Index(content, "```yaml"); idx >= 0 {
		rest := content[idx+7:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return "", fmt.Errorf("unclosed ```yaml code block")
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return "", fmt.Errorf("unclosed ``` code block")
	}
	return strings.TrimSpace(content), nil
}

// windowsPathInQuotes matches a double-quoted Windows drive path so its
// backslashes can be normalized before a retry parse.
var windowsPathInQuotes = regexp.MustCompile(`"([A-Za-z]:\\[^"]*)"`)

// FixBackslashes replaces backslashes with forward slashes inside
// double-quoted Windows-path-looking values, a recovery strategy for
// YAML that LLMs frequently emit with unescaped path separators.
//
// Direct adaptation of fixBackslashes (internal/agent/decide_helpers.go).
func FixBackslashes(s string) string {
	return windowsPathInQuotes.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[1 : len(match)-1]
		inner = strings.ReplaceAll(inner, `\`, `/`)
		return `"` + inner + `"`
	})
}
