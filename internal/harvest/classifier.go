package harvest

import (
	"bytes"
	"strings"
)

// KeywordClassifier implements Classifier with cheap lexical and size
// heuristics. The checks run in a fixed order: empty and short bodies are
// rejected before keywords are consulted, then any keyword hit accepts, and
// finally a long body is accepted even without a keyword match so that pages
// with unusual wording are not under-collected.
type KeywordClassifier struct {
	minBodyBytes  int
	longBodyBytes int
	keywords      [][]byte
}

// NewKeywordClassifier builds a classifier with the given thresholds and
// keyword set. Keywords are matched case-insensitively.
func NewKeywordClassifier(minBodyBytes, longBodyBytes int, keywords []string) *KeywordClassifier {
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	return &KeywordClassifier{
		minBodyBytes:  minBodyBytes,
		longBodyBytes: longBodyBytes,
		keywords:      lowered,
	}
}

// IsLikelyRecipe reports whether body looks like a genuine recipe page. The
// heuristics are currently shared by every configured site; siteKey is part
// of the contract so per-site keyword sets can be added without changing
// callers.
func (c *KeywordClassifier) IsLikelyRecipe(body []byte, _ string) bool {
	if len(body) == 0 {
		return false
	}
	if len(body) < c.minBodyBytes {
		return false
	}
	lower := bytes.ToLower(body)
	for _, kw := range c.keywords {
		if bytes.Contains(lower, kw) {
			return true
		}
	}
	return len(body) > c.longBodyBytes
}
