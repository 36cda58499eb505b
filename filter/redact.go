package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Redactor masks configured words, matched case-insensitively on word
// boundaries, with asterisks of the same length.
type Redactor struct {
	pattern *regexp.Regexp
}

// NewRedactor builds a Redactor for words. With no words it is a no-op.
func NewRedactor(words []string) *Redactor {
	var quoted []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return &Redactor{}
	}
	// Longest first so "badword" wins over "bad".
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return &Redactor{pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// LoadRedactor reads a JSON array of words from path. A missing file yields a
// no-op Redactor.
func LoadRedactor(path string) (*Redactor, error) {
	if path == "" {
		return NewRedactor(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️  Swear word list %s not found, redaction disabled", path)
		return NewRedactor(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read swear words: %w", err)
	}
	var words []string
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("parse swear words %s: %w", path, err)
	}
	return NewRedactor(words), nil
}

// Redact returns text with every configured word masked
func (r *Redactor) Redact(text string) string {
	if r == nil || r.pattern == nil {
		return text
	}
	return r.pattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("*", utf8.RuneCountInString(m))
	})
}
