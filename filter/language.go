package filter

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Language passes posts whose language matches Target. An empty Target
// disables the check. When the feed supplied no language it is detected from
// the title and body; undetermined languages pass.
type Language struct {
	Target string
}

func (Language) Name() string { return "language" }

func (s Language) Evaluate(c *Candidate) Verdict {
	if s.Target == "" || c.Post == nil {
		return Accepted()
	}
	lang := c.Post.Language
	if lang == "" {
		lang = DetectLanguage(c.Post.Title + "\n" + c.Post.Body)
	}
	if lang == "" || SameLanguage(lang, s.Target) {
		return Accepted()
	}
	return Rejected(fmt.Sprintf("language %s does not match %s", lang, s.Target), true)
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when detection
// is not reliable.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

// SameLanguage compares two language tags by their base language, so "en-US"
// matches "en".
func SameLanguage(a, b string) bool {
	ta, errA := language.Parse(a)
	tb, errB := language.Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}
