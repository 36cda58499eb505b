package traversal

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"storybot/types"
)

// Matcher reports whether text mentions any of a set of keywords.
// Matching is case-insensitive.
type Matcher struct {
	keywords  []string
	wholeWord bool
}

// NewMatcher builds a Matcher. With wholeWord set a keyword only matches when it
// is not directly preceded or followed by a letter or digit.
func NewMatcher(keywords []string, wholeWord bool) *Matcher {
	m := &Matcher{wholeWord: wholeWord}
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			m.keywords = append(m.keywords, k)
		}
	}
	return m
}

// Empty reports whether the matcher has no keywords
func (m *Matcher) Empty() bool {
	return len(m.keywords) == 0
}

// Match reports whether text contains any keyword
func (m *Matcher) Match(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range m.keywords {
		if m.contains(lower, k) {
			return true
		}
	}
	return false
}

func (m *Matcher) contains(text, keyword string) bool {
	if !m.wholeWord {
		return strings.Contains(text, keyword)
	}
	offset := 0
	for {
		i := strings.Index(text[offset:], keyword)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(keyword)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		offset = start + 1
	}
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// Query describes a keyword search over a comment forest
type Query struct {
	Keywords  []string
	WholeWord bool
	// Need stops the walk once this many matches are found; <= 0 collects all.
	Need int
	// Limit caps the number of visited comments; <= 0 means no limit.
	Limit int
}

// Matches is the outcome of a keyword search
type Matches struct {
	Comments  []*types.Comment
	Visited   int
	Truncated bool
}

// FindMatches walks the forest breadth-first and collects comments whose body
// matches the query, stopping early once enough matches are found or the visit
// limit is reached.
func FindMatches(roots []*types.Comment, q Query) Matches {
	m := NewMatcher(q.Keywords, q.WholeWord)
	var res Matches
	if m.Empty() {
		return res
	}
	res.Visited, res.Truncated = walk(roots, q.Limit, func(c *types.Comment) bool {
		if m.Match(c.Body) {
			res.Comments = append(res.Comments, c)
		}
		return q.Need <= 0 || len(res.Comments) < q.Need
	})
	return res
}
