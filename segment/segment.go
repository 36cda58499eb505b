// Package segment splits narrative text into bounded chunks for speech and
// on-screen display.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Segmenter splits text at sentence and paragraph boundaries and then caps each
// chunk by word count and, optionally, by character count.
// A zero cap disables that limit.
type Segmenter struct {
	MaxWords int
	MaxChars int
}

// Segment splits text with a word cap only
func Segment(text string, maxWords int) []string {
	return Segmenter{MaxWords: maxWords}.Split(text)
}

// Split returns the ordered chunks of text. Joining them with single spaces
// yields strings.Join(strings.Fields(text), " ").
func (s Segmenter) Split(text string) []string {
	var chunks []string
	for _, sentence := range Sentences(text) {
		for _, chunk := range s.splitWords(sentence) {
			chunks = append(chunks, s.splitChars(chunk)...)
		}
	}
	return chunks
}

// Sentences splits text into sentences, each returned as its words.
// Line breaks always end a sentence.
func Sentences(text string) [][]string {
	var out [][]string
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		start := 0
		for i, w := range words {
			if endsSentence(w) {
				out = append(out, words[start:i+1])
				start = i + 1
			}
		}
		if start < len(words) {
			out = append(out, words[start:])
		}
	}
	return out
}

// splitWords subdivides a sentence that does not fit in MaxWords, breaking
// after clause punctuation in the second half of each window when there is
// one. A closing sentence mark takes one slot of the window but stays attached
// to its word, so the final word of a subdivided sentence may end up alone.
func (s Segmenter) splitWords(words []string) [][]string {
	if s.MaxWords <= 0 || weight(words) <= s.MaxWords {
		return [][]string{words}
	}

	var out [][]string
	for len(words) > 1 && weight(words) > s.MaxWords {
		limit := s.MaxWords
		if limit >= len(words) {
			// the window reaches the last word, whose mark does not fit
			limit = len(words) - 1
		}
		cut := limit
		for j := limit - 1; j >= limit/2 && j > 0; j-- {
			if endsClause(words[j-1]) {
				cut = j
				break
			}
		}
		out = append(out, words[:cut])
		words = words[cut:]
	}
	if len(words) > 0 {
		out = append(out, words)
	}
	return out
}

// weight is the number of window slots words occupy: one per word plus one
// for a closing sentence mark
func weight(words []string) int {
	n := len(words)
	if n > 0 && endsSentence(words[n-1]) {
		n++
	}
	return n
}

// splitChars packs words greedily into chunks of at most MaxChars runes.
// A single word longer than the limit becomes its own chunk.
func (s Segmenter) splitChars(words []string) []string {
	if s.MaxChars <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var out []string
	var current []string
	size := 0
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		if len(current) > 0 && size+1+n > s.MaxChars {
			out = append(out, strings.Join(current, " "))
			current, size = nil, 0
		}
		if len(current) > 0 {
			size++
		}
		current = append(current, w)
		size += n
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// WordCount returns the number of whitespace-separated words in text
func WordCount(text string) int {
	return len(strings.Fields(text))
}

var abbreviations = map[string]bool{
	"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "st.": true, "jr.": true,
	"sr.": true, "vs.": true, "etc.": true, "e.g.": true, "i.e.": true, "prof.": true,
	"approx.": true, "no.": true,
}

const closers = "\"')]}”’»"

func endsSentence(word string) bool {
	trimmed := strings.TrimRight(word, closers)
	if trimmed == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch last {
	case '!', '?', '…':
		return true
	case '.':
	default:
		return false
	}

	if abbreviations[strings.ToLower(strings.TrimLeft(trimmed, "\"'([{“‘«"))] {
		return false
	}
	stem := strings.TrimRight(trimmed, ".")
	if stem == "" {
		// "..." on its own
		return true
	}
	// Numbered list markers like "1." and initials like "U.S." do not end a sentence.
	if isDigits(stem) {
		return false
	}
	if isInitialism(trimmed) {
		return false
	}
	return true
}

func endsClause(word string) bool {
	trimmed := strings.TrimRight(word, closers)
	if trimmed == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch last {
	case ',', ';', ':', '—', '–':
		return true
	}
	return word == "-"
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// isInitialism matches dotted single letters such as "U.S." or "a.m."
func isInitialism(s string) bool {
	parts := strings.Split(strings.TrimSuffix(s, "."), ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if utf8.RuneCountInString(p) != 1 || !unicode.IsLetter([]rune(p)[0]) {
			return false
		}
	}
	return true
}
