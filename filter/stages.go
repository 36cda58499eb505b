package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// NSFW rejects adult posts unless they are allowed
type NSFW struct {
	Allow bool
}

func (NSFW) Name() string { return "nsfw" }

func (s NSFW) Evaluate(c *Candidate) Verdict {
	if c.Post != nil && c.Post.NSFW && !s.Allow {
		return Rejected("nsfw post", true)
	}
	return Accepted()
}

// Pinned rejects posts pinned by moderators
type Pinned struct{}

func (Pinned) Name() string { return "pinned" }

func (Pinned) Evaluate(c *Candidate) Verdict {
	if c.Post != nil && c.Post.Stickied {
		return Rejected("pinned post", false)
	}
	return Accepted()
}

// Engagement bounds a post's comment count. Counts change over time, so its
// rejects are never permanent.
type Engagement struct {
	Min int
	Max int // 0 disables the upper bound
}

func (Engagement) Name() string { return "engagement" }

func (s Engagement) Evaluate(c *Candidate) Verdict {
	if c.Post == nil {
		return Accepted()
	}
	n := c.Post.CommentCount
	if n < s.Min {
		return Rejected(fmt.Sprintf("too few comments (%d < %d)", n, s.Min), false)
	}
	if s.Max > 0 && n > s.Max {
		return Rejected(fmt.Sprintf("too many comments (%d > %d)", n, s.Max), false)
	}
	return Accepted()
}

// Length bounds the rune length of the candidate text
type Length struct {
	Min int
	Max int
	// RequireSelf rejects link posts, which carry no narratable body
	RequireSelf bool
}

func (Length) Name() string { return "length" }

func (s Length) Evaluate(c *Candidate) Verdict {
	if s.RequireSelf && c.Post != nil && c.Comment == nil && !c.Post.IsSelf {
		return Rejected("link post has no story text", false)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(c.Text))
	if n < s.Min {
		return Rejected(fmt.Sprintf("too short (%d < %d)", n, s.Min), false)
	}
	if n > s.Max {
		return Rejected(fmt.Sprintf("too long (%d > %d)", n, s.Max), false)
	}
	return Accepted()
}

// Removed rejects comments that were deleted, removed, pinned or have no author
type Removed struct{}

func (Removed) Name() string { return "removed" }

func (Removed) Evaluate(c *Candidate) Verdict {
	cm := c.Comment
	if cm == nil {
		return Accepted()
	}
	switch strings.TrimSpace(cm.Body) {
	case "[removed]", "[deleted]":
		return Rejected("comment removed", false)
	}
	if cm.Author == "" || cm.Author == "[deleted]" {
		return Rejected("comment has no author", false)
	}
	if cm.Stickied {
		return Rejected("pinned comment", false)
	}
	return Accepted()
}

// Redact masks configured words in one field. It never rejects.
type Redact struct {
	Redactor *Redactor
	Field    Field
}

func (s Redact) Name() string {
	if s.Field == FieldTitle {
		return "redact-title"
	}
	return "redact"
}

func (s Redact) Evaluate(c *Candidate) Verdict {
	src := c.Text
	if s.Field == FieldTitle {
		src = c.Title
	}
	if out := s.Redactor.Redact(src); out != src {
		return Rewritten(s.Field, out)
	}
	return Accepted()
}

var bracketTag = regexp.MustCompile(`\[[^\]]*\]`)

// Tags strips bracketed tags such as "[Serious]" from titles
type Tags struct{}

func (Tags) Name() string { return "tags" }

func (Tags) Evaluate(c *Candidate) Verdict {
	if !strings.Contains(c.Title, "[") {
		return Accepted()
	}
	out := strings.Join(strings.Fields(bracketTag.ReplaceAllString(c.Title, " ")), " ")
	if out == c.Title {
		return Accepted()
	}
	return Rewritten(FieldTitle, out)
}

// Blank rejects candidates left with no text
type Blank struct{}

func (Blank) Name() string { return "blank" }

func (Blank) Evaluate(c *Candidate) Verdict {
	if strings.TrimSpace(c.Text) == "" {
		return Rejected("empty text", false)
	}
	return Accepted()
}
