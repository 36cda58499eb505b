package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Post represents a single thread fetched from an upstream feed
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	Source       string    `json:"source"`
	URL          string    `json:"url,omitempty"`
	Permalink    string    `json:"permalink,omitempty"`
	Author       string    `json:"author,omitempty"`
	CommentCount int       `json:"comment_count"`
	Language     string    `json:"language,omitempty"`
	NSFW         bool      `json:"nsfw"`
	Stickied     bool      `json:"stickied,omitempty"`
	IsSelf       bool      `json:"is_self"`
	Score        int       `json:"score,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Comment is one node of a post's comment forest.
// ParentID is empty for top-level comments.
type Comment struct {
	ID       string     `json:"id"`
	ParentID string     `json:"parent_id,omitempty"`
	PostID   string     `json:"post_id"`
	Body     string     `json:"body"`
	Author   string     `json:"author,omitempty"`
	Depth    int        `json:"depth"`
	Stickied bool       `json:"stickied,omitempty"`
	Score    int        `json:"score,omitempty"`
	Replies  []*Comment `json:"replies,omitempty"`
}

// GenerateID creates a unique ID from URL
func GenerateID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}

// SanitizeID strips the link kind prefix (t3_) and anything other than
// letters, digits, '_' and '-' so ids are safe as ledger and object keys.
// The comment prefix (t1_) is kept: posts and comments are numbered
// separately upstream, so a comment key must never collide with a post key.
func SanitizeID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 3 && id[0] == 't' && id[1] >= '2' && id[1] <= '6' && id[2] == '_' {
		id = id[3:]
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CommentKey returns the ledger key of a comment id: the sanitised id with
// its t1_ kind prefix
func CommentKey(id string) string {
	id = SanitizeID(id)
	if id == "" || strings.HasPrefix(id, CommentPrefix) {
		return id
	}
	return CommentPrefix + id
}

// CommentID returns a comment id without its kind prefix
func CommentID(id string) string {
	return strings.TrimPrefix(SanitizeID(id), CommentPrefix)
}

// CommentPrefix is the upstream kind prefix of comment fullnames
const CommentPrefix = "t1_"
