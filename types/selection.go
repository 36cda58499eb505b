package types

import "time"

// SelectionMode records which kind of item a Selection narrates
type SelectionMode string

const (
	ModeStory   SelectionMode = "story"
	ModeComment SelectionMode = "comment"
)

// Selection is the accepted item of one iteration plus its ordered segments
type Selection struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id,omitempty"`
	Iteration int           `json:"iteration"`
	Source    string        `json:"source"`
	PostID    string        `json:"source_post_id"`
	CommentID string        `json:"chosen_comment_id,omitempty"`
	Title     string        `json:"title"`
	Text      string        `json:"text"`
	Segments  []string      `json:"segments"`
	Mode      SelectionMode `json:"mode"`
	Permalink string        `json:"permalink,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// ItemID returns the bare id of the narrated item: the comment id in comment
// mode, the post id otherwise
func (s *Selection) ItemID() string {
	if s.CommentID != "" {
		return s.CommentID
	}
	return s.PostID
}

// Key returns the ledger key recorded in the used namespace for this selection
func (s *Selection) Key() string {
	if s.CommentID != "" {
		return CommentKey(s.CommentID)
	}
	return s.PostID
}

// RunRequest asks a listener to start a selection run.
// Zero fields fall back to the loaded constraints.
type RunRequest struct {
	RequestID  string   `json:"request_id"`
	Subreddits []string `json:"subreddits,omitempty"`
	PostIDs    []string `json:"post_ids,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
	TimesToRun int      `json:"times_to_run,omitempty"`
}
