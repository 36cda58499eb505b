package selection

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"time"

	"storybot/common"
	"storybot/config"
	"storybot/feed"
	"storybot/filter"
	"storybot/ledger"
	"storybot/segment"
	"storybot/traversal"
	"storybot/types"
)

// run holds the state shared by the iterations of one Run call
type run struct {
	c         *Controller
	id        string
	cs        config.ConstraintSet
	mode      feed.Mode
	filter    *filter.Filter
	ledger    *ledger.Ledger
	walker    *traversal.Walker
	segmenter segment.Segmenter
	// post ids selected during this run
	picked map[string]bool

	// story mode shares one cursor across iterations; seen holds the posts
	// it has already handed out
	cur  *cursor
	seen map[string]bool
}

// cursor is a pulled candidate sequence
type cursor struct {
	next func() (*types.Post, error, bool)
	stop func()
}

func (r *run) newCursor(ctx context.Context) *cursor {
	next, stop := iter.Pull2(r.c.source.Fetch(ctx, r.mode, r.cs))
	return &cursor{next: next, stop: stop}
}

// candidates returns the cursor and seen set for one iteration. In story mode
// posts handed out by earlier iterations stay behind the cursor. Comment mode
// restarts the pool because a used post can still offer unused comments.
func (r *run) candidates(ctx context.Context) (*cursor, map[string]bool) {
	if !r.cs.StoryMode {
		return r.newCursor(ctx), make(map[string]bool)
	}
	if r.cur == nil {
		r.cur = r.newCursor(ctx)
	}
	return r.cur, r.seen
}

// restart replaces cur after a transient failure. Posts already seen are
// skipped when the new cursor reaches them again.
func (r *run) restart(ctx context.Context, cur *cursor) *cursor {
	cur.stop()
	next := r.newCursor(ctx)
	if r.cs.StoryMode {
		r.cur = next
	}
	return next
}

// close releases the shared cursor
func (r *run) close() {
	if r.cur != nil {
		r.cur.stop()
		r.cur = nil
	}
}

// iterate makes up to cs.Attempts() attempts at producing one selection
func (r *run) iterate(ctx context.Context, n int, result *RunResult) (*types.Selection, *IterationFailure, error) {
	cur, seen := r.candidates(ctx)
	defer func() {
		if cur != r.cur {
			cur.stop()
		}
	}()

	attempts := r.cs.Attempts()
	transient := 0
	var reasons []string

	for attempt := 1; attempt <= attempts; attempt++ {
		r.c.status.setPosition(n, attempt)
		result.Attempts++

		sel, err := r.attempt(ctx, n, cur, seen)
		if err == nil {
			sel.Iteration = n
			r.emit(ctx, sel, result)
			return sel, nil, nil
		}

		reasons = append(reasons, err.Error())
		log.Printf("Iteration %d attempt %d/%d: %v", n, attempt, attempts, err)

		switch {
		case errors.Is(err, ledger.ErrIO):
			return nil, nil, err
		case errors.Is(err, ErrExhausted):
			return nil, &IterationFailure{Iteration: n, Attempts: attempt, Reasons: reasons}, nil
		case r.mode == feed.ModeSpecific && errors.Is(err, feed.ErrNotFound):
			return nil, &IterationFailure{Iteration: n, Attempts: attempt, Reasons: reasons}, nil
		case feed.IsTransient(err):
			transient++
			cur = r.restart(ctx, cur)
			if attempt < attempts {
				delay := common.CalculateBackoff(r.cs.Backoff, transient)
				r.c.status.SetState(types.StateBackoff)
				r.c.status.AddLog(fmt.Sprintf("Transient failure, retrying in %s", delay.Round(time.Millisecond)))
				if err := r.c.sleep(ctx, delay); err != nil {
					log.Printf("Backoff interrupted: %v", err)
				}
			}
		}
	}
	return nil, &IterationFailure{Iteration: n, Attempts: attempts, Reasons: reasons}, nil
}

// attempt runs FETCH, FILTER, DEDUP-CHECK, RECORD and SEGMENT once
func (r *run) attempt(ctx context.Context, n int, cur *cursor, seen map[string]bool) (*types.Selection, error) {
	r.c.status.SetState(types.StateFetching)
	post, err := r.nextCandidate(cur, seen)
	if err != nil {
		return nil, err
	}

	r.c.status.SetState(types.StateFiltering)
	outcome := r.filter.EvaluatePost(post)
	if !outcome.Accepted {
		return nil, r.reject(ctx, post.ID, outcome.Stage, outcome.Reason, outcome.Permanent)
	}

	sel := &types.Selection{
		ID:        r.c.newID(),
		RunID:     r.id,
		Iteration: n,
		Source:    post.Source,
		PostID:    types.SanitizeID(post.ID),
		Title:     outcome.Title,
		Text:      outcome.Text,
		Mode:      types.ModeStory,
		Permalink: post.Permalink,
	}
	if !r.cs.StoryMode {
		comment, text, err := r.chooseComment(ctx, post, outcome.Title)
		if err != nil {
			return nil, err
		}
		sel.CommentID = types.CommentID(comment.ID)
		sel.Text = text
		sel.Mode = types.ModeComment
	}

	r.c.status.SetState(types.StateDedupCheck)
	if r.ledger.Contains(types.NamespaceUsed, sel.Key()) && !r.repeatAllowed() {
		return nil, fmt.Errorf("%s: %w", sel.ItemID(), ErrDuplicate)
	}

	r.c.status.SetState(types.StateRecording)
	if err := r.ledger.Record(context.WithoutCancel(ctx), types.NamespaceUsed, sel.Key(), "selected in run "+r.id); err != nil {
		return nil, err
	}
	r.picked[sel.PostID] = true

	r.c.status.SetState(types.StateSegmenting)
	sel.Segments = r.segmenter.Split(sel.Text)
	sel.CreatedAt = time.Now().UTC()
	return sel, nil
}

// nextCandidate pulls posts until one is neither seen in this iteration nor
// known unsuitable. Skipped posts do not consume an attempt.
func (r *run) nextCandidate(cur *cursor, seen map[string]bool) (*types.Post, error) {
	for {
		post, err, ok := cur.next()
		if !ok {
			return nil, ErrExhausted
		}
		if err != nil {
			return nil, err
		}

		id := types.SanitizeID(post.ID)
		if seen[id] {
			continue
		}
		seen[id] = true

		if r.ledger.Contains(types.NamespaceUnsuitable, id) {
			continue
		}
		if r.cs.StoryMode && r.skipStory(id) {
			continue
		}
		return post, nil
	}
}

// skipStory drops stories already picked in this run, and explicitly
// requested stories already narrated unless repeats are allowed.
func (r *run) skipStory(id string) bool {
	if r.picked[id] {
		return true
	}
	return r.mode == feed.ModeSpecific && !r.cs.AllowRepeatSpecific &&
		r.ledger.Contains(types.NamespaceUsed, id)
}

func (r *run) repeatAllowed() bool {
	return r.mode == feed.ModeSpecific && r.cs.AllowRepeatSpecific
}

// reject records permanent rejections as unsuitable and returns the
// rejection as an error
func (r *run) reject(ctx context.Context, id, stage, reason string, permanent bool) error {
	if permanent {
		r.c.status.SetState(types.StateRecording)
		if err := r.ledger.Record(context.WithoutCancel(ctx), types.NamespaceUnsuitable, id, stage+": "+reason); err != nil {
			return err
		}
	}
	return &RejectedError{ID: types.SanitizeID(id), Stage: stage, Reason: reason, Permanent: permanent}
}

// chooseComment walks the post's comments breadth-first and returns the first
// one that passes the comment chain and has not been used, with its filtered
// text. When keywords are set and the title mentions none of them, only
// comments matching a keyword are considered.
func (r *run) chooseComment(ctx context.Context, post *types.Post, title string) (*types.Comment, string, error) {
	var candidates iter.Seq[*types.Comment]
	keywordRestricted := false

	matcher := traversal.NewMatcher(r.cs.Keywords, r.cs.KeywordWholeWord)
	if !matcher.Empty() && !matcher.Match(post.Title) {
		keywordRestricted = true
		matches, err := r.walker.Search(ctx, post, traversal.Query{
			Keywords:  r.cs.Keywords,
			WholeWord: r.cs.KeywordWholeWord,
			Need:      r.cs.KeywordMatches,
			Limit:     r.cs.MaxCommentsToScan,
		})
		if err != nil {
			return nil, "", r.commentsError(post, err)
		}
		candidates = func(yield func(*types.Comment) bool) {
			for _, c := range matches.Comments {
				if !yield(c) {
					return
				}
			}
		}
	} else {
		walk, err := r.walker.Walk(ctx, post, r.cs.MaxCommentsToScan)
		if err != nil {
			return nil, "", r.commentsError(post, err)
		}
		candidates = walk
	}

	for c := range candidates {
		if r.ledger.Contains(types.NamespaceUsed, types.CommentKey(c.ID)) {
			continue
		}
		outcome := r.filter.EvaluateComment(post, title, c)
		if outcome.Accepted {
			return c, outcome.Text, nil
		}
	}

	if keywordRestricted {
		return nil, "", r.reject(ctx, post.ID, "comments", "no eligible comment matches the keywords", false)
	}
	return nil, "", r.reject(ctx, post.ID, "comments", "no eligible comment", true)
}

// commentsError passes transient failures through and turns anything else
// into a soft rejection of the post
func (r *run) commentsError(post *types.Post, err error) error {
	if feed.IsTransient(err) {
		return err
	}
	return &RejectedError{ID: types.SanitizeID(post.ID), Stage: "comments", Reason: err.Error()}
}

// emit hands sel to the publisher. A failed hand-off is logged and counted;
// the item stays recorded as used.
func (r *run) emit(ctx context.Context, sel *types.Selection, result *RunResult) {
	r.c.status.SetState(types.StateEmitting)
	if err := r.c.publisher.Publish(ctx, sel); err != nil {
		result.PublishFailures++
		r.c.status.AddLog(fmt.Sprintf("Publish failed for %s: %v", sel.ID, err))
		log.Printf("❌ Publish failed for selection %s: %v", sel.ID, err)
		return
	}
	log.Printf("✅ Iteration %d selected %s (%d segments)", sel.Iteration, sel.ItemID(), len(sel.Segments))
}
