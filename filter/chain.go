package filter

import "storybot/types"

// Candidate is the item under evaluation. Title and Text start as the
// upstream values and carry any rewrites applied so far.
type Candidate struct {
	Post    *types.Post
	Comment *types.Comment
	Title   string
	Text    string
}

// Stage is one independent predicate or rewrite in a chain
type Stage interface {
	Name() string
	Evaluate(c *Candidate) Verdict
}

// Outcome is the final decision of a chain
type Outcome struct {
	Accepted  bool
	Stage     string
	Reason    string
	Permanent bool
	Title     string
	Text      string
	Rewrites  []string
}

// Chain runs stages in order, stopping at the first reject and applying
// rewrites before the next stage runs.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain from stages in evaluation order
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Stages returns the stage names in evaluation order
func (ch *Chain) Stages() []string {
	names := make([]string, len(ch.stages))
	for i, s := range ch.stages {
		names[i] = s.Name()
	}
	return names
}

// Evaluate runs the chain over c
func (ch *Chain) Evaluate(c Candidate) Outcome {
	var rewrites []string
	for _, s := range ch.stages {
		v := s.Evaluate(&c)
		switch v.Kind {
		case Reject:
			return Outcome{
				Stage:     s.Name(),
				Reason:    v.Reason,
				Permanent: v.Permanent,
				Title:     c.Title,
				Text:      c.Text,
				Rewrites:  rewrites,
			}
		case Rewrite:
			if v.Field == FieldTitle {
				c.Title = v.Text
			} else {
				c.Text = v.Text
			}
			rewrites = append(rewrites, s.Name())
		}
	}
	return Outcome{Accepted: true, Title: c.Title, Text: c.Text, Rewrites: rewrites}
}
