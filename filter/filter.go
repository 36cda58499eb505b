package filter

import (
	"storybot/config"
	"storybot/types"
)

// Filter holds the post and comment chains built from one ConstraintSet
type Filter struct {
	posts    *Chain
	comments *Chain
}

// New builds the chains for cs.
//
// Post chain: nsfw, language, pinned, engagement (comment mode), length (story
// mode), redaction, tag stripping.
// Comment chain: removed, length, redaction, blank.
func New(cs config.ConstraintSet, redactor *Redactor) *Filter {
	posts := []Stage{
		NSFW{Allow: cs.AllowNSFW},
		Language{Target: cs.Language},
		Pinned{},
	}
	if cs.StoryMode {
		posts = append(posts,
			Length{Min: cs.StoryMinLength, Max: cs.StoryMaxLength, RequireSelf: true},
			Redact{Redactor: redactor, Field: FieldText},
		)
	} else {
		posts = append(posts, Engagement{Min: cs.MinComments, Max: cs.MaxCommentsForPost})
	}
	posts = append(posts,
		Redact{Redactor: redactor, Field: FieldTitle},
		Tags{},
	)

	comments := []Stage{
		Removed{},
		Length{Min: cs.MinCommentLength, Max: cs.MaxCommentLength},
		Redact{Redactor: redactor, Field: FieldText},
		Blank{},
	}

	return &Filter{posts: NewChain(posts...), comments: NewChain(comments...)}
}

// EvaluatePost runs the post chain
func (f *Filter) EvaluatePost(p *types.Post) Outcome {
	return f.posts.Evaluate(Candidate{Post: p, Title: p.Title, Text: p.Body})
}

// EvaluateComment runs the comment chain. title is the already-filtered post title.
func (f *Filter) EvaluateComment(p *types.Post, title string, c *types.Comment) Outcome {
	return f.comments.Evaluate(Candidate{Post: p, Comment: c, Title: title, Text: c.Body})
}
