package feed

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"storybot/config"
	"storybot/types"
)

// Mode selects how candidates are produced
type Mode string

const (
	ModeRandom        Mode = "random"
	ModeSpecific      Mode = "specific"
	ModeKeywordSearch Mode = "keyword"
)

// ModeFor picks the mode implied by cs: explicit post ids win over keywords,
// which win over browsing listing pools.
func ModeFor(cs config.ConstraintSet) Mode {
	switch {
	case len(cs.PostIDs) > 0:
		return ModeSpecific
	case len(cs.Keywords) > 0:
		return ModeKeywordSearch
	default:
		return ModeRandom
	}
}

// TopWindows is the order in which the top pool is widened
var TopWindows = []string{"day", "week", "month", "year", "all"}

// Source turns a Feed into lazy candidate sequences
type Source struct {
	feed Feed
}

// NewSource creates a Source over f
func NewSource(f Feed) *Source {
	return &Source{feed: f}
}

// Feed returns the underlying feed
func (s *Source) Feed() Feed {
	return s.feed
}

// Fetch returns the candidates for mode. Nothing is requested upstream until
// the sequence is ranged over, and paging stops as soon as the consumer stops.
// An error is yielded once and ends the sequence.
func (s *Source) Fetch(ctx context.Context, mode Mode, cs config.ConstraintSet) iter.Seq2[*types.Post, error] {
	switch mode {
	case ModeSpecific:
		return s.specific(ctx, cs)
	case ModeKeywordSearch:
		return s.keywordSearch(ctx, cs)
	default:
		return s.random(ctx, cs)
	}
}

func (s *Source) call(ctx context.Context, cs config.ConstraintSet) (context.Context, context.CancelFunc) {
	if cs.FetchTimeout > 0 {
		return context.WithTimeout(ctx, cs.FetchTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Source) random(ctx context.Context, cs config.ConstraintSet) iter.Seq2[*types.Post, error] {
	return func(yield func(*types.Post, error) bool) {
		source := strings.Join(cs.Subreddits, "+")
		seen := make(map[string]bool)

		for _, pl := range expandPools(cs.SortPools) {
			yielded := 0
			cursor := ""
			for {
				limit := cs.PoolLimit - yielded
				if limit <= 0 {
					break
				}
				cctx, cancel := s.call(ctx, cs)
				page, err := s.feed.ListPosts(cctx, Listing{
					Source: source,
					Sort:   pl.sort,
					Window: pl.window,
					Cursor: cursor,
					Limit:  limit,
				})
				cancel()
				if err != nil {
					yield(nil, fmt.Errorf("list %s/%s: %w", source, pl, err))
					return
				}

				for _, p := range page.Posts {
					if seen[p.ID] {
						continue
					}
					seen[p.ID] = true
					yielded++
					if !yield(p, nil) {
						return
					}
					if yielded >= cs.PoolLimit {
						break
					}
				}
				if page.Next == "" || len(page.Posts) == 0 {
					break
				}
				cursor = page.Next
			}
		}
	}
}

type pool struct {
	sort   string
	window string
}

func (p pool) String() string {
	if p.window == "" {
		return p.sort
	}
	return p.sort + ":" + p.window
}

// expandPools widens "top" into one pool per time window
func expandPools(sorts []string) []pool {
	var out []pool
	for _, s := range sorts {
		if s == "top" {
			for _, w := range TopWindows {
				out = append(out, pool{sort: s, window: w})
			}
			continue
		}
		out = append(out, pool{sort: s})
	}
	return out
}

func (s *Source) specific(ctx context.Context, cs config.ConstraintSet) iter.Seq2[*types.Post, error] {
	return func(yield func(*types.Post, error) bool) {
		for _, id := range cs.PostIDs {
			cctx, cancel := s.call(ctx, cs)
			p, err := s.feed.GetPost(cctx, id)
			cancel()
			if err != nil {
				yield(nil, fmt.Errorf("get post %s: %w", id, err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// keywordSearch issues one query per keyword and merges the results by
// relevance rank, breaking ties by keyword order. A post returned for several
// keywords keeps its first position.
func (s *Source) keywordSearch(ctx context.Context, cs config.ConstraintSet) iter.Seq2[*types.Post, error] {
	return func(yield func(*types.Post, error) bool) {
		source := strings.Join(cs.Subreddits, "+")
		results := make([][]*types.Post, 0, len(cs.Keywords))
		for _, kw := range cs.Keywords {
			cctx, cancel := s.call(ctx, cs)
			posts, err := s.feed.Search(cctx, source, kw, cs.SearchLimit)
			cancel()
			if err != nil {
				yield(nil, fmt.Errorf("search %q in %s: %w", kw, source, err))
				return
			}
			results = append(results, posts)
		}

		for _, p := range MergeByRank(results) {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// MergeByRank interleaves ranked result lists: every list's first result in
// list order, then every list's second result, and so on, dropping ids that
// were already taken.
func MergeByRank(lists [][]*types.Post) []*types.Post {
	var out []*types.Post
	seen := make(map[string]bool)
	for rank := 0; ; rank++ {
		more := false
		for _, l := range lists {
			if rank >= len(l) {
				continue
			}
			more = true
			if p := l[rank]; p != nil && !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
		if !more {
			return out
		}
	}
}
