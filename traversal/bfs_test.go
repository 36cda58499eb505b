package traversal

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"storybot/types"
)

func node(id string, replies ...*types.Comment) *types.Comment {
	return &types.Comment{ID: id, Body: "comment " + id, Replies: replies}
}

// forest:
//
//	a          b
//	├─ a1      └─ b1
//	│  └─ a1x     └─ b1x
//	└─ a2
func sampleForest() []*types.Comment {
	return []*types.Comment{
		node("a", node("a1", node("a1x")), node("a2")),
		node("b", node("b1", node("b1x"))),
	}
}

func collect(roots []*types.Comment, limit int) ([]string, []int) {
	var ids []string
	var depths []int
	for c := range Traverse(roots, limit) {
		ids = append(ids, c.ID)
		depths = append(depths, c.Depth)
	}
	return ids, depths
}

func TestTraverseBreadthFirstOrder(t *testing.T) {
	ids, depths := collect(sampleForest(), 0)

	wantIDs := []string{"a", "b", "a1", "a2", "b1", "a1x", "b1x"}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Fatalf("order = %v, want %v", ids, wantIDs)
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] < depths[i-1] {
			t.Fatalf("depth decreased at %d: %v", i, depths)
		}
	}
}

func TestTraverseFillsParentAndDepth(t *testing.T) {
	roots := sampleForest()
	for c := range Traverse(roots, 0) {
		if c.ID == "a1x" {
			if c.ParentID != "a1" || c.Depth != 2 {
				t.Fatalf("unexpected position for a1x: parent=%q depth=%d", c.ParentID, c.Depth)
			}
		}
		if c.ID == "a" && c.ParentID != "" {
			t.Fatalf("root should have no parent, got %q", c.ParentID)
		}
	}
}

func TestTraverseRespectsLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  []string
	}{
		{1, []string{"a"}},
		{3, []string{"a", "b", "a1"}},
		{7, []string{"a", "b", "a1", "a2", "b1", "a1x", "b1x"}},
		{100, []string{"a", "b", "a1", "a2", "b1", "a1x", "b1x"}},
	}
	for _, tt := range tests {
		ids, _ := collect(sampleForest(), tt.limit)
		if !reflect.DeepEqual(ids, tt.want) {
			t.Fatalf("limit %d: got %v, want %v", tt.limit, ids, tt.want)
		}
	}
}

func TestTraverseSkipsDuplicatesAndCycles(t *testing.T) {
	shared := node("dup")
	a := node("a", shared)
	b := node("b", shared, node("dup"))
	a.Replies = append(a.Replies, a)

	ids, _ := collect([]*types.Comment{a, b, nil}, 0)
	want := []string{"a", "b", "dup"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
}

func TestTraverseStopsWhenConsumerStops(t *testing.T) {
	count := 0
	for range Traverse(sampleForest(), 0) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("expected to stop after 2, got %d", count)
	}
}

func TestFindMatchesStopsEarly(t *testing.T) {
	roots := []*types.Comment{
		{ID: "1", Body: "nothing here", Replies: []*types.Comment{
			{ID: "3", Body: "A GHOST story"},
		}},
		{ID: "2", Body: "my house is haunted"},
		{ID: "4", Body: "ghostly"},
	}

	res := FindMatches(roots, Query{Keywords: []string{"ghost", "haunted"}, Need: 1})
	if len(res.Comments) != 1 || res.Comments[0].ID != "2" {
		t.Fatalf("expected shallow match 2 first, got %+v", res.Comments)
	}
	if res.Visited != 2 || !res.Truncated {
		t.Fatalf("expected early stop after 2 visits, got visited=%d truncated=%v", res.Visited, res.Truncated)
	}
}

func TestFindMatchesLimit(t *testing.T) {
	roots := []*types.Comment{
		{ID: "1", Body: "no"},
		{ID: "2", Body: "no"},
		{ID: "3", Body: "ghost"},
	}
	res := FindMatches(roots, Query{Keywords: []string{"ghost"}, Limit: 2})
	if len(res.Comments) != 0 {
		t.Fatalf("expected no matches within limit, got %d", len(res.Comments))
	}
	if res.Visited != 2 || !res.Truncated {
		t.Fatalf("expected limit to truncate after 2, got visited=%d truncated=%v", res.Visited, res.Truncated)
	}
}

func TestMatcherWholeWord(t *testing.T) {
	tests := []struct {
		name      string
		wholeWord bool
		text      string
		want      bool
	}{
		{"sub-word hit", false, "a ghostly figure", true},
		{"whole-word miss", true, "a ghostly figure", false},
		{"whole-word hit", true, "it was a Ghost!", true},
		{"whole-word later occurrence", true, "ghostly, then a ghost", true},
		{"no match", true, "nothing to see", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher([]string{"ghost"}, tt.wholeWord)
			if got := m.Match(tt.text); got != tt.want {
				t.Fatalf("Match(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

type fakeFetcher struct {
	roots []*types.Comment
	err   error
}

func (f *fakeFetcher) GetComments(ctx context.Context, postID string) ([]*types.Comment, error) {
	return f.roots, f.err
}

func TestWalkerWalkAndSearch(t *testing.T) {
	w := NewWalker(&fakeFetcher{roots: sampleForest()}, 0)
	post := &types.Post{ID: "p1"}

	seq, err := w.Walk(context.Background(), post, 2)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	var ids []string
	for c := range seq {
		ids = append(ids, c.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b"}) {
		t.Fatalf("unexpected walk %v", ids)
	}

	res, err := w.Search(context.Background(), post, Query{Keywords: []string{"b1x"}})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(res.Comments) != 1 || res.Comments[0].ID != "b1x" {
		t.Fatalf("unexpected matches %+v", res.Comments)
	}
}

func TestWalkerWrapsFetchError(t *testing.T) {
	boom := errors.New("boom")
	w := NewWalker(&fakeFetcher{err: boom}, 0)
	if _, err := w.Walk(context.Background(), &types.Post{ID: "p"}, 0); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
