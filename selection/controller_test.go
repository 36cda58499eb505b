package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"storybot/config"
	"storybot/feed"
	"storybot/handoff"
	"storybot/ledger"
	"storybot/types"
)

// fakeFeed serves one page of posts from the hot pool
type fakeFeed struct {
	posts    []*types.Post
	comments map[string][]*types.Comment
	// listFailures makes the first n ListPosts calls fail with ErrNetwork
	listFailures int
	listCalls    int
	// onList runs at the start of every ListPosts call
	onList func()
}

func (f *fakeFeed) ListPosts(_ context.Context, l feed.Listing) (feed.Page, error) {
	f.listCalls++
	if f.onList != nil {
		f.onList()
	}
	if f.listFailures > 0 {
		f.listFailures--
		return feed.Page{}, fmt.Errorf("%w: 503 from upstream", feed.ErrNetwork)
	}
	if l.Cursor != "" || l.Sort != "hot" {
		return feed.Page{}, nil
	}
	return feed.Page{Posts: f.posts}, nil
}

func (f *fakeFeed) Search(_ context.Context, _, query string, _ int) ([]*types.Post, error) {
	var out []*types.Post
	for _, p := range f.posts {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFeed) GetPost(_ context.Context, id string) (*types.Post, error) {
	for _, p := range f.posts {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("post %s: %w", id, feed.ErrNotFound)
}

func (f *fakeFeed) GetComments(_ context.Context, postID string) ([]*types.Comment, error) {
	return f.comments[postID], nil
}

// memoryStore is an in-memory ledger.Store with failure injection
type memoryStore struct {
	mu        sync.Mutex
	records   []types.Record
	appendErr error
	// ctxErrors makes Append fail when its context is done
	ctxErrors bool
}

func (m *memoryStore) Load(_ context.Context, source string) ([]types.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Record
	for _, r := range m.records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) Append(ctx context.Context, rec types.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctxErrors && ctx.Err() != nil {
		return ctx.Err()
	}
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) Flush(context.Context) error { return nil }
func (m *memoryStore) Close() error                { return nil }

func (m *memoryStore) has(ns types.Namespace, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Namespace == ns && r.ID == id {
			return true
		}
	}
	return false
}

// recordingPublisher keeps every published selection
type recordingPublisher struct {
	published []*types.Selection
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, sel *types.Selection) error {
	p.published = append(p.published, sel)
	return p.err
}

type harness struct {
	ctrl   *Controller
	feed   *fakeFeed
	store  ledger.Store
	pub    *recordingPublisher
	sleeps []time.Duration
}

func newHarness(f *fakeFeed, store ledger.Store) *harness {
	h := &harness{feed: f, store: store, pub: &recordingPublisher{}}
	h.ctrl = NewController(Config{
		Source: feed.NewSource(f),
		OpenLedger: func(ctx context.Context) (*ledger.Ledger, error) {
			return ledger.Open(ctx, store, "reddit")
		},
		Publisher: h.pub,
	})
	h.ctrl.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func baseConstraints() config.ConstraintSet {
	cs := config.Defaults()
	cs.Subreddits = []string{"stories"}
	cs.SortPools = []string{"hot"}
	return cs
}

func storyConstraints() config.ConstraintSet {
	cs := baseConstraints()
	cs.StoryMode = true
	return cs
}

func story(id string) *types.Post {
	return &types.Post{
		ID:     id,
		Title:  "Story " + id,
		Body:   "It was a dark and stormy night. The lights went out.",
		Source: "stories",
		IsSelf: true,
	}
}

func thread(id string, comments int) *types.Post {
	return &types.Post{ID: id, Title: "Thread " + id, Source: "askreddit", CommentCount: comments}
}

func reply(id, body string) *types.Comment {
	return &types.Comment{ID: id, Body: body, Author: "user_" + id}
}

func selectedIDs(res *RunResult) []string {
	var out []string
	for _, s := range res.Selections {
		out = append(out, s.ItemID())
	}
	return out
}

func TestRunSkipsThreadsWithTooFewComments(t *testing.T) {
	f := &fakeFeed{
		posts: []*types.Post{thread("p1", 10), thread("p2", 8), thread("p3", 20)},
		comments: map[string][]*types.Comment{
			"p3": {reply("c1", "The best advice I ever got was to slow down.")},
		},
	}
	store := &memoryStore{}
	h := newHarness(f, store)

	cs := baseConstraints()
	cs.MinComments = 15
	cs.MaxCommentsToScan = 50
	cs.RedoPerIteration = 2

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Selections) != 1 {
		t.Fatalf("expected one selection, got %d (failures %+v)", len(res.Selections), res.Failures)
	}
	sel := res.Selections[0]
	if sel.PostID != "p3" || sel.CommentID != "c1" || sel.Mode != types.ModeComment {
		t.Fatalf("unexpected selection: %+v", sel)
	}
	for _, id := range []string{"p1", "p2"} {
		if store.has(types.NamespaceUnsuitable, id) {
			t.Fatalf("%s was rejected softly and must not be recorded unsuitable", id)
		}
	}
	if !store.has(types.NamespaceUsed, "t1_c1") {
		t.Fatalf("expected c1 to be recorded used")
	}
}

func TestRunConsumesAttemptsOnDuplicateAndReject(t *testing.T) {
	short := story("short")
	short.Body = "Too short."
	f := &fakeFeed{posts: []*types.Post{story("dup"), short, story("fresh")}}
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: "dup"},
	}}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.RedoPerIteration = 2
	cs.TimesToRun = 1

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 1 || got[0] != "fresh" {
		t.Fatalf("expected [fresh], got %v", got)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", res.Attempts)
	}
	if len(h.pub.published) != 1 {
		t.Fatalf("expected one hand-off, got %d", len(h.pub.published))
	}
	if store.has(types.NamespaceUnsuitable, "short") {
		t.Fatalf("length rejects are soft and must not be recorded")
	}
}

func TestRunFailsIterationWhenAttemptsRunOut(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("dup"), story("fresh")}}
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: "dup"},
	}}
	h := newHarness(f, store)

	res, err := h.ctrl.Run(context.Background(), storyConstraints())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Selections) != 0 || len(res.Failures) != 1 {
		t.Fatalf("expected one failed iteration, got %d selections and %d failures", len(res.Selections), len(res.Failures))
	}
	if f := res.Failures[0]; f.Iteration != 1 || f.Attempts != 1 || !strings.Contains(f.Reasons[0], "duplicate") {
		t.Fatalf("unexpected failure: %+v", f)
	}
}

func TestRunNeverRepeatsAcrossRuns(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1"), story("s2"), story("s3")}}
	store, err := ledger.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.TimesToRun = 2
	cs.RedoPerIteration = 3

	seen := make(map[string]bool)
	for run := 0; run < 3; run++ {
		res, err := h.ctrl.Run(context.Background(), cs)
		if err != nil {
			t.Fatalf("run %d returned error: %v", run, err)
		}
		for _, id := range selectedIDs(res) {
			if seen[id] {
				t.Fatalf("run %d re-selected %s", run, id)
			}
			seen[id] = true
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected every story selected exactly once, got %v", seen)
	}
}

func TestRunSelectsFreshStoryEveryIteration(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1"), story("s2"), story("s3")}}
	h := newHarness(f, &memoryStore{})

	cs := storyConstraints()
	cs.TimesToRun = 3

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); strings.Join(got, ",") != "s1,s2,s3" {
		t.Fatalf("expected [s1 s2 s3], got %v (failures %+v)", got, res.Failures)
	}
	if res.Attempts != 3 {
		t.Fatalf("expected one attempt per iteration, got %d", res.Attempts)
	}
}

func TestRunDuplicateCostsOneAttemptPerRun(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("dup"), story("s1"), story("s2")}}
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: "dup"},
	}}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.TimesToRun = 3

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); strings.Join(got, ",") != "s1,s2" {
		t.Fatalf("expected [s1 s2], got %v", got)
	}
	if len(res.Failures) != 1 || res.Failures[0].Iteration != 1 {
		t.Fatalf("expected only the first iteration to fail on the duplicate, got %+v", res.Failures)
	}
}

func TestRunUsedCommentDoesNotHideStory(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("abc")}}
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: types.CommentKey("abc")},
	}}
	h := newHarness(f, store)

	res, err := h.ctrl.Run(context.Background(), storyConstraints())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 1 || got[0] != "abc" {
		t.Fatalf("expected story abc to be selected, got %v (failures %+v)", got, res.Failures)
	}
	if !store.has(types.NamespaceUsed, "abc") {
		t.Fatal("expected the story to be recorded under its own key")
	}
}

func TestRunRecordsDespiteCancelMidIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFeed{posts: []*types.Post{story("s1"), story("s2")}, onList: cancel}
	store := &memoryStore{ctxErrors: true}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.TimesToRun = 2

	res, err := h.ctrl.Run(ctx, cs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ledger.ErrIO) {
		t.Fatalf("cancellation must not be reported as a ledger failure: %v", err)
	}
	if len(res.Selections) != 1 || !store.has(types.NamespaceUsed, "s1") {
		t.Fatalf("expected the running iteration to record s1, got %+v", res)
	}
}

func TestRunSkipsUnsuitableWithoutConsumingAttempts(t *testing.T) {
	nsfw := story("nsfw")
	nsfw.NSFW = true
	f := &fakeFeed{posts: []*types.Post{nsfw, story("ok1"), story("ok2")}}
	store := &memoryStore{}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.RedoPerIteration = 1

	first, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	if !store.has(types.NamespaceUnsuitable, "nsfw") {
		t.Fatalf("expected nsfw to be recorded unsuitable")
	}
	if first.Attempts != 2 {
		t.Fatalf("expected the nsfw reject to consume an attempt, got %d attempts", first.Attempts)
	}

	f.posts = []*types.Post{nsfw, story("ok2")}
	second, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}
	if second.Attempts != 1 {
		t.Fatalf("expected the unsuitable post to be skipped for free, got %d attempts", second.Attempts)
	}
	if got := selectedIDs(second); len(got) != 1 || got[0] != "ok2" {
		t.Fatalf("expected [ok2], got %v", got)
	}
}

func TestRunBacksOffOnTransientErrors(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1")}, listFailures: 2}
	h := newHarness(f, &memoryStore{})

	cs := storyConstraints()
	cs.RedoPerIteration = 2
	cs.Backoff = 100 * time.Millisecond

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Selections) != 1 || res.Attempts != 3 {
		t.Fatalf("expected success on the third attempt, got %d selections in %d attempts", len(res.Selections), res.Attempts)
	}
	if len(h.sleeps) != 2 {
		t.Fatalf("expected two backoff sleeps, got %v", h.sleeps)
	}
	if h.sleeps[1] <= h.sleeps[0]/2 {
		t.Fatalf("expected backoff to grow, got %v", h.sleeps)
	}
}

func TestRunAbortsOnLedgerFailure(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1"), story("s2")}}
	store := &memoryStore{appendErr: errors.New("disk full")}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.TimesToRun = 2

	res, err := h.ctrl.Run(context.Background(), cs)
	if !errors.Is(err, ledger.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
	if res == nil || len(res.Selections) != 0 {
		t.Fatalf("expected an empty partial result, got %+v", res)
	}
	if len(h.pub.published) != 0 {
		t.Fatalf("nothing may be handed off before it is recorded")
	}
	if got := h.ctrl.Status().State(); got != types.StateError {
		t.Fatalf("expected error state, got %s", got)
	}
}

func TestRunSpecificNotFoundFailsIteration(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1")}}
	h := newHarness(f, &memoryStore{})

	cs := storyConstraints()
	cs.PostIDs = []string{"missing"}
	cs.RedoPerIteration = 3

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Attempts != 1 {
		t.Fatalf("expected the iteration to fail on its first attempt, got %+v", res.Failures)
	}
	if len(h.sleeps) != 0 {
		t.Fatalf("not-found must not back off")
	}
}

func TestRunSpecificSkipsUsedUnlessRepeatAllowed(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("a"), story("b")}}
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: "a"},
	}}
	h := newHarness(f, store)

	cs := storyConstraints()
	cs.PostIDs = []string{"a", "b"}

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected [b], got %v", got)
	}

	cs.AllowRepeatSpecific = true
	cs.PostIDs = []string{"a"}
	res, err = h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected explicit repeat of a, got %v", got)
	}
}

func TestRunRecordsThreadWithoutEligibleComments(t *testing.T) {
	f := &fakeFeed{
		posts: []*types.Post{thread("p1", 30), thread("p2", 30)},
		comments: map[string][]*types.Comment{
			"p1": {reply("gone", "[deleted]"), reply("used", "Already narrated this one.")},
			"p2": {reply("c2", "A perfectly good answer.")},
		},
	}
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: "t1_used"},
	}}
	h := newHarness(f, store)

	cs := baseConstraints()
	cs.RedoPerIteration = 1

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 1 || got[0] != "c2" {
		t.Fatalf("expected [c2], got %v", got)
	}
	if !store.has(types.NamespaceUnsuitable, "p1") {
		t.Fatalf("expected exhausted thread p1 to be recorded unsuitable")
	}
}

func TestRunKeywordInTitleWalksEveryComment(t *testing.T) {
	post := thread("p1", 30)
	post.Title = "Your scariest ghost encounter?"
	f := &fakeFeed{
		posts: []*types.Post{post},
		comments: map[string][]*types.Comment{
			"p1": {
				reply("c1", "Nothing interesting here."),
				{ID: "c2", Body: "I once saw a ghost in the attic.", Author: "op", Replies: []*types.Comment{
					reply("c3", "Another ghost story."),
				}},
			},
		},
	}
	h := newHarness(f, &memoryStore{})

	cs := baseConstraints()
	cs.Subreddits = []string{"askreddit"}
	cs.Keywords = []string{"ghost"}
	cs.TimesToRun = 2

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Fatalf("expected breadth-first order [c1 c2], got %v", got)
	}
}

func TestRunKeywordRestrictsCommentsWhenTitleLacksKeyword(t *testing.T) {
	post := thread("p1", 30)
	post.Title = "What happened to you?"
	f := &fakeFeed{
		posts: []*types.Post{post},
		comments: map[string][]*types.Comment{
			"p1": {
				reply("c1", "Nothing interesting here."),
				{ID: "c2", Body: "We moved out.", Author: "op", Replies: []*types.Comment{
					reply("c3", "I once saw a ghost in the attic."),
				}},
			},
		},
	}
	h := newHarness(f, &memoryStore{})

	cs := baseConstraints()
	cs.Subreddits = []string{"askreddit"}
	cs.Keywords = []string{"ghost"}
	cs.PostIDs = []string{"p1"}

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := selectedIDs(res); len(got) != 1 || got[0] != "c3" {
		t.Fatalf("expected the matching comment c3, got %v", got)
	}
}

func TestRunPublishFailureKeepsRecord(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1")}}
	store := &memoryStore{}
	h := newHarness(f, store)
	h.pub.err = errors.New("broker down")

	res, err := h.ctrl.Run(context.Background(), storyConstraints())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.PublishFailures != 1 || len(res.Selections) != 1 {
		t.Fatalf("expected one selection with a failed hand-off, got %+v", res)
	}
	if !store.has(types.NamespaceUsed, "s1") {
		t.Fatalf("a failed hand-off must not un-record the item")
	}
}

func TestRunSegmentsSelection(t *testing.T) {
	s := story("s1")
	s.Body = "This is a short story. It has two sentences and enough length."
	f := &fakeFeed{posts: []*types.Post{s}}
	h := newHarness(f, &memoryStore{})

	cs := storyConstraints()
	cs.MaxWordsPerSegment = 4

	res, err := h.ctrl.Run(context.Background(), cs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	segs := res.Selections[0].Segments
	if strings.Join(segs, " ") != s.Body {
		t.Fatalf("segments do not rejoin to the body: %q", segs)
	}
	for _, seg := range segs {
		if n := len(strings.Fields(seg)); n > 4 {
			t.Fatalf("segment %q has %d words", seg, n)
		}
	}
}

func TestRunStopsAtIterationBoundaryOnCancel(t *testing.T) {
	f := &fakeFeed{posts: []*types.Post{story("s1"), story("s2"), story("s3")}}
	h := newHarness(f, &memoryStore{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.ctrl.publisher = handoff.PublisherFunc(func(context.Context, *types.Selection) error {
		cancel()
		return nil
	})

	cs := storyConstraints()
	cs.TimesToRun = 3

	res, err := h.ctrl.Run(ctx, cs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(res.Selections) != 1 {
		t.Fatalf("expected the running iteration to finish, got %d selections", len(res.Selections))
	}
}

func TestRunRejectsInvalidConstraints(t *testing.T) {
	h := newHarness(&fakeFeed{}, &memoryStore{})
	cs := storyConstraints()
	cs.TimesToRun = 0

	_, err := h.ctrl.Run(context.Background(), cs)
	var cfgErr *config.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if h.feed.listCalls != 0 {
		t.Fatalf("no upstream call may happen before validation passes")
	}
}

func TestRunRefusesConcurrentRuns(t *testing.T) {
	h := newHarness(&fakeFeed{}, &memoryStore{})
	h.ctrl.status.SetState(types.StateFetching)

	if _, err := h.ctrl.Run(context.Background(), storyConstraints()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}
