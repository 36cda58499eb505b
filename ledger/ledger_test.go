package ledger

import (
	"context"
	"errors"
	"testing"

	"storybot/types"
)

// memoryStore is an in-memory Store with failure injection
type memoryStore struct {
	records   []types.Record
	appends   int
	appendErr error
	loadErr   error
	flushed   int
	closed    int
}

func (m *memoryStore) Load(ctx context.Context, source string) ([]types.Record, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []types.Record
	for _, r := range m.records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) Append(ctx context.Context, rec types.Record) error {
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) Flush(ctx context.Context) error {
	m.flushed++
	return nil
}

func (m *memoryStore) Close() error {
	m.closed++
	return nil
}

func TestOpenLoadsExistingRecords(t *testing.T) {
	store := &memoryStore{records: []types.Record{
		{Namespace: types.NamespaceUsed, Source: "reddit", ID: "abc"},
		{Namespace: types.NamespaceUnsuitable, Source: "reddit", ID: "def"},
		{Namespace: types.NamespaceUsed, Source: "other", ID: "zzz"},
	}}

	l, err := Open(context.Background(), store, "reddit")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if !l.Contains(types.NamespaceUsed, "abc") || !l.Contains(types.NamespaceUsed, "t3_abc") {
		t.Fatal("expected abc in used (with and without kind prefix)")
	}
	if l.Contains(types.NamespaceUnsuitable, "abc") {
		t.Fatal("namespaces must be disjoint")
	}
	if !l.Contains(types.NamespaceUnsuitable, "def") {
		t.Fatal("expected def in unsuitable")
	}
	if l.Contains(types.NamespaceUsed, "zzz") {
		t.Fatal("records of other sources must not be loaded")
	}
}

func TestCommentAndPostKeysDoNotCollide(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, &memoryStore{}, "reddit")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if err := l.Record(ctx, types.NamespaceUsed, types.CommentKey("abc"), "comment narrated"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if l.Contains(types.NamespaceUsed, "abc") || l.Contains(types.NamespaceUsed, "t3_abc") {
		t.Fatal("a used comment must not hide the post with the same base id")
	}
	if !l.Contains(types.NamespaceUsed, "t1_abc") {
		t.Fatal("expected the comment key to be recorded")
	}
}

func TestRecordIsDurableBeforeVisible(t *testing.T) {
	boom := errors.New("disk full")
	store := &memoryStore{appendErr: boom}
	l, err := Open(context.Background(), store, "reddit")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	err = l.Record(context.Background(), types.NamespaceUsed, "abc", "")
	if !errors.Is(err, ErrIO) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrIO wrapping the store error, got %v", err)
	}
	if l.Contains(types.NamespaceUsed, "abc") {
		t.Fatal("failed write must not be visible")
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	store := &memoryStore{}
	l, _ := Open(context.Background(), store, "reddit")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Record(ctx, types.NamespaceUsed, "abc", "narrated"); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}
	if store.appends != 1 {
		t.Fatalf("expected a single append, got %d", store.appends)
	}
	if err := l.Record(ctx, types.NamespaceUnsuitable, "abc", "nsfw"); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if l.Count(types.NamespaceUsed) != 1 || l.Count(types.NamespaceUnsuitable) != 1 {
		t.Fatalf("unexpected counts used=%d unsuitable=%d", l.Count(types.NamespaceUsed), l.Count(types.NamespaceUnsuitable))
	}
}

func TestRecordValidation(t *testing.T) {
	l, _ := Open(context.Background(), &memoryStore{}, "reddit")
	if err := l.Record(context.Background(), "bogus", "abc", ""); err == nil {
		t.Fatal("expected error for unknown namespace")
	}
	if err := l.Record(context.Background(), types.NamespaceUsed, " !! ", ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestOpenLoadFailureIsIOError(t *testing.T) {
	_, err := Open(context.Background(), &memoryStore{loadErr: errors.New("unreachable")}, "reddit")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestCloseFlushesOnce(t *testing.T) {
	store := &memoryStore{}
	l, _ := Open(context.Background(), store, "reddit")

	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
	if store.flushed != 1 || store.closed != 1 {
		t.Fatalf("expected one flush and close, got %d/%d", store.flushed, store.closed)
	}
	if err := l.Record(context.Background(), types.NamespaceUsed, "abc", ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRecordsOldestFirst(t *testing.T) {
	l, _ := Open(context.Background(), &memoryStore{}, "reddit")
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		if err := l.Record(ctx, types.NamespaceUsed, id, ""); err != nil {
			t.Fatal(err)
		}
	}
	recs := l.Records(types.NamespaceUsed)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Timestamp.Before(recs[i-1].Timestamp) {
			t.Fatalf("records out of order: %+v", recs)
		}
	}
}
