// Package ledger keeps the durable record of narrated and permanently
// disqualified item ids.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"storybot/types"
)

var (
	// ErrIO wraps every storage failure. Without durable dedup state a run
	// cannot continue.
	ErrIO = errors.New("ledger io error")
	// ErrClosed is returned by Record after Close
	ErrClosed = errors.New("ledger closed")
	// ErrLocked is returned when another writer owns the ledger
	ErrLocked = errors.New("ledger locked by another writer")
)

// Store persists ledger records for one or more sources
type Store interface {
	// Load returns every record stored for source
	Load(ctx context.Context, source string) ([]types.Record, error)
	// Append durably stores rec before returning
	Append(ctx context.Context, rec types.Record) error
	// Flush forces any buffered state to durable storage
	Flush(ctx context.Context) error
	Close() error
}

// Ledger is the in-memory view of one source's records, backed by a Store.
// It is safe for concurrent readers; a single writer is assumed.
type Ledger struct {
	store  Store
	source string
	now    func() time.Time

	mu     sync.RWMutex
	sets   map[types.Namespace]map[string]types.Record
	closed bool
}

// Open loads every record for source into memory
func Open(ctx context.Context, store Store, source string) (*Ledger, error) {
	records, err := store.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrIO, source, err)
	}

	l := &Ledger{
		store:  store,
		source: source,
		now:    time.Now,
		sets: map[types.Namespace]map[string]types.Record{
			types.NamespaceUsed:       {},
			types.NamespaceUnsuitable: {},
		},
	}
	for _, rec := range records {
		if set, ok := l.sets[rec.Namespace]; ok {
			set[types.SanitizeID(rec.ID)] = rec
		}
	}
	return l, nil
}

// Source returns the source id this ledger is keyed by
func (l *Ledger) Source() string {
	return l.source
}

// Contains reports whether id is recorded in ns
func (l *Ledger) Contains(ns types.Namespace, id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.sets[ns][types.SanitizeID(id)]
	return ok
}

// Record durably adds id to ns. Recording an id that is already present is a
// no-op. Storage failures wrap ErrIO.
func (l *Ledger) Record(ctx context.Context, ns types.Namespace, id, reason string) error {
	if !ns.Valid() {
		return fmt.Errorf("unknown namespace %q", ns)
	}
	key := types.SanitizeID(id)
	if key == "" {
		return fmt.Errorf("record %s: empty id %q", ns, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, ok := l.sets[ns][key]; ok {
		return nil
	}

	rec := types.Record{
		Namespace: ns,
		Source:    l.source,
		ID:        key,
		Reason:    reason,
		Timestamp: l.now().UTC(),
	}
	if err := l.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("%w: record %s/%s: %w", ErrIO, ns, key, err)
	}
	l.sets[ns][key] = rec
	return nil
}

// Count returns the number of ids in ns
func (l *Ledger) Count(ns types.Namespace) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.sets[ns])
}

// Records returns the records of ns, oldest first
func (l *Ledger) Records(ns types.Namespace) []types.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.Record, 0, len(l.sets[ns]))
	for _, rec := range l.sets[ns] {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Close flushes and closes the store. It is safe to call more than once.
func (l *Ledger) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if err := l.store.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: flush: %w", ErrIO, err))
	}
	if err := l.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("%w: close: %w", ErrIO, err))
	}
	return errors.Join(errs...)
}
