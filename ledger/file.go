package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"storybot/types"
)

// acquireLock creates lock holding our pid. A lock left behind by a process
// that no longer exists is removed and taken over.
func acquireLock(lock string) error {
	for reclaimed := false; ; reclaimed = true {
		f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			return f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create lock: %w", err)
		}
		if reclaimed || !staleLock(lock) {
			return fmt.Errorf("%w: %s", ErrLocked, lock)
		}
		log.Printf("⚠️  Removing stale ledger lock %s", lock)
		if err := os.Remove(lock); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove stale lock: %w", err)
		}
	}
}

// staleLock reports whether lock names a process that has exited. Unreadable
// locks are treated as live.
func staleLock(lock string) bool {
	data, err := os.ReadFile(lock)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}
	return !processAlive(pid)
}

// fileDoc is the on-disk layout of one source's ledger
type fileDoc struct {
	Used       []types.Record `json:"used"`
	Unsuitable []types.Record `json:"unsuitable"`
}

// FileStore keeps one JSON document per source under dir. Every append
// rewrites the document atomically. Loading a source takes an exclusive lock
// file that is released on Close.
type FileStore struct {
	dir string

	mu    sync.Mutex
	docs  map[string]*fileDoc
	locks map[string]string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("ledger directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		docs:  make(map[string]*fileDoc),
		locks: make(map[string]string),
	}, nil
}

// Path returns the document path for source
func (s *FileStore) Path(source string) string {
	return filepath.Join(s.dir, fileName(source)+".json")
}

func (s *FileStore) Load(ctx context.Context, source string) ([]types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locks[source]; !ok {
		lock := s.Path(source) + ".lock"
		if err := acquireLock(lock); err != nil {
			return nil, err
		}
		s.locks[source] = lock
	}

	doc := &fileDoc{}
	data, err := os.ReadFile(s.Path(source))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read ledger: %w", err)
	default:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("parse ledger %s: %w", s.Path(source), err)
		}
	}
	s.docs[source] = doc

	records := make([]types.Record, 0, len(doc.Used)+len(doc.Unsuitable))
	for _, r := range doc.Used {
		r.Namespace, r.Source = types.NamespaceUsed, source
		records = append(records, r)
	}
	for _, r := range doc.Unsuitable {
		r.Namespace, r.Source = types.NamespaceUnsuitable, source
		records = append(records, r)
	}
	return records, nil
}

func (s *FileStore) Append(ctx context.Context, rec types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[rec.Source]
	if !ok {
		return fmt.Errorf("source %q was not loaded", rec.Source)
	}

	next := *doc
	switch rec.Namespace {
	case types.NamespaceUsed:
		next.Used = append(append([]types.Record(nil), doc.Used...), rec)
	case types.NamespaceUnsuitable:
		next.Unsuitable = append(append([]types.Record(nil), doc.Unsuitable...), rec)
	default:
		return fmt.Errorf("unknown namespace %q", rec.Namespace)
	}

	if err := writeAtomic(s.Path(rec.Source), &next); err != nil {
		return err
	}
	*doc = next
	return nil
}

// Flush is a no-op: every append is already on disk.
func (s *FileStore) Flush(ctx context.Context) error {
	return nil
}

// Close releases every lock taken by Load
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for source, lock := range s.locks {
		if err := os.Remove(lock); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		delete(s.locks, source)
	}
	return errors.Join(errs...)
}

func writeAtomic(path string, doc *fileDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename ledger: %w", err)
	}
	return nil
}

// fileName maps a source id onto a safe file name
func fileName(source string) string {
	var b strings.Builder
	for _, r := range source {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
