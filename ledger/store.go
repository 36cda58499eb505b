package ledger

import (
	"context"
	"errors"
	"fmt"

	"storybot/config"
)

// NewStore opens the Store selected by settings.LedgerBackend
func NewStore(s config.Settings) (Store, error) {
	switch s.LedgerBackend {
	case "", "file":
		return NewFileStore(s.LedgerDir)
	case "sqlite":
		return OpenSQLite(s.LedgerSQLite)
	case "redis":
		return NewRedisStore(RedisConfig{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
			Prefix:   s.LedgerKeyPrefix,
		})
	}
	return nil, fmt.Errorf("unknown ledger backend %q", s.LedgerBackend)
}

// OpenFromSettings opens a fresh store for settings and loads the ledger of
// settings.LedgerSource. The store is closed again if loading fails.
func OpenFromSettings(ctx context.Context, s config.Settings) (*Ledger, error) {
	store, err := NewStore(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	l, err := Open(ctx, store, s.LedgerSource)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return l, nil
}
