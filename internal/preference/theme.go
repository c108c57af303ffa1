// Package preference keeps the process-wide color scheme preference and broadcasts changes.
package preference

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/ghlove/clientcore/internal/kv"
	"github.com/ghlove/clientcore/internal/logging"
	"github.com/ghlove/clientcore/internal/observe"
)

// Theme is a color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

const themeKey = "preference:theme_v1"

// ErrInvalidTheme is returned for values other than light, dark or system.
var ErrInvalidTheme = errors.New("preference: invalid theme")

// ParseTheme accepts a theme name case-insensitively.
func ParseTheme(v string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(v))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", ErrInvalidTheme
	}
}

// Store holds the current theme. Persistence is best effort.
type Store struct {
	value  *observe.Store[Theme]
	logger *slog.Logger

	mu sync.Mutex
	kv kv.Store
}

// NewStore builds a Store starting at ThemeSystem.
func NewStore(store kv.Store, logger *slog.Logger) *Store {
	return &Store{
		value:  observe.NewStore(ThemeSystem),
		kv:     store,
		logger: logging.Component(logger, "preference"),
	}
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide store, creating it in memory on first use. It lives for the
// rest of the process.
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore = NewStore(kv.NewMemory(), nil)
	})
	return defaultStore
}

// Attach switches persistence to store and loads any theme saved there.
func (s *Store) Attach(ctx context.Context, store kv.Store, logger *slog.Logger) Theme {
	s.mu.Lock()
	s.kv = store
	if logger != nil {
		s.logger = logging.Component(logger, "preference")
	}
	s.mu.Unlock()
	return s.Load(ctx)
}

// Load reads the persisted theme. Missing or unreadable values keep the current theme.
func (s *Store) Load(ctx context.Context) Theme {
	s.mu.Lock()
	store := s.kv
	s.mu.Unlock()

	raw, err := store.Get(ctx, themeKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Debug("theme load failed", slog.Any("error", err))
		}
		return s.Theme()
	}
	t, err := ParseTheme(raw)
	if err != nil {
		s.logger.Debug("ignoring persisted theme", slog.String("value", raw))
		return s.Theme()
	}
	s.value.Set(t)
	return t
}

// Theme returns the current theme.
func (s *Store) Theme() Theme {
	return s.value.Get()
}

// Set validates, publishes and persists t.
func (s *Store) Set(ctx context.Context, t Theme) error {
	t, err := ParseTheme(string(t))
	if err != nil {
		return err
	}
	s.value.Set(t)

	s.mu.Lock()
	store := s.kv
	s.mu.Unlock()
	if err := store.Set(ctx, themeKey, string(t)); err != nil {
		s.logger.Debug("theme persist failed", slog.Any("error", err))
	}
	return nil
}

// Subscribe calls fn on every theme change until cancel is called.
func (s *Store) Subscribe(fn func(Theme)) (cancel func()) {
	return s.value.Subscribe(fn)
}
