package preference

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghlove/clientcore/internal/kv"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("down") }
func (failingStore) Set(context.Context, string, string) error    { return errors.New("down") }
func (failingStore) Delete(context.Context, ...string) error      { return errors.New("down") }

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme(" Dark ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, th)

	_, err = ParseTheme("sepia")
	assert.ErrorIs(t, err, ErrInvalidTheme)
}

func TestSetNotifiesOnlyOnChange(t *testing.T) {
	s := NewStore(kv.NewMemory(), nil)
	ctx := context.Background()

	var seen []Theme
	cancel := s.Subscribe(func(th Theme) { seen = append(seen, th) })

	require.NoError(t, s.Set(ctx, ThemeDark))
	require.NoError(t, s.Set(ctx, ThemeDark))
	require.NoError(t, s.Set(ctx, ThemeLight))
	cancel()
	require.NoError(t, s.Set(ctx, ThemeSystem))

	assert.Equal(t, []Theme{ThemeDark, ThemeLight}, seen)
	assert.ErrorIs(t, s.Set(ctx, Theme("neon")), ErrInvalidTheme)
	assert.Equal(t, ThemeSystem, s.Theme())
}

func TestAttachLoadsPersistedTheme(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, mr.Set(themeKey, "light"))
	s := NewStore(kv.NewMemory(), nil)
	assert.Equal(t, ThemeLight, s.Attach(ctx, kv.NewRedis(client), nil))

	require.NoError(t, s.Set(ctx, ThemeDark))
	got, err := mr.Get(themeKey)
	require.NoError(t, err)
	assert.Equal(t, "dark", got)
}

func TestPersistenceFailuresAreSwallowed(t *testing.T) {
	s := NewStore(failingStore{}, nil)
	ctx := context.Background()
	assert.Equal(t, ThemeSystem, s.Load(ctx))
	assert.NoError(t, s.Set(ctx, ThemeDark))
	assert.Equal(t, ThemeDark, s.Theme())
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
