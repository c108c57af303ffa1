package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/ghlove/clientcore/internal/kv"
	"github.com/ghlove/clientcore/internal/metrics"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errors.New("disk on fire") }
func (brokenStore) Set(context.Context, string, string) error    { return errors.New("quota exceeded") }
func (brokenStore) Delete(context.Context, ...string) error      { return errors.New("quota exceeded") }

type card struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestRoundTripWithinWindow(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	c := New(kv.NewMemory(), WithClock(clock.Now))
	ctx := context.Background()

	Write(ctx, c, "k", card{Name: "ama", Score: 88})
	clock.Advance(time.Minute)

	got, ok := Read[card](ctx, c, "k", time.Minute)
	if !ok {
		t.Fatal("expected hit at exactly maxAge")
	}
	if got.Name != "ama" || got.Score != 88 {
		t.Fatalf("unexpected value %+v", got)
	}

	clock.Advance(time.Millisecond)
	if _, ok := Read[card](ctx, c, "k", time.Minute); ok {
		t.Fatal("expected miss once savedAt + maxAge has elapsed")
	}
}

func TestMalformedEntriesReadAsMiss(t *testing.T) {
	store := kv.NewMemory()
	c := New(store)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	cases := map[string]string{
		"garbage":       "{not json",
		"wrong-version": `{"v":2,"savedAt":` + itoa(now) + `,"data":{"name":"x"}}`,
		"no-saved-at":   `{"v":1,"data":{"name":"x"}}`,
		"null-data":     `{"v":1,"savedAt":` + itoa(now) + `,"data":null}`,
		"wrong-shape":   `{"v":1,"savedAt":` + itoa(now) + `,"data":"text"}`,
		"empty":         "",
	}
	for key, raw := range cases {
		if err := store.Set(ctx, key, raw); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
		if _, ok := Read[card](ctx, c, key, time.Hour); ok {
			t.Fatalf("%s: expected miss", key)
		}
	}
	if _, ok := Read[card](ctx, c, "absent", time.Hour); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestStoreFailuresAreSwallowed(t *testing.T) {
	c := New(brokenStore{})
	ctx := context.Background()

	Write(ctx, c, "k", card{Name: "kofi"})
	c.Remove(ctx, "k")
	if _, ok := Read[card](ctx, c, "k", time.Hour); ok {
		t.Fatal("expected miss from failing store")
	}
}

func TestRemoveEvicts(t *testing.T) {
	c := New(kv.NewMemory())
	ctx := context.Background()
	Write(ctx, c, "k", 42)
	c.Remove(ctx, "k")
	if _, ok := Read[int](ctx, c, "k", time.Hour); ok {
		t.Fatal("expected miss after remove")
	}
}

func TestKeyNamespacing(t *testing.T) {
	c := New(kv.NewMemory(), WithPrefix("cache:v1"))
	if got := c.Key("user-1", "match_score", "", "peer-2"); got != "cache:v1:user-1:match_score:peer-2" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestRedisBackedCacheCountsLookups(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	m := metrics.New(prometheus.NewRegistry())
	c := New(kv.NewRedis(client), WithMetrics(m))
	ctx := context.Background()

	Write(ctx, c, c.Key("u1", "feed"), []string{"a", "b"})
	got, ok := Read[[]string](ctx, c, c.Key("u1", "feed"), time.Minute)
	if !ok || len(got) != 2 {
		t.Fatalf("expected cached slice, got %v %v", got, ok)
	}
	Read[[]string](ctx, c, c.Key("u2", "feed"), time.Minute)

	if hits := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); hits != 1 {
		t.Fatalf("expected 1 hit, got %v", hits)
	}
	if misses := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); misses != 1 {
		t.Fatalf("expected 1 miss, got %v", misses)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
