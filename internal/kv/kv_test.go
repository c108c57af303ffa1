package kv

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "a", "1"); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := s.Set(ctx, "b", "2"); err != nil {
		t.Fatalf("set b: %v", err)
	}
	v, err := s.Get(ctx, "a")
	if err != nil || v != "1" {
		t.Fatalf("get a: %q %v", v, err)
	}
	if err := s.Set(ctx, "a", "3"); err != nil {
		t.Fatalf("overwrite a: %v", err)
	}
	if v, _ := s.Get(ctx, "a"); v != "3" {
		t.Fatalf("expected last write to win, got %q", v)
	}
	if err := s.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected b deleted, got %v", err)
	}
	if err := s.Delete(ctx); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedis(client))
}
