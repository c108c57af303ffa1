package infra

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestDetectWithoutConfiguration(t *testing.T) {
	b := Detect(context.Background(), "", "", time.Second)
	if b.Postgres.Available() || b.Redis.Available() {
		t.Fatal("expected both backends unavailable")
	}
	if !strings.Contains(b.Redis.Reason(), "not configured") {
		t.Fatalf("unexpected reason %q", b.Redis.Reason())
	}
	if err := b.Require(true); err != nil {
		t.Fatalf("fallback allowed, got %v", err)
	}
	err := b.Require(false)
	if err == nil || !strings.Contains(err.Error(), "postgres required") || !strings.Contains(err.Error(), "redis required") {
		t.Fatalf("expected both backends to be required, got %v", err)
	}
}

func TestDetectRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	b := Detect(context.Background(), "", "redis://"+mr.Addr(), time.Second)
	defer b.Close()

	client, ok := b.Redis.Get()
	if !ok {
		t.Fatalf("expected redis available: %s", b.Redis.Reason())
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestDetectBadURL(t *testing.T) {
	b := Detect(context.Background(), "postgres://%zz", "not-a-url", time.Second)
	if b.Postgres.Available() || b.Redis.Available() {
		t.Fatal("expected malformed urls to be unavailable")
	}
}
