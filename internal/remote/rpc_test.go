package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ghlove/clientcore/internal/report"
)

type call struct {
	sql  string
	args []any
}

type fakeExec struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{sql: sql, args: args})
	return pgconn.CommandTag{}, f.err
}

type captureReporter struct{ failures []report.Failure }

func (c *captureReporter) Report(_ context.Context, f report.Failure) { c.failures = append(c.failures, f) }

func TestRegisterPushToken(t *testing.T) {
	db := &fakeExec{}
	client := NewClient(db, nil, nil)
	ctx := context.Background()

	client.RegisterPushToken(ctx, PushToken{UserID: "u-1", Token: "ExponentPushToken[abc]", Platform: "ios"})
	client.RegisterPushToken(ctx, PushToken{Token: "orphan", Platform: "ios"})

	if len(db.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(db.calls))
	}
	c := db.calls[0]
	if !strings.Contains(c.sql, "upsert_push_token") {
		t.Fatalf("unexpected sql %s", c.sql)
	}
	if c.args[3] != nil || c.args[4] != nil {
		t.Fatalf("expected empty device id and app version to be null, got %v %v", c.args[3], c.args[4])
	}
}

func TestRecordProfileSignalSkipsInvalidPairs(t *testing.T) {
	db := &fakeExec{}
	client := NewClient(db, nil, nil)
	ctx := context.Background()

	client.RecordProfileSignal(ctx, ProfileSignal{ProfileID: "p-1"})
	client.RecordProfileSignal(ctx, ProfileSignal{TargetProfileID: "p-1"})
	client.RecordProfileSignal(ctx, ProfileSignal{ProfileID: "p-1", TargetProfileID: "p-1"})
	if len(db.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(db.calls))
	}

	liked := true
	client.RecordProfileSignal(ctx, ProfileSignal{ProfileID: "p-1", TargetProfileID: "p-2", OpenedDelta: 1, Liked: &liked})
	if len(db.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(db.calls))
	}
	if got := db.calls[0].args[3].(*bool); got == nil || !*got {
		t.Fatalf("expected liked flag to be passed through")
	}
	if db.calls[0].args[4].(*bool) != nil {
		t.Fatalf("expected unset flag to stay nil")
	}
}

func TestFailuresAreSwallowedAndReported(t *testing.T) {
	db := &fakeExec{err: errors.New("connection reset")}
	rep := &captureReporter{}
	client := NewClient(db, nil, rep)

	client.RecordProfileSignal(context.Background(), ProfileSignal{ProfileID: "p-1", TargetProfileID: "p-2"})
	client.RegisterPushToken(context.Background(), PushToken{UserID: "u-1", Token: "t", Platform: "android"})

	if len(rep.failures) != 2 {
		t.Fatalf("expected two reported failures, got %d", len(rep.failures))
	}
	if rep.failures[1].Operation != "upsert_push_token" || rep.failures[1].UserID != "u-1" {
		t.Fatalf("unexpected failure %+v", rep.failures[1])
	}
}
