package profile

import (
	"context"
	"errors"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestLoadMissingProfileIsNil(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	p, err := svc.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

func TestPhoneStatusPrecedence(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		profile *Profile
		rpc     PhoneStatus
		want    PhoneStatus
	}{
		{
			name:    "verified column wins",
			profile: &Profile{UserID: "u", PhoneVerified: boolPtr(true)},
			rpc:     PhoneStatus{Verified: false, Known: true},
			want:    PhoneStatus{Verified: true, Known: true},
		},
		{
			name:    "rpc answers when column is false",
			profile: &Profile{UserID: "u", PhoneVerified: boolPtr(false)},
			rpc:     PhoneStatus{Verified: true, Known: true},
			want:    PhoneStatus{Verified: true, Known: true},
		},
		{
			name:    "explicit false column when rpc unknown",
			profile: &Profile{UserID: "u", PhoneVerified: boolPtr(false)},
			want:    PhoneStatus{Verified: false, Known: true},
		},
		{
			name: "no row and no rpc answer is unknown",
			want: PhoneStatus{},
		},
		{
			name:    "null column and no rpc answer is unknown",
			profile: &Profile{UserID: "u"},
			want:    PhoneStatus{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			if tt.profile != nil {
				repo.Put(*tt.profile)
			}
			repo.SetPhoneStatus("u", tt.rpc)
			got, err := NewService(repo).PhoneStatus(ctx, "u")
			if err != nil {
				t.Fatalf("phone status: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComplete(t *testing.T) {
	var nilProfile *Profile
	if nilProfile.Complete() {
		t.Fatal("nil profile must not be complete")
	}
	if !(&Profile{ProfileCompleted: true}).Complete() {
		t.Fatal("completion flag must win")
	}
	if (&Profile{FullName: "Esi", Gender: "female", Age: 17}).Complete() {
		t.Fatal("underage profile must not be complete")
	}
	if !(&Profile{FullName: "Esi", Gender: "female", Age: 24}).Complete() {
		t.Fatal("expected required fields to satisfy completeness")
	}
}

type slowRepo struct {
	*MemoryRepository
	release chan struct{}
}

func (r slowRepo) FindByUserID(ctx context.Context, userID string) (Profile, error) {
	<-r.release
	return r.MemoryRepository.FindByUserID(ctx, userID)
}

func TestResolver(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Put(Profile{ID: "p-1", UserID: "u-1"})
	r := NewResolver(repo)
	ctx := context.Background()

	if id, _ := r.Resolve(ctx, "u-1", "p-known"); id != "p-known" {
		t.Fatalf("expected context id, got %s", id)
	}
	if id, _ := r.Resolve(ctx, "", ""); id != "" {
		t.Fatalf("expected empty id without user, got %s", id)
	}
	if id, _ := r.Resolve(ctx, "u-1", ""); id != "p-1" {
		t.Fatalf("expected looked-up id, got %s", id)
	}
	if id, _ := r.Resolve(ctx, "u-404", ""); id != "" {
		t.Fatalf("expected empty id for missing profile, got %s", id)
	}
}

var errRepoDown = errors.New("connection refused")

type failingRepo struct {
	*MemoryRepository
}

func (failingRepo) FindByUserID(context.Context, string) (Profile, error) {
	return Profile{}, errRepoDown
}

func TestResolverReturnsRepositoryFailure(t *testing.T) {
	r := NewResolver(failingRepo{MemoryRepository: NewMemoryRepository()})

	id, err := r.Resolve(context.Background(), "u-1", "")
	if !errors.Is(err, errRepoDown) {
		t.Fatalf("expected repository error, got %v", err)
	}
	if id != "" {
		t.Fatalf("expected empty id on failure, got %s", id)
	}
	if id, err := r.Resolve(context.Background(), "u-1", "p-known"); err != nil || id != "p-known" {
		t.Fatalf("known id should skip the lookup, got %q %v", id, err)
	}
}

func TestResolverDiscardsResultAfterCancel(t *testing.T) {
	repo := slowRepo{MemoryRepository: NewMemoryRepository(), release: make(chan struct{})}
	repo.Put(Profile{ID: "p-1", UserID: "u-1"})
	r := NewResolver(repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var (
		id  string
		err error
	)
	go func() {
		id, err = r.Resolve(ctx, "u-1", "")
		close(done)
	}()
	cancel()
	close(repo.release)
	<-done

	if id != "" {
		t.Fatalf("expected discarded result, got %s", id)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
