package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"gias.org/internal/attest"
)

type stubCache struct {
	views map[string]*PublicView
	gets  int
	sets  int
}

func newStubCache() *stubCache {
	return &stubCache{views: make(map[string]*PublicView)}
}

func (c *stubCache) Get(ctx context.Context, id string) (*PublicView, bool) {
	c.gets++
	view, ok := c.views[id]
	return view, ok
}

func (c *stubCache) Set(ctx context.Context, id string, view *PublicView) {
	c.sets++
	c.views[id] = view
}

type env struct {
	store *attest.Memory
	now   time.Time
	attID string
}

func setup(t *testing.T, expires *time.Time) *env {
	t.Helper()
	store := attest.NewMemory()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	org := &attest.Organization{Name: "Acme AI", Verified: true, CreatedAt: now}
	if err := store.Organizations(ctx).Create(ctx, org); err != nil {
		t.Fatalf("create org: %v", err)
	}
	std := &attest.Standard{Name: "Global AI Standard", Version: "1.0", Status: attest.StandardActive, CreatedAt: now}
	if err := store.Standards(ctx).Create(ctx, std); err != nil {
		t.Fatalf("create standard: %v", err)
	}
	a := &attest.Attestation{
		OrganizationID: org.ID,
		StandardID:     std.ID,
		IssuedAt:       now.Add(-24 * time.Hour),
		ExpiresAt:      expires,
		Scores:         attest.ComponentScores{Alignment: 90, Robustness: 85, DataGovernance: 80, Explainability: 75, OperationalRisk: 70},
		Status:         attest.StatusActive,
		QRCode:         "https://verify.example/qr/abc",
		CreatedAt:      now,
	}
	if err := store.Attestations(ctx).Create(ctx, a); err != nil {
		t.Fatalf("create attestation: %v", err)
	}
	return &env{store: store, now: now, attID: a.ID}
}

func TestVerifyActiveAttestation(t *testing.T) {
	e := setup(t, nil)
	svc := NewService(e.store, WithClock(func() time.Time { return e.now }))

	view, err := svc.Verify(context.Background(), e.attID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if view.EntityName != "Acme AI" {
		t.Fatalf("EntityName = %q", view.EntityName)
	}
	if view.Standard != "Global AI Standard v1.0" {
		t.Fatalf("Standard = %q", view.Standard)
	}
	if view.Status != "active" {
		t.Fatalf("Status = %q", view.Status)
	}
	if view.OverallScore != 80 {
		t.Fatalf("OverallScore = %v, want 80", view.OverallScore)
	}
	if view.QRCodeURL != "https://verify.example/qr/abc" {
		t.Fatalf("QRCodeURL = %q", view.QRCodeURL)
	}
}

func TestVerifyUnknownID(t *testing.T) {
	e := setup(t, nil)
	svc := NewService(e.store, WithClock(func() time.Time { return e.now }))

	_, err := svc.Verify(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerifyExpiredIsGone(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	e := setup(t, &past)
	svc := NewService(e.store, WithClock(func() time.Time { return now }))

	_, err := svc.Verify(context.Background(), e.attID)
	if !errors.Is(err, ErrGone) {
		t.Fatalf("expected ErrGone, got %v", err)
	}
}

func TestVerifyRevokedIsGone(t *testing.T) {
	e := setup(t, nil)
	ctx := context.Background()
	if err := e.store.Attestations(ctx).SetStatus(ctx, e.attID, attest.StatusRevoked); err != nil {
		t.Fatalf("set status: %v", err)
	}
	svc := NewService(e.store, WithClock(func() time.Time { return e.now }))

	_, err := svc.Verify(ctx, e.attID)
	if !errors.Is(err, ErrGone) {
		t.Fatalf("expected ErrGone, got %v", err)
	}
}

func TestVerifyCachesSuccessfulViews(t *testing.T) {
	e := setup(t, nil)
	cache := newStubCache()
	svc := NewService(e.store,
		WithClock(func() time.Time { return e.now }),
		WithCache(cache))
	ctx := context.Background()

	if _, err := svc.Verify(ctx, e.attID); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache.sets = %d, want 1", cache.sets)
	}

	view, err := svc.Verify(ctx, e.attID)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if view.EntityName != "Acme AI" {
		t.Fatalf("cached view corrupted: %+v", view)
	}
	if cache.sets != 1 {
		t.Fatalf("cache.sets = %d after hit, want 1", cache.sets)
	}
}

func TestVerifyDoesNotCacheFailures(t *testing.T) {
	e := setup(t, nil)
	cache := newStubCache()
	svc := NewService(e.store,
		WithClock(func() time.Time { return e.now }),
		WithCache(cache))

	if _, err := svc.Verify(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if cache.sets != 0 {
		t.Fatalf("cache.sets = %d, want 0", cache.sets)
	}
}

func TestVerifyCachedViewCannotOutliveExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(time.Minute)
	e := setup(t, &soon)

	clock := now
	cache := newStubCache()
	svc := NewService(e.store,
		WithClock(func() time.Time { return clock }),
		WithCache(cache))
	ctx := context.Background()

	if _, err := svc.Verify(ctx, e.attID); err != nil {
		t.Fatalf("verify while active: %v", err)
	}

	clock = now.Add(2 * time.Minute)
	_, err := svc.Verify(ctx, e.attID)
	if !errors.Is(err, ErrGone) {
		t.Fatalf("expected ErrGone from cached view past expiry, got %v", err)
	}
}
