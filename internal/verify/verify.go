// Package verify exposes the public verification view of an attestation. The
// payload is deliberately minimal: a verifier learns the attested entity, the
// standard, the dates, and the scores, but no internal identifiers, detail
// blobs, or document paths.
package verify

import (
	"context"
	"fmt"
	"time"

	"gias.org/internal/attest"
)

// ErrNotFound means no attestation with that id exists. ErrGone means it
// exists but is no longer effectively active; expired and revoked are
// indistinguishable to verifiers.
var (
	ErrNotFound = attest.ErrNotFound
	ErrGone     = attest.ErrGone
)

// PublicView is the verifier-facing payload.
type PublicView struct {
	AttestationID string                 `json:"attestation_id"`
	EntityName    string                 `json:"entity_name"`
	Standard      string                 `json:"standard"`
	IssuedDate    time.Time              `json:"issued_date"`
	ExpiryDate    *time.Time             `json:"expiry_date,omitempty"`
	Scores        attest.ComponentScores `json:"scores"`
	OverallScore  float64                `json:"overall_score"`
	Status        string                 `json:"status"`
	QRCodeURL     string                 `json:"qr_code_url,omitempty"`
}

// Cache stores successful views for a short period. Implementations must be
// safe for concurrent use. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, id string) (*PublicView, bool)
	Set(ctx context.Context, id string, view *PublicView)
}

// Service builds public views over the attestation store.
type Service struct {
	store attest.Store
	cache Cache
	now   func() time.Time
}

type Option func(*Service)

// WithCache attaches a read-through view cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store attest.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify resolves the public view for an attestation id. Missing ids return
// ErrNotFound; attestations that are expired or revoked return ErrGone. A
// cached view is re-checked against the clock so a view cached while active
// cannot outlive its expiry.
func (s *Service) Verify(ctx context.Context, id string) (*PublicView, error) {
	if s.cache != nil {
		if view, ok := s.cache.Get(ctx, id); ok {
			if view.ExpiryDate != nil && !view.ExpiryDate.After(s.now()) {
				return nil, ErrGone
			}
			return view, nil
		}
	}

	a, err := s.store.Attestations(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if attest.EffectiveStatus(a, s.now()) != attest.StatusActive {
		return nil, ErrGone
	}

	org, err := s.store.Organizations(ctx).Find(ctx, a.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("verify: load organization %s: %w", a.OrganizationID, err)
	}
	std, err := s.store.Standards(ctx).Find(ctx, a.StandardID)
	if err != nil {
		return nil, fmt.Errorf("verify: load standard %s: %w", a.StandardID, err)
	}

	view := &PublicView{
		AttestationID: a.ID,
		EntityName:    org.Name,
		Standard:      fmt.Sprintf("%s v%s", std.Name, std.Version),
		IssuedDate:    a.IssuedAt,
		ExpiryDate:    a.ExpiresAt,
		Scores:        a.Scores,
		OverallScore:  a.OverallScore,
		Status:        string(attest.StatusActive),
		QRCodeURL:     a.QRCode,
	}
	if s.cache != nil {
		s.cache.Set(ctx, id, view)
	}
	return view, nil
}
