package attest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gias.org/internal/ids"
)

// Service applies lifecycle rules on top of a Store. All reads resolve
// effective status against the injected clock; disclosure-gated reads return
// ErrGone for attestations that are no longer effectively active.
type Service struct {
	store Store
	now   func() time.Time
}

type ServiceOption func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueParams carries everything needed to issue a new attestation.
type IssueParams struct {
	OrganizationID string
	StandardID     string
	IssuedAt       time.Time
	ExpiresAt      *time.Time
	Scores         ComponentScores
	QRCode         string
	Detail         string
	DocumentURL    string
}

// Issue creates an active attestation. Scores are clamped and the overall
// score computed before the row is written.
func (s *Service) Issue(ctx context.Context, p IssueParams) (*Attestation, error) {
	if _, err := s.store.Organizations(ctx).Find(ctx, p.OrganizationID); err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	if _, err := s.store.Standards(ctx).Find(ctx, p.StandardID); err != nil {
		return nil, fmt.Errorf("standard: %w", err)
	}
	issued := p.IssuedAt
	if issued.IsZero() {
		issued = s.now().UTC()
	}
	a := &Attestation{
		ID:             ids.New(),
		OrganizationID: p.OrganizationID,
		StandardID:     p.StandardID,
		IssuedAt:       issued,
		ExpiresAt:      p.ExpiresAt,
		Scores:         p.Scores.Clamped(),
		Status:         StatusActive,
		QRCode:         p.QRCode,
		Detail:         p.Detail,
		DocumentURL:    p.DocumentURL,
		CreatedAt:      s.now().UTC(),
	}
	a.OverallScore = a.Scores.Overall()
	if err := s.store.Attestations(ctx).Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns the attestation with its status resolved to the effective value.
// The stored row is left untouched.
func (s *Service) Get(ctx context.Context, id string) (*Attestation, error) {
	a, err := s.store.Attestations(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = EffectiveStatus(a, s.now())
	return a, nil
}

// activeOnly loads an attestation and enforces the disclosure boundary:
// missing ids are ErrNotFound, anything not effectively active is ErrGone.
func (s *Service) activeOnly(ctx context.Context, id string) (*Attestation, error) {
	a, err := s.store.Attestations(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if EffectiveStatus(a, s.now()) != StatusActive {
		return nil, ErrGone
	}
	return a, nil
}

// Detail returns the parsed detail blob of an active attestation. An active
// attestation without a detail blob is ErrNotFound.
func (s *Service) Detail(ctx context.Context, id string) (map[string]any, error) {
	a, err := s.activeOnly(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Detail == "" {
		return nil, ErrNotFound
	}
	var detail map[string]any
	if err := json.Unmarshal([]byte(a.Detail), &detail); err != nil {
		return nil, fmt.Errorf("attest: decode detail for %s: %w", id, err)
	}
	return detail, nil
}

// Document returns the document reference of an active attestation.
func (s *Service) Document(ctx context.Context, id string) (string, error) {
	a, err := s.activeOnly(ctx, id)
	if err != nil {
		return "", err
	}
	if a.DocumentURL == "" {
		return "", ErrNotFound
	}
	return a.DocumentURL, nil
}

// Revoke transitions an attestation to revoked. Active and expired
// attestations may be revoked; revoking twice fails with ErrAlreadyRevoked.
func (s *Service) Revoke(ctx context.Context, id string) (*Attestation, error) {
	a, err := s.store.Attestations(ctx).Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanRevoke(a) {
		return nil, ErrAlreadyRevoked
	}
	if err := s.store.Attestations(ctx).SetStatus(ctx, id, StatusRevoked); err != nil {
		return nil, err
	}
	a.Status = StatusRevoked
	return a, nil
}

// Evidence returns a single evidence record. The parent attestation must be
// effectively active.
func (s *Service) Evidence(ctx context.Context, evidenceID string) (*Evidence, error) {
	ev, err := s.store.Evidence(ctx).Find(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeOnly(ctx, ev.AttestationID); err != nil {
		return nil, err
	}
	return ev, nil
}

// EvidenceForAttestation lists evidence for an effectively active
// attestation. An attestation with no evidence yields an empty slice.
func (s *Service) EvidenceForAttestation(ctx context.Context, attestationID string) ([]*Evidence, error) {
	if _, err := s.activeOnly(ctx, attestationID); err != nil {
		return nil, err
	}
	out, err := s.store.Evidence(ctx).ListByAttestation(ctx, attestationID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Evidence{}
	}
	return out, nil
}
