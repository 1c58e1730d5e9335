package attest

import "context"

// Store bundles access to the attestation domain records.
type Store interface {
	Organizations(ctx context.Context) OrganizationStore
	Standards(ctx context.Context) StandardStore
	Attestations(ctx context.Context) AttestationStore
	Evidence(ctx context.Context) EvidenceStore
}

type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
}

type StandardStore interface {
	Create(ctx context.Context, std *Standard) error
	Find(ctx context.Context, id string) (*Standard, error)
	List(ctx context.Context) ([]*Standard, error)
}

type AttestationStore interface {
	Create(ctx context.Context, a *Attestation) error
	Find(ctx context.Context, id string) (*Attestation, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Attestation, error)
	// SetStatus persists a stored status transition, e.g. a revocation.
	SetStatus(ctx context.Context, id string, status Status) error
}

type EvidenceStore interface {
	Create(ctx context.Context, ev *Evidence) error
	Find(ctx context.Context, id string) (*Evidence, error)
	ListByAttestation(ctx context.Context, attestationID string) ([]*Evidence, error)
}
