package attest

import (
	"context"
	"sort"
	"sync"

	"gias.org/internal/ids"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store used by tests and by the server when no
// database is configured.
type Memory struct {
	mu            sync.RWMutex
	organizations map[string]*Organization
	standards     map[string]*Standard
	attestations  map[string]*Attestation
	evidence      map[string]*Evidence
	evidenceByAtt map[string][]string
}

func NewMemory() *Memory {
	return &Memory{
		organizations: make(map[string]*Organization),
		standards:     make(map[string]*Standard),
		attestations:  make(map[string]*Attestation),
		evidence:      make(map[string]*Evidence),
		evidenceByAtt: make(map[string][]string),
	}
}

func (m *Memory) Organizations(ctx context.Context) OrganizationStore { return (*memoryOrgs)(m) }
func (m *Memory) Standards(ctx context.Context) StandardStore         { return (*memoryStandards)(m) }
func (m *Memory) Attestations(ctx context.Context) AttestationStore   { return (*memoryAttestations)(m) }
func (m *Memory) Evidence(ctx context.Context) EvidenceStore          { return (*memoryEvidence)(m) }

// Organizations -------------------------------------------------------------

type memoryOrgs Memory

func (m *memoryOrgs) Create(ctx context.Context, org *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if _, ok := m.organizations[org.ID]; ok {
		return ErrConflict
	}
	cp := *org
	m.organizations[org.ID] = &cp
	return nil
}

func (m *memoryOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	org, ok := m.organizations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (m *memoryOrgs) List(ctx context.Context) ([]*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Organization, 0, len(m.organizations))
	for _, org := range m.organizations {
		cp := *org
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Standards -----------------------------------------------------------------

type memoryStandards Memory

func (m *memoryStandards) Create(ctx context.Context, std *Standard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if std.ID == "" {
		std.ID = ids.New()
	}
	if _, ok := m.standards[std.ID]; ok {
		return ErrConflict
	}
	cp := *std
	m.standards[std.ID] = &cp
	return nil
}

func (m *memoryStandards) Find(ctx context.Context, id string) (*Standard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	std, ok := m.standards[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *std
	return &cp, nil
}

func (m *memoryStandards) List(ctx context.Context) ([]*Standard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Standard, 0, len(m.standards))
	for _, std := range m.standards {
		cp := *std
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Attestations --------------------------------------------------------------

type memoryAttestations Memory

func (m *memoryAttestations) Create(ctx context.Context, a *Attestation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = ids.New()
	}
	if _, ok := m.attestations[a.ID]; ok {
		return ErrConflict
	}
	if _, ok := m.organizations[a.OrganizationID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.standards[a.StandardID]; !ok {
		return ErrNotFound
	}
	cp := *a
	cp.Scores = a.Scores.Clamped()
	cp.OverallScore = cp.Scores.Overall()
	m.attestations[a.ID] = &cp
	*a = cp
	return nil
}

func (m *memoryAttestations) Find(ctx context.Context, id string) (*Attestation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attestations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memoryAttestations) ListByOrganization(ctx context.Context, orgID string) ([]*Attestation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Attestation
	for _, a := range m.attestations {
		if a.OrganizationID != orgID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryAttestations) SetStatus(ctx context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attestations[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

// Evidence ------------------------------------------------------------------

type memoryEvidence Memory

func (m *memoryEvidence) Create(ctx context.Context, ev *Evidence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	if _, ok := m.evidence[ev.ID]; ok {
		return ErrConflict
	}
	if _, ok := m.attestations[ev.AttestationID]; !ok {
		return ErrNotFound
	}
	cp := *ev
	m.evidence[ev.ID] = &cp
	m.evidenceByAtt[ev.AttestationID] = append(m.evidenceByAtt[ev.AttestationID], ev.ID)
	return nil
}

func (m *memoryEvidence) Find(ctx context.Context, id string) (*Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.evidence[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memoryEvidence) ListByAttestation(ctx context.Context, attestationID string) ([]*Evidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := m.evidenceByAtt[attestationID]
	out := make([]*Evidence, 0, len(keys))
	for _, id := range keys {
		cp := *m.evidence[id]
		out = append(out, &cp)
	}
	return out, nil
}
