package attest

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"gias.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Organizations(ctx context.Context) OrganizationStore { return &pgOrgs{db: s.db} }
func (s *PGStore) Standards(ctx context.Context) StandardStore         { return &pgStandards{db: s.db} }
func (s *PGStore) Attestations(ctx context.Context) AttestationStore   { return &pgAttestations{db: s.db} }
func (s *PGStore) Evidence(ctx context.Context) EvidenceStore          { return &pgEvidence{db: s.db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Organizations -------------------------------------------------------------

type pgOrgs struct{ db *sql.DB }

const orgColumns = `id, name, coalesce(domain, ''), coalesce(description, ''), is_verified, created_at`

func scanOrg(row interface{ Scan(...any) error }) (*Organization, error) {
	var org Organization
	err := row.Scan(&org.ID, &org.Name, &org.Domain, &org.Description, &org.Verified, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (s *pgOrgs) Create(ctx context.Context, org *Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, name, domain, description, is_verified, created_at)
		 values($1,$2,nullif($3,''),nullif($4,''),$5,$6)`,
		org.ID, org.Name, org.Domain, org.Description, org.Verified, org.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, `select `+orgColumns+` from organizations where id=$1`, id)
	return scanOrg(row)
}

func (s *pgOrgs) List(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx, `select `+orgColumns+` from organizations order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// Standards -----------------------------------------------------------------

type pgStandards struct{ db *sql.DB }

const standardColumns = `id, name, version, coalesce(description, ''), status, release_date, created_at`

func scanStandard(row interface{ Scan(...any) error }) (*Standard, error) {
	var (
		std     Standard
		release sql.NullTime
	)
	err := row.Scan(&std.ID, &std.Name, &std.Version, &std.Description, &std.Status,
		&release, &std.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if release.Valid {
		t := release.Time
		std.ReleaseDate = &t
	}
	return &std, nil
}

func (s *pgStandards) Create(ctx context.Context, std *Standard) error {
	if std.ID == "" {
		std.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into standards(id, name, version, description, status, release_date, created_at)
		 values($1,$2,$3,nullif($4,''),$5,$6,$7)`,
		std.ID, std.Name, std.Version, std.Description, string(std.Status), std.ReleaseDate, std.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgStandards) Find(ctx context.Context, id string) (*Standard, error) {
	row := s.db.QueryRowContext(ctx, `select `+standardColumns+` from standards where id=$1`, id)
	return scanStandard(row)
}

func (s *pgStandards) List(ctx context.Context) ([]*Standard, error) {
	rows, err := s.db.QueryContext(ctx, `select `+standardColumns+` from standards order by name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Standard
	for rows.Next() {
		std, err := scanStandard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, std)
	}
	return out, rows.Err()
}

// Attestations --------------------------------------------------------------

type pgAttestations struct{ db *sql.DB }

const attestationColumns = `id, organization_id, standard_id, issued_at, expires_at,
	alignment_score, robustness_score, data_governance_score, explainability_score, operational_risk_score,
	overall_score, status, coalesce(qr_code, ''), coalesce(detail, ''), coalesce(document_url, ''), created_at`

func scanAttestation(row interface{ Scan(...any) error }) (*Attestation, error) {
	var (
		a       Attestation
		expires sql.NullTime
	)
	err := row.Scan(&a.ID, &a.OrganizationID, &a.StandardID, &a.IssuedAt, &expires,
		&a.Scores.Alignment, &a.Scores.Robustness, &a.Scores.DataGovernance,
		&a.Scores.Explainability, &a.Scores.OperationalRisk,
		&a.OverallScore, &a.Status, &a.QRCode, &a.Detail, &a.DocumentURL, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		a.ExpiresAt = &t
	}
	return &a, nil
}

func (s *pgAttestations) Create(ctx context.Context, a *Attestation) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.Scores = a.Scores.Clamped()
	a.OverallScore = a.Scores.Overall()
	_, err := s.db.ExecContext(ctx,
		`insert into attestations(id, organization_id, standard_id, issued_at, expires_at,
		 alignment_score, robustness_score, data_governance_score, explainability_score, operational_risk_score,
		 overall_score, status, qr_code, detail, document_url, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,nullif($13,''),nullif($14,''),nullif($15,''),$16)`,
		a.ID, a.OrganizationID, a.StandardID, a.IssuedAt, a.ExpiresAt,
		a.Scores.Alignment, a.Scores.Robustness, a.Scores.DataGovernance,
		a.Scores.Explainability, a.Scores.OperationalRisk,
		a.OverallScore, string(a.Status), a.QRCode, a.Detail, a.DocumentURL, a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgAttestations) Find(ctx context.Context, id string) (*Attestation, error) {
	row := s.db.QueryRowContext(ctx, `select `+attestationColumns+` from attestations where id=$1`, id)
	return scanAttestation(row)
}

func (s *pgAttestations) ListByOrganization(ctx context.Context, orgID string) ([]*Attestation, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+attestationColumns+` from attestations where organization_id=$1 order by issued_at desc`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Attestation
	for rows.Next() {
		a, err := scanAttestation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *pgAttestations) SetStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`update attestations set status=$2 where id=$1`, id, string(status))
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Evidence ------------------------------------------------------------------

type pgEvidence struct{ db *sql.DB }

const evidenceColumns = `id, attestation_id, name, coalesce(type, ''), coalesce(url, ''), coalesce(metadata, ''), created_at`

func scanEvidence(row interface{ Scan(...any) error }) (*Evidence, error) {
	var ev Evidence
	err := row.Scan(&ev.ID, &ev.AttestationID, &ev.Name, &ev.Type, &ev.URL, &ev.Metadata, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *pgEvidence) Create(ctx context.Context, ev *Evidence) error {
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into evidence(id, attestation_id, name, type, url, metadata, created_at)
		 values($1,$2,$3,nullif($4,''),nullif($5,''),nullif($6,''),$7)`,
		ev.ID, ev.AttestationID, ev.Name, ev.Type, ev.URL, ev.Metadata, ev.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgEvidence) Find(ctx context.Context, id string) (*Evidence, error) {
	row := s.db.QueryRowContext(ctx, `select `+evidenceColumns+` from evidence where id=$1`, id)
	return scanEvidence(row)
}

func (s *pgEvidence) ListByAttestation(ctx context.Context, attestationID string) ([]*Evidence, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+evidenceColumns+` from evidence where attestation_id=$1 order by created_at`, attestationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Evidence, 0)
	for rows.Next() {
		ev, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
