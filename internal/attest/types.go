// Package attest holds the attestation domain: organizations, standards,
// issued attestations with component scores, supporting evidence, and the
// lifecycle rules that govern their effective status.
package attest

import "time"

// Status is the stored lifecycle state of an attestation.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// StandardStatus tracks a standard through its editorial lifecycle. It is
// internal bookkeeping and never appears in public verification payloads.
type StandardStatus string

const (
	StandardDraft      StandardStatus = "draft"
	StandardProposed   StandardStatus = "proposed"
	StandardActive     StandardStatus = "active"
	StandardDeprecated StandardStatus = "deprecated"
)

// Organization is an attested entity.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain,omitempty"`
	Description string    `json:"description,omitempty"`
	Verified    bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// Standard is a versioned assessment standard that attestations are issued
// against.
type Standard struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Status      StandardStatus `json:"status"`
	ReleaseDate *time.Time     `json:"release_date,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Attestation is an issued assessment result. Status holds the stored state;
// callers that need the current state must go through EffectiveStatus so that
// expiry is always evaluated against a clock.
type Attestation struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	StandardID     string          `json:"standard_id"`
	IssuedAt       time.Time       `json:"issued_at"`
	ExpiresAt      *time.Time      `json:"expires_at,omitempty"`
	Scores         ComponentScores `json:"scores"`
	OverallScore   float64         `json:"overall_score"`
	Status         Status          `json:"status"`
	QRCode         string          `json:"qr_code,omitempty"`
	Detail         string          `json:"-"`
	DocumentURL    string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Evidence is a supporting artifact attached to an attestation.
type Evidence struct {
	ID            string    `json:"id"`
	AttestationID string    `json:"attestation_id"`
	Name          string    `json:"name"`
	Type          string    `json:"type,omitempty"`
	URL           string    `json:"url,omitempty"`
	Metadata      string    `json:"metadata,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
