package attest

import "time"

// EffectiveStatus resolves the current state of an attestation at the given
// instant. Revocation wins over everything else; otherwise a set expiry that
// is not after now makes the attestation expired; otherwise the stored status
// stands. Reads never rewrite the stored row.
func EffectiveStatus(a *Attestation, now time.Time) Status {
	if a.Status == StatusRevoked {
		return StatusRevoked
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return StatusExpired
	}
	return a.Status
}

// CanRevoke reports whether a revocation is permitted from the attestation's
// current stored state. Active and expired attestations may be revoked;
// revoked is terminal.
func CanRevoke(a *Attestation) bool {
	return a.Status != StatusRevoked
}
