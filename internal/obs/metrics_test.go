package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                    "/",
		"/metrics":            "/metrics",
		"/api/v1/users":       "/api/v1/users",
		"/api/v1/users/01ABC": "/api/v1/users/:id",
		"/api/v1/attestations/public/verify/01ABC":  "/api/v1/attestations/public/verify/:id",
		"/api/v1/attestations/01ABC/json":           "/api/v1/attestations/:id/json",
		"/api/v1/attestations/01ABC/pdf":            "/api/v1/attestations/:id/pdf",
		"/api/v1/evidence/01ABC":                    "/api/v1/evidence/:id",
		"/api/v1/evidence/attestation/01ABC":        "/api/v1/evidence/attestation/:id",
		"/api/v1/attestations/public/verify/x?qr=1": "/api/v1/attestations/public/verify/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
