package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"gias.org/internal/attest"
	"gias.org/internal/audit"
	"gias.org/internal/auth"
	"gias.org/internal/verify"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	users  *auth.Memory
	store  *attest.Memory
	trail  *audit.Memory
	tokens *auth.TokenService
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	users := auth.NewMemory()
	if err := auth.EnsureRoles(context.Background(), users); err != nil {
		t.Fatalf("ensure roles: %v", err)
	}
	tokens, err := auth.NewTokenService("test-secret", "gias-test")
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	svc, err := auth.NewService(users, tokens)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	guard, err := auth.NewGuard(tokens, users)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	store := attest.NewMemory()
	attestSvc := attest.NewService(store)
	verifySvc := verify.NewService(store)
	trail := audit.NewMemory()

	api := New(Options{
		Version:     "test",
		Environment: "test",
		Auth:        svc,
		Guard:       guard,
		Store:       users,
		Attest:      attestSvc,
		Verify:      verifySvc,
		Recorder:    audit.NewRecorder(trail),
		RateBurst:   1000,
		RatePerSec:  1000,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		users:   users,
		store:   store,
		trail:   trail,
		tokens:  tokens,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

// createAdmin seeds an admin account directly through the store and returns
// its bearer token.
func (c *apiClient) createAdmin(email, password string) string {
	c.t.Helper()
	ctx := context.Background()
	role, err := c.users.Roles(ctx).FindByName(ctx, auth.RoleAdmin)
	if err != nil {
		c.t.Fatalf("find admin role: %v", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		c.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user := &auth.User{
		Email: email, PasswordHash: hash, Active: true, Verified: true,
		RoleID: role.ID, CreatedAt: now, UpdatedAt: now,
	}
	if err := c.users.Users(ctx).Create(ctx, user); err != nil {
		c.t.Fatalf("create admin: %v", err)
	}
	return c.login(email, password)
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	resp := c.post("/api/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatal("empty token issued")
	}
	return payload.Token
}

// seedAttestation creates an org, a standard and an active attestation.
func (c *apiClient) seedAttestation(detail, docURL string, expires *time.Time) *attest.Attestation {
	c.t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	org := &attest.Organization{Name: "Acme AI", Verified: true, CreatedAt: now}
	if err := c.store.Organizations(ctx).Create(ctx, org); err != nil {
		c.t.Fatalf("create org: %v", err)
	}
	std := &attest.Standard{Name: "Global AI Standard", Version: "1.0", Status: attest.StandardActive, CreatedAt: now}
	if err := c.store.Standards(ctx).Create(ctx, std); err != nil {
		c.t.Fatalf("create standard: %v", err)
	}
	a := &attest.Attestation{
		OrganizationID: org.ID,
		StandardID:     std.ID,
		IssuedAt:       now.Add(-time.Hour),
		ExpiresAt:      expires,
		Scores:         attest.ComponentScores{Alignment: 90, Robustness: 85, DataGovernance: 80, Explainability: 75, OperationalRisk: 70},
		Status:         attest.StatusActive,
		Detail:         detail,
		DocumentURL:    docURL,
		CreatedAt:      now,
	}
	if err := c.store.Attestations(ctx).Create(ctx, a); err != nil {
		c.t.Fatalf("create attestation: %v", err)
	}
	return a
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/v1/auth/register", map[string]any{
		"email":     "dev@acme.ai",
		"password":  "correct horse",
		"full_name": "Dev",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	user := decode[map[string]any](t, resp)
	if user["email"] != "dev@acme.ai" {
		t.Fatalf("unexpected user: %v", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash serialized in response")
	}

	token := api.login("dev@acme.ai", "correct horse")

	resp = api.post("/api/v1/auth/refresh", nil, bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status: %d", resp.StatusCode)
	}
	refreshed := decode[tokenResponse](t, resp)
	if refreshed.Token == "" {
		t.Fatal("refresh returned empty token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]any{"email": "dup@acme.ai", "password": "pw12345"}

	resp := api.post("/api/v1/auth/register", body, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register status: %d", resp.StatusCode)
	}
	resp = api.post("/api/v1/auth/register", map[string]any{"email": "DUP@acme.ai", "password": "pw12345"}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/v1/auth/login", map[string]any{
		"email":    "nobody@acme.ai",
		"password": "whatever",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	api := newTestAPI(t)

	// No token at all.
	resp := api.get("/api/v1/users", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// Enterprise user is authenticated but not an admin.
	api.post("/api/v1/auth/register", map[string]any{"email": "ent@acme.ai", "password": "pw12345"}, nil).Body.Close()
	entToken := api.login("ent@acme.ai", "pw12345")
	resp = api.get("/api/v1/users", nil, bearer(entToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	adminToken := api.createAdmin("root@gias.org", "admin-pass")
	resp = api.get("/api/v1/users", nil, bearer(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decode[map[string]any](t, resp)
	if payload["items"] == nil {
		t.Fatal("expected items in listing")
	}
}

func TestRegisterElevatedRoleRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	adminRole, err := api.users.Roles(ctx).FindByName(ctx, auth.RoleAdmin)
	if err != nil {
		t.Fatalf("find role: %v", err)
	}

	resp := api.post("/api/v1/auth/register", map[string]any{
		"email":    "wannabe@acme.ai",
		"password": "pw12345",
		"role_id":  adminRole.ID,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	adminToken := api.createAdmin("root@gias.org", "admin-pass")
	resp2 := api.post("/api/v1/auth/register", map[string]any{
		"email":    "second-admin@gias.org",
		"password": "pw12345",
		"role_id":  adminRole.ID,
	}, bearer(adminToken))
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 for admin-assigned elevation, got %d", resp2.StatusCode)
	}
}

func TestUserPatchAndDelete(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.createAdmin("root@gias.org", "admin-pass")

	resp := api.post("/api/v1/users", map[string]any{
		"email":    "managed@acme.ai",
		"password": "pw12345",
	}, bearer(adminToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status: %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	id := created["id"].(string)

	resp = api.do(http.MethodPatch, "/api/v1/users/"+id, map[string]any{
		"full_name": "Managed User",
		"is_active": false,
	}, bearer(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status: %d", resp.StatusCode)
	}
	patched := decode[map[string]any](t, resp)
	if patched["full_name"] != "Managed User" || patched["is_active"] != false {
		t.Fatalf("patch not applied: %v", patched)
	}

	// Deactivated account can no longer log in.
	loginResp := api.post("/api/v1/auth/login", map[string]any{
		"email": "managed@acme.ai", "password": "pw12345",
	}, nil)
	loginResp.Body.Close()
	if loginResp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for inactive login, got %d", loginResp.StatusCode)
	}

	resp = api.do(http.MethodDelete, "/api/v1/users/"+id, nil, bearer(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status: %d", resp.StatusCode)
	}
	resp = api.get("/api/v1/users/"+id, nil, bearer(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestVerifyPublicDisclosure(t *testing.T) {
	api := newTestAPI(t)
	a := api.seedAttestation("", "", nil)

	resp := api.get("/api/v1/attestations/public/verify/"+a.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify status: %d", resp.StatusCode)
	}
	view := decode[map[string]any](t, resp)
	if view["entity_name"] != "Acme AI" || view["status"] != "active" {
		t.Fatalf("unexpected view: %v", view)
	}
	if _, leaked := view["organization_id"]; leaked {
		t.Fatal("internal id leaked in public view")
	}

	resp = api.get("/api/v1/attestations/public/verify/does-not-exist", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// Revoked attestations verify as gone, not as missing.
	adminToken := api.createAdmin("root@gias.org", "admin-pass")
	revokeResp := api.post("/api/v1/attestations/"+a.ID+"/revoke", nil, bearer(adminToken))
	revokeResp.Body.Close()
	if revokeResp.StatusCode != http.StatusOK {
		t.Fatalf("revoke status: %d", revokeResp.StatusCode)
	}

	resp = api.get("/api/v1/attestations/public/verify/"+a.ID, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410, got %d", resp.StatusCode)
	}
}

func TestVerifyExpiredIsGone(t *testing.T) {
	api := newTestAPI(t)
	past := time.Now().UTC().Add(-time.Minute)
	a := api.seedAttestation("", "", &past)

	resp := api.get("/api/v1/attestations/public/verify/"+a.ID, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410, got %d", resp.StatusCode)
	}
}

func TestRevokeRequiresAdminAndIsTerminal(t *testing.T) {
	api := newTestAPI(t)
	a := api.seedAttestation("", "", nil)

	resp := api.post("/api/v1/attestations/"+a.ID+"/revoke", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	adminToken := api.createAdmin("root@gias.org", "admin-pass")
	resp = api.post("/api/v1/attestations/"+a.ID+"/revoke", nil, bearer(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revoke status: %d", resp.StatusCode)
	}
	revoked := decode[map[string]any](t, resp)
	if revoked["status"] != "revoked" {
		t.Fatalf("status = %v, want revoked", revoked["status"])
	}

	resp = api.post("/api/v1/attestations/"+a.ID+"/revoke", nil, bearer(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on double revoke, got %d", resp.StatusCode)
	}

	entries := api.trail.Entries()
	found := false
	for _, e := range entries {
		if e.Action == "attestation.revoke" && e.ResourceID == a.ID && e.ActorUserID != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("revocation not recorded in audit trail")
	}
}

func TestAttestationDetailAndDocument(t *testing.T) {
	api := newTestAPI(t)
	a := api.seedAttestation(`{"summary":"compliant"}`, "https://files.gias.org/report.pdf", nil)

	resp := api.get("/api/v1/attestations/"+a.ID+"/json", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status: %d", resp.StatusCode)
	}
	detail := decode[map[string]any](t, resp)
	if detail["summary"] != "compliant" {
		t.Fatalf("unexpected detail: %v", detail)
	}

	noRedirect := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, _ := http.NewRequest(http.MethodGet, api.baseURL+"/api/v1/attestations/"+a.ID+"/pdf", nil)
	docResp, err := noRedirect.Do(req)
	if err != nil {
		t.Fatalf("pdf request: %v", err)
	}
	docResp.Body.Close()
	if docResp.StatusCode != http.StatusFound {
		t.Fatalf("pdf status: %d", docResp.StatusCode)
	}
	if loc := docResp.Header.Get("Location"); loc != "https://files.gias.org/report.pdf" {
		t.Fatalf("Location = %q", loc)
	}

	// Without a stored blob or document the lookups are 404.
	bare := api.seedAttestation("", "", nil)
	resp = api.get("/api/v1/attestations/"+bare.ID+"/json", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing detail, got %d", resp.StatusCode)
	}
}

func TestDetailGoneAfterRevocation(t *testing.T) {
	api := newTestAPI(t)
	a := api.seedAttestation(`{"summary":"ok"}`, "", nil)
	adminToken := api.createAdmin("root@gias.org", "admin-pass")

	api.post("/api/v1/attestations/"+a.ID+"/revoke", nil, bearer(adminToken)).Body.Close()

	resp := api.get("/api/v1/attestations/"+a.ID+"/json", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410, got %d", resp.StatusCode)
	}
}

func TestEvidenceEndpoints(t *testing.T) {
	api := newTestAPI(t)
	a := api.seedAttestation("", "", nil)
	ctx := context.Background()

	ev := &attest.Evidence{AttestationID: a.ID, Name: "audit report", CreatedAt: time.Now().UTC()}
	if err := api.store.Evidence(ctx).Create(ctx, ev); err != nil {
		t.Fatalf("create evidence: %v", err)
	}

	resp := api.get("/api/v1/evidence/"+ev.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evidence status: %d", resp.StatusCode)
	}
	got := decode[map[string]any](t, resp)
	if got["name"] != "audit report" {
		t.Fatalf("unexpected evidence: %v", got)
	}

	resp = api.get("/api/v1/evidence/attestation/"+a.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("evidence list status: %d", resp.StatusCode)
	}
	list := decode[map[string]any](t, resp)
	items := list["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one evidence item, got %d", len(items))
	}
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}
	health := decode[map[string]any](t, resp)
	if health["status"] != "ok" || health["service"] != "gias-api" {
		t.Fatalf("unexpected health payload: %v", health)
	}

	resp = api.get("/readyz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status: %d", resp.StatusCode)
	}
}
