// Package httpapi is the HTTP transport layer. Handlers stay thin: they
// decode, delegate to the domain services, and map sentinel errors to status
// codes. All access control goes through a single authorize helper.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"gias.org/internal/attest"
	"gias.org/internal/audit"
	"gias.org/internal/auth"
	"gias.org/internal/obs"
	"gias.org/internal/verify"
)

// ReadyProbe reports whether the service can take traffic. A nil DB means the
// in-memory backend, which is always ready.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API to its collaborators.
type Options struct {
	Version     string
	Environment string
	ReadyProbe  ReadyProbe

	Auth     *auth.Service
	Guard    *auth.Guard
	Store    auth.Store
	Attest   *attest.Service
	Verify   *verify.Service
	Recorder *audit.Recorder

	RateBurst      int
	RatePerSec     int
	AllowedOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux         *http.ServeMux
	readyProbe  ReadyProbe
	version     string
	environment string

	auth     *auth.Service
	guard    *auth.Guard
	store    auth.Store
	attest   *attest.Service
	verify   *verify.Service
	recorder *audit.Recorder

	rateBurst      int
	ratePerSec     int
	allowedOrigins []string
}

func New(opts Options) *API {
	a := &API{
		mux:            http.NewServeMux(),
		readyProbe:     opts.ReadyProbe,
		version:        opts.Version,
		environment:    opts.Environment,
		auth:           opts.Auth,
		guard:          opts.Guard,
		store:          opts.Store,
		attest:         opts.Attest,
		verify:         opts.Verify,
		recorder:       opts.Recorder,
		rateBurst:      opts.RateBurst,
		ratePerSec:     opts.RatePerSec,
		allowedOrigins: opts.AllowedOrigins,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/v1/auth/refresh", a.handleRefresh)

	a.mux.HandleFunc("/api/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/api/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/api/v1/roles", a.handleRoles)

	a.mux.HandleFunc("/api/v1/attestations/", a.handleAttestations)
	a.mux.HandleFunc("/api/v1/evidence/", a.handleEvidence)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    "gias-api",
			"docs":    "/v1/info",
			"version": a.version,
		})
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.allowedOrigins)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"service":     "gias-api",
		"version":     a.version,
		"environment": a.environment,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "gias-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) audit(ctx context.Context, action, resourceType, resourceID string, details map[string]any) {
	if a.recorder == nil {
		return
	}
	a.recorder.Record(ctx, action, resourceType, resourceID, details)
}
