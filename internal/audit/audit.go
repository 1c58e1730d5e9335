// Package audit records an append-only trail of security-relevant actions.
// Every entry is persisted and mirrored as a structured log line; failures
// to persist are logged but never fail the request being audited.
package audit

import (
	"context"
	"strings"
	"time"

	"gias.org/internal/auth"
	"gias.org/internal/ids"
	"gias.org/internal/obs"
)

// Entry is a single audit record. ActorUserID is empty for unauthenticated
// actions such as failed logins.
type Entry struct {
	ID           string         `json:"id"`
	OccurredAt   time.Time      `json:"occurred_at"`
	ActorUserID  string         `json:"actor_user_id,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// Store persists audit entries. Append-only; there is no update or delete.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context so audit
// entries can be correlated with request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request id, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Recorder writes audit entries. A nil store is allowed; entries are then
// only mirrored to the log.
type Recorder struct {
	store Store
	now   func() time.Time
}

type RecorderOption func(*Recorder)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an audit entry attributed to the authenticated principal in
// ctx, if any. Store errors are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, action, resourceType, resourceID string, details map[string]any) {
	entry := &Entry{
		ID:           ids.New(),
		OccurredAt:   r.now().UTC(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		entry.ActorUserID = userID
	}

	if r.store != nil {
		if err := r.store.Append(ctx, entry); err != nil {
			obs.LogRequest(map[string]any{
				"level": "error", "msg": "audit append failed",
				"action": action, "error": err.Error(),
			})
		}
	}
	r.mirror(ctx, entry)
}

func (r *Recorder) mirror(ctx context.Context, entry *Entry) {
	line := map[string]any{
		"ts":     entry.OccurredAt.Format(time.RFC3339Nano),
		"type":   "audit",
		"event":  entry.Action,
		"fields": map[string]any{},
	}
	if entry.ResourceType != "" {
		line["resource_type"] = entry.ResourceType
	}
	if entry.ResourceID != "" {
		line["resource_id"] = entry.ResourceID
	}
	if entry.ActorUserID != "" {
		line["user_id"] = entry.ActorUserID
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		line["request_id"] = rid
	}
	if len(entry.Details) > 0 {
		line["fields"] = entry.Details
	}
	obs.LogRequest(line)
}
