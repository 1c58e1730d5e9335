package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gias.org/internal/ids"
)

// Service combines the credential store, password hasher and token service
// into the authentication operations the transport layer exposes.
type Service struct {
	store  Store
	tokens *TokenService
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the authenticator.
func NewService(store Store, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NormalizeEmail lower-cases and trims an email address. Emails are stored as
// given but compared normalized, which is what makes uniqueness
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate validates an email/password pair. Unknown emails and wrong
// passwords fail identically with ErrInvalidCredentials; the unknown-email
// path still runs a bcrypt comparison so the two cannot be told apart by
// timing. A correct credential against a disabled account returns
// ErrAccountInactive.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		equalizeCompareCost(password)
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		equalizeCompareCost(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountInactive
	}

	when := s.now().UTC()
	if err := s.store.Users(ctx).TouchLastLogin(ctx, user.ID, when); err != nil {
		return nil, fmt.Errorf("record last login: %w", err)
	}
	user.LastLogin = &when
	return user, nil
}

// Login authenticates and mints an access token for the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", time.Time{}, nil, err
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, TokenTypeAccess)
	if err != nil {
		return "", time.Time{}, nil, fmt.Errorf("issue token: %w", err)
	}
	return token, expiresAt, user, nil
}

// RegisterParams are the caller-supplied fields for self-registration.
type RegisterParams struct {
	Email    string
	Password string
	FullName string
	RoleID   string
}

// Register creates a new user. RoleID is optional and defaults to the
// enterprise role. Elevated roles (admin, regulator) can only be granted when
// the context carries an authenticated admin principal; self-registration
// requesting one fails with ErrInvalidRole.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*User, error) {
	email := NormalizeEmail(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("auth: a valid email is required")
	}
	if p.Password == "" {
		return nil, errors.New("auth: password is required")
	}

	users := s.store.Users(ctx)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	role, err := s.resolveRole(ctx, p.RoleID)
	if err != nil {
		return nil, err
	}
	if name, _ := KnownRole(role.Name); name.Elevated() {
		principal, ok := PrincipalFromContext(ctx)
		if !ok || !principal.IsAdmin() {
			return nil, fmt.Errorf("%w: %s requires administrator assignment", ErrInvalidRole, role.Name)
		}
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		ID:           ids.New(),
		Email:        email,
		FullName:     strings.TrimSpace(p.FullName),
		PasswordHash: hash,
		Active:       true,
		Verified:     false,
		RoleID:       role.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) resolveRole(ctx context.Context, roleID string) (*Role, error) {
	roles := s.store.Roles(ctx)
	if strings.TrimSpace(roleID) == "" {
		role, err := roles.FindByName(ctx, RoleEnterprise)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: default role missing", ErrInvalidRole)
		}
		return role, err
	}
	role, err := roles.Find(ctx, roleID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidRole
	}
	if err != nil {
		return nil, fmt.Errorf("lookup role: %w", err)
	}
	return role, nil
}

// Refresh exchanges a still-valid token for a fresh access token. The subject
// must still exist and be active; tokens of both types are accepted.
func (s *Service) Refresh(ctx context.Context, raw string) (string, time.Time, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return "", time.Time{}, ErrUnauthenticated
	}

	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return "", time.Time{}, ErrUnauthenticated
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return "", time.Time{}, ErrAccountInactive
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, TokenTypeAccess)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return token, expiresAt, nil
}
