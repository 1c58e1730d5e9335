package auth

import (
	"context"
	"errors"
	"fmt"
)

// Guard is the single authorization gate every protected operation goes
// through: resolve the token to a user, check the account is active, then
// check the role requirement. There is deliberately no other place in the
// codebase that makes this decision.
type Guard struct {
	tokens *TokenService
	store  Store
}

// NewGuard constructs the access guard.
func NewGuard(tokens *TokenService, store Store) (*Guard, error) {
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	return &Guard{tokens: tokens, store: store}, nil
}

// Authorize resolves a bearer token to a principal and enforces the required
// role set. An empty required set is a pure authentication check: any active
// authenticated user passes. The inactive check runs before the role check so
// a disabled admin sees ErrAccountInactive, not ErrForbidden.
func (g *Guard) Authorize(ctx context.Context, token string, required ...RoleName) (Principal, error) {
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return Principal{}, ErrUnauthenticated
	}

	user, err := g.store.Users(ctx).Find(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrUnauthenticated
	}
	if err != nil {
		return Principal{}, fmt.Errorf("load subject: %w", err)
	}
	if !user.Active {
		return Principal{}, ErrAccountInactive
	}

	role, err := g.store.Roles(ctx).Find(ctx, user.RoleID)
	if errors.Is(err, ErrNotFound) {
		// A user whose role row disappeared cannot satisfy any requirement.
		if len(required) > 0 {
			return Principal{}, ErrForbidden
		}
		return Principal{User: user}, nil
	}
	if err != nil {
		return Principal{}, fmt.Errorf("load role: %w", err)
	}

	name, _ := KnownRole(role.Name)
	principal := Principal{User: user, Role: name}
	if len(required) == 0 {
		return principal, nil
	}
	for _, want := range required {
		if name == want {
			return principal, nil
		}
	}
	return Principal{}, ErrForbidden
}
