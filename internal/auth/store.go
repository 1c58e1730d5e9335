package auth

import (
	"context"
	"errors"
	"time"
)

// Store describes persistence operations required by the identity subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Roles(ctx context.Context) RoleStore
}

// UserStore manages user records. Email lookups are case-insensitive.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, when time.Time) error
}

// RoleStore manages the role catalog. Roles are provisioned at seed time and
// must exist before any user referencing them can be created.
type RoleStore interface {
	Create(ctx context.Context, role *Role) error
	Find(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name RoleName) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
}

// EnsureRoles creates any of the known roles that are missing. Used by the
// in-memory store at startup; the SQL seeder covers postgres deployments.
func EnsureRoles(ctx context.Context, store Store) error {
	roles := store.Roles(ctx)
	for _, name := range KnownRoles {
		if _, err := roles.FindByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		role := &Role{Name: string(name), Description: roleDescriptions[name]}
		if err := roles.Create(ctx, role); err != nil {
			return err
		}
	}
	return nil
}

var roleDescriptions = map[RoleName]string{
	RoleAdmin:      "Full administrative control over users, roles and attestations",
	RoleRegulator:  "Regulatory oversight of standards and attestations",
	RoleAuditor:    "Read access for conformity assessment work",
	RoleEnterprise: "Organization account holding attestations",
}
