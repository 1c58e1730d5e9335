package auth

import (
	"context"
	"sync"
	"time"

	"gias.org/internal/ids"
)

// Memory implements Store with in-process maps. Used by tests and by the
// server when no database DSN is configured.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string // normalized email -> user id
	roles   map[string]*Role
	byRole  map[RoleName]string // role name -> role id
}

// NewMemory creates an empty in-memory identity store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		roles:   make(map[string]*Role),
		byRole:  make(map[RoleName]string),
	}
}

func (m *Memory) Users(ctx context.Context) UserStore { return (*memoryUsers)(m) }
func (m *Memory) Roles(ctx context.Context) RoleStore { return (*memoryRoles)(m) }

type memoryUsers Memory

func (m *memoryUsers) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	key := NormalizeEmail(u.Email)
	if _, taken := m.byEmail[key]; taken {
		return ErrEmailTaken
	}
	if _, ok := m.roles[u.RoleID]; !ok {
		return ErrInvalidRole
	}
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[key] = u.ID
	return nil
}

func (m *memoryUsers) Find(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *memoryUsers) List(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryUsers) Update(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	// Validate everything before touching the email index so a rejected
	// update leaves the store untouched.
	if _, ok := m.roles[u.RoleID]; !ok {
		return ErrInvalidRole
	}
	newKey := NormalizeEmail(u.Email)
	oldKey := NormalizeEmail(old.Email)
	if newKey != oldKey {
		if _, taken := m.byEmail[newKey]; taken {
			return ErrEmailTaken
		}
		delete(m.byEmail, oldKey)
		m.byEmail[newKey] = u.ID
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryUsers) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byEmail, NormalizeEmail(u.Email))
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	t := when
	u.LastLogin = &t
	u.UpdatedAt = when
	return nil
}

type memoryRoles Memory

func (m *memoryRoles) Create(ctx context.Context, role *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if role.ID == "" {
		role.ID = ids.New()
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
		role.UpdatedAt = role.CreatedAt
	}
	name := RoleName(role.Name)
	if _, taken := m.byRole[name]; taken {
		return ErrConflict
	}
	cp := *role
	m.roles[role.ID] = &cp
	m.byRole[name] = role.ID
	return nil
}

func (m *memoryRoles) Find(ctx context.Context, id string) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (m *memoryRoles) FindByName(ctx context.Context, name RoleName) (*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byRole[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.roles[id]
	return &cp, nil
}

func (m *memoryRoles) List(ctx context.Context) ([]*Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Role, 0, len(m.roles))
	for _, role := range m.roles {
		cp := *role
		out = append(out, &cp)
	}
	return out, nil
}
