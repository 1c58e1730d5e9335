package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"gias.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(ctx context.Context) UserStore { return &pgUsers{db: s.db} }
func (s *PGStore) Roles(ctx context.Context) RoleStore { return &pgRoles{db: s.db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User store ---------------------------------------------------------------

type pgUsers struct{ db *sql.DB }

const userColumns = `id, email, full_name, password_hash, is_active, is_verified, role_id, coalesce(organization_id, ''), created_at, updated_at, last_login`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u        User
		fullName sql.NullString
		last     sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &fullName, &u.PasswordHash, &u.Active, &u.Verified,
		&u.RoleID, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.FullName = fullName.String
	if last.Valid {
		t := last.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *pgUsers) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, full_name, password_hash, is_active, is_verified, role_id, organization_id, created_at, updated_at)
		 values($1,$2,$3,$4,$5,$6,$7,nullif($8,''),$9,$10)`,
		u.ID, u.Email, nullIfEmpty(u.FullName), u.PasswordHash, u.Active, u.Verified,
		u.RoleID, u.OrganizationID, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *pgUsers) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *pgUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email)=lower($1)`, email)
	return scanUser(row)
}

func (s *pgUsers) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *pgUsers) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`update users set email=$2, full_name=$3, is_active=$4, is_verified=$5, role_id=$6,
		 organization_id=nullif($7,''), updated_at=$8 where id=$1`,
		u.ID, u.Email, nullIfEmpty(u.FullName), u.Active, u.Verified, u.RoleID,
		u.OrganizationID, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgUsers) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *pgUsers) TouchLastLogin(ctx context.Context, id string, when time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login=$2, updated_at=$2 where id=$1`, id, when)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// Role store ---------------------------------------------------------------

type pgRoles struct{ db *sql.DB }

const roleColumns = `id, name, coalesce(description, ''), coalesce(permissions, ''), created_at, updated_at`

func scanRole(row interface{ Scan(...any) error }) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions,
		&role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *pgRoles) Create(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into roles(id, name, description, permissions) values($1,$2,$3,$4)`,
		role.ID, role.Name, nullIfEmpty(role.Description), nullIfEmpty(role.Permissions),
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *pgRoles) Find(ctx context.Context, id string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `select `+roleColumns+` from roles where id=$1`, id)
	return scanRole(row)
}

func (s *pgRoles) FindByName(ctx context.Context, name RoleName) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `select `+roleColumns+` from roles where name=$1`, string(name))
	return scanRole(row)
}

func (s *pgRoles) List(ctx context.Context) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx, `select `+roleColumns+` from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
