package auth

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// policyRows is the subset of pgx.Rows the store reads.
type policyRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// policyConn is the minimal database interface required by PolicyStorePG.
// *pgxpool.Pool is wrapped by poolConn; tests provide fakes.
type policyConn interface {
	Query(ctx context.Context, sql string, args ...any) (policyRows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type poolConn struct {
	pool *pgxpool.Pool
}

func (p poolConn) Query(ctx context.Context, sql string, args ...any) (policyRows, error) {
	return p.pool.Query(ctx, sql, args...)
}

func (p poolConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return p.pool.Begin(ctx)
}

// PolicyStorePG keeps the permission table in the role_permissions table.
// The engine never reads it directly: the table is loaded once at startup
// and handed to NewChecker.
type PolicyStorePG struct {
	db policyConn
}

// NewPolicyStorePG wraps a connection pool.
func NewPolicyStorePG(pool *pgxpool.Pool) *PolicyStorePG {
	return &PolicyStorePG{db: poolConn{pool: pool}}
}

func newPolicyStore(db policyConn) *PolicyStorePG {
	return &PolicyStorePG{db: db}
}

// Load reads every grant and builds a validated table.
func (s *PolicyStorePG) Load(ctx context.Context) (PermissionTable, error) {
	rows, err := s.db.Query(ctx, `SELECT role, permission FROM role_permissions ORDER BY role, permission`)
	if err != nil {
		return nil, fmt.Errorf("query role_permissions: %w", err)
	}
	defer rows.Close()

	var result *multierror.Error
	grants := make(map[Role][]string)
	for rows.Next() {
		var roleName, perm string
		if err := rows.Scan(&roleName, &perm); err != nil {
			return nil, fmt.Errorf("scan role_permissions: %w", err)
		}
		role := ParseRole(roleName)
		if !role.IsKnown() {
			result = multierror.Append(result, fmt.Errorf("unknown role %q in role_permissions", roleName))
			continue
		}
		grants[role] = append(grants[role], perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role_permissions: %w", err)
	}
	for role, perms := range grants {
		if err := checkEntries(role, perms); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	t := NewPermissionTable(grants)
	if err := ValidateTable(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Replace swaps the stored grants for t in a single transaction.
func (s *PolicyStorePG) Replace(ctx context.Context, t PermissionTable) error {
	if err := ValidateTable(t); err != nil {
		return fmt.Errorf("refusing to store invalid table: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions`); err != nil {
		return fmt.Errorf("clear role_permissions: %w", err)
	}
	for _, role := range KnownRoles() {
		for _, perm := range t.List(role) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role, permission) VALUES ($1, $2)`,
				role.String(), perm,
			); err != nil {
				return fmt.Errorf("insert %s/%s: %w", role, perm, err)
			}
		}
	}
	return tx.Commit(ctx)
}
