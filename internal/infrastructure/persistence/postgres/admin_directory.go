package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/password"
)

// AdminDirectory implements attendance.AdminDirectory over the users table.
type AdminDirectory struct {
	conn *Connection
	cost int
}

// NewAdminDirectory creates a new AdminDirectory. A cost of zero uses
// password.DefaultCost for new hashes.
func NewAdminDirectory(conn *Connection, cost int) *AdminDirectory {
	return &AdminDirectory{conn: conn, cost: cost}
}

// Authenticate implements attendance.AdminDirectory.
func (d *AdminDirectory) Authenticate(ctx context.Context, email, plain string) (*attendance.Admin, error) {
	var (
		a    attendance.Admin
		role string
	)
	err := d.conn.QueryRow(ctx, `
		SELECT u.id, u.name, u.email, u.password, u.role,
		       COALESCE(array_agg(m.event_id ORDER BY m.event_id) FILTER (WHERE m.event_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN event_managers m ON m.user_id = u.id
		WHERE lower(u.email) = lower($1)
		GROUP BY u.id
	`, strings.TrimSpace(email)).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &a.ManagedEventIDs)
	if err != nil && !IsNoRows(err) {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	// Unknown emails still pay for a bcrypt comparison.
	if !password.Verify(a.PasswordHash, plain) {
		return nil, shared.ErrInvalidCredentials
	}
	a.Role = attendance.ParseRole(role)
	return &a, nil
}

// Create hashes plain and inserts the admin, setting a.ID.
func (d *AdminDirectory) Create(ctx context.Context, a *attendance.Admin, plain string) error {
	hash, err := password.Hash(plain, d.cost)
	if err != nil {
		return err
	}

	err = d.conn.QueryRow(ctx, `
		INSERT INTO users (name, email, password, role)
		VALUES ($1, lower($2), $3, $4)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, updated_at = NOW()
		RETURNING id
	`, a.Name, strings.TrimSpace(a.Email), hash, string(a.Role)).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("create admin %q: %w", a.Email, err)
	}
	a.PasswordHash = hash
	return nil
}
