package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
	"github.com/isuventra/attendance-hub/pkg/password"
)

// AdminDirectory implements attendance.AdminDirectory over bcrypt hashes.
type AdminDirectory struct {
	mu      sync.RWMutex
	byEmail map[string]*attendance.Admin
	nextID  int64
	cost    int
}

// NewAdminDirectory creates an empty directory hashing with cost.
// A cost of zero uses password.DefaultCost.
func NewAdminDirectory(cost int) *AdminDirectory {
	return &AdminDirectory{byEmail: make(map[string]*attendance.Admin), cost: cost}
}

// Add hashes plain and stores the admin, assigning an ID when a.ID is zero.
func (d *AdminDirectory) Add(a attendance.Admin, plain string) (*attendance.Admin, error) {
	hash, err := password.Hash(plain, d.cost)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if a.ID == 0 {
		d.nextID++
		a.ID = d.nextID
	} else if a.ID > d.nextID {
		d.nextID = a.ID
	}
	a.Email = normalizeEmail(a.Email)
	a.PasswordHash = hash
	a.ManagedEventIDs = append([]int64(nil), a.ManagedEventIDs...)
	d.byEmail[a.Email] = &a

	c := a
	return &c, nil
}

// Authenticate implements attendance.AdminDirectory.
func (d *AdminDirectory) Authenticate(_ context.Context, email, plain string) (*attendance.Admin, error) {
	d.mu.RLock()
	a, ok := d.byEmail[normalizeEmail(email)]
	var hash string
	if ok {
		hash = a.PasswordHash
	}
	d.mu.RUnlock()

	if !password.Verify(hash, plain) {
		return nil, shared.ErrInvalidCredentials
	}
	c := *a
	c.ManagedEventIDs = append([]int64(nil), a.ManagedEventIDs...)
	return &c, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
