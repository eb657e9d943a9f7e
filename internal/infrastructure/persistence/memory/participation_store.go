package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/isuventra/attendance-hub/internal/domain/attendance"
	"github.com/isuventra/attendance-hub/internal/domain/shared"
)

const lockStripes = 64

// ParticipationStore implements attendance.Store.
//
// Each key maps onto one of a fixed set of stripe semaphores; holding a stripe
// is the key lock. Writers stage their changes in a transaction that is
// applied under the table lock only when the callback succeeds.
type ParticipationStore struct {
	stripes [lockStripes]chan struct{}

	mu     sync.RWMutex
	rows   map[int64]*attendance.Participation
	nextID int64
}

// NewParticipationStore creates an empty store.
func NewParticipationStore() *ParticipationStore {
	s := &ParticipationStore{rows: make(map[int64]*attendance.Participation)}
	for i := range s.stripes {
		s.stripes[i] = make(chan struct{}, 1)
	}
	return s
}

func stripeOf(key attendance.Key) int {
	h := uint64(key.StudentID)*0x9E3779B97F4A7C15 ^ uint64(key.EventID)
	return int(h % lockStripes)
}

// WithKeyLock implements attendance.Store.
func (s *ParticipationStore) WithKeyLock(ctx context.Context, key attendance.Key, fn func(tx attendance.Tx) error) error {
	stripe := s.stripes[stripeOf(key)]
	select {
	case stripe <- struct{}{}:
	case <-ctx.Done():
		return shared.WrapError("participation", "WithKeyLock", shared.ErrTimeout, "waiting for key lock", ctx.Err())
	}
	defer func() { <-stripe }()

	tx := &memTx{
		store:   s,
		closes:  make(map[int64]*attendance.Participation),
		deletes: make(map[int64]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return shared.WrapError("participation", "Commit", shared.ErrTimeout, "context done before commit", err)
	}
	tx.commit()
	return nil
}

// GetByID implements attendance.Store.
func (s *ParticipationStore) GetByID(_ context.Context, id int64) (*attendance.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.rows[id]
	if !ok {
		return nil, shared.ErrParticipationNotFound
	}
	return p.Clone(), nil
}

// FindByKey implements attendance.Store.
func (s *ParticipationStore) FindByKey(_ context.Context, key attendance.Key) ([]*attendance.Participation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(key), nil
}

// All returns every participation ordered by ID.
func (s *ParticipationStore) All() []*attendance.Participation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*attendance.Participation, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of stored participations.
func (s *ParticipationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// OpenSessions counts open sessions for key.
func (s *ParticipationStore) OpenSessions(key attendance.Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.rows {
		if p.Key() == key && p.IsOpen() {
			n++
		}
	}
	return n
}

func (s *ParticipationStore) findLocked(key attendance.Key) []*attendance.Participation {
	var out []*attendance.Participation
	for _, p := range s.rows {
		if p.Key() == key {
			out = append(out, p.Clone())
		}
	}
	sortByTimeIn(out)
	return out
}

func (s *ParticipationStore) allocateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func sortByTimeIn(rows []*attendance.Participation) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TimeIn.Equal(rows[j].TimeIn) {
			return rows[i].ID < rows[j].ID
		}
		return rows[i].TimeIn.Before(rows[j].TimeIn)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Transaction
// ─────────────────────────────────────────────────────────────────────────────

// memTx stages writes. Reads see committed rows with the staged changes
// applied on top.
type memTx struct {
	store   *ParticipationStore
	inserts []*attendance.Participation
	closes  map[int64]*attendance.Participation
	deletes map[int64]bool
}

func (tx *memTx) FindByKey(ctx context.Context, key attendance.Key) ([]*attendance.Participation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx.store.mu.RLock()
	committed := tx.store.findLocked(key)
	tx.store.mu.RUnlock()

	out := make([]*attendance.Participation, 0, len(committed)+len(tx.inserts))
	for _, p := range committed {
		if tx.deletes[p.ID] {
			continue
		}
		if c, ok := tx.closes[p.ID]; ok {
			p = c.Clone()
		}
		out = append(out, p)
	}
	for _, p := range tx.inserts {
		if p.Key() == key {
			out = append(out, p.Clone())
		}
	}
	sortByTimeIn(out)
	return out, nil
}

func (tx *memTx) Insert(ctx context.Context, p *attendance.Participation) error {
	if p.IsOpen() {
		rows, err := tx.FindByKey(ctx, p.Key())
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.IsOpen() {
				return shared.ErrDuplicateOpenSession
			}
		}
	}
	p.ID = tx.store.allocateID()
	tx.inserts = append(tx.inserts, p.Clone())
	return nil
}

func (tx *memTx) Close(ctx context.Context, p *attendance.Participation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !tx.exists(p.ID) {
		return shared.ErrParticipationNotFound
	}
	for i, staged := range tx.inserts {
		if staged.ID == p.ID {
			tx.inserts[i] = p.Clone()
			return nil
		}
	}
	tx.closes[p.ID] = p.Clone()
	return nil
}

func (tx *memTx) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !tx.exists(id) {
		return shared.ErrParticipationNotFound
	}
	for i, staged := range tx.inserts {
		if staged.ID == id {
			tx.inserts = append(tx.inserts[:i], tx.inserts[i+1:]...)
			return nil
		}
	}
	tx.deletes[id] = true
	return nil
}

func (tx *memTx) exists(id int64) bool {
	if tx.deletes[id] {
		return false
	}
	for _, p := range tx.inserts {
		if p.ID == id {
			return true
		}
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	_, ok := tx.store.rows[id]
	return ok
}

func (tx *memTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.deletes {
		delete(s.rows, id)
	}
	for id, p := range tx.closes {
		if _, ok := s.rows[id]; ok {
			s.rows[id] = p
		}
	}
	for _, p := range tx.inserts {
		s.rows[p.ID] = p
	}
}
