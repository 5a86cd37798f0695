package router

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/tenant-auth-service/internal/model"
	"github.com/iliyamo/tenant-auth-service/internal/queue"
	"github.com/iliyamo/tenant-auth-service/internal/repository"
	"github.com/iliyamo/tenant-auth-service/internal/utils"
)

// In-memory stores with the same error contracts as the MySQL repositories.
// Each one serializes writes, which is what the unique index and row
// deletes give the real ones.

type memUsers struct {
	mu      sync.Mutex
	next    uint64
	byID    map[uint64]model.User
	byEmail map[string]uint64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]model.User{}, byEmail: map[string]uint64{}}
}

func (m *memUsers) Create(_ context.Context, nu repository.NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	email := strings.TrimSpace(nu.Email)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	m.next++
	now := time.Now().UTC()
	m.byID[m.next] = model.User{
		ID: m.next, FirstName: nu.FirstName, LastName: nu.LastName, Email: email,
		PasswordHash: hash, Role: nu.Role, TenantID: nu.TenantID, CreatedAt: now, UpdatedAt: now,
	}
	m.byEmail[email] = m.next
	return m.next, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *memUsers) FindByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) List(_ context.Context, lq repository.ListQuery) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.byID {
		if lq.Role != "" && u.Role != lq.Role {
			continue
		}
		if lq.Q != "" && !strings.Contains(u.FirstName+" "+u.LastName+" "+u.Email, lq.Q) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := min(lq.Offset(), total)
	end := min(start+lq.Limit(), total)
	return out[start:end], total, nil
}

func (m *memUsers) Update(_ context.Context, id uint64, upd repository.UserUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil
	}
	u.FirstName, u.LastName, u.Role, u.TenantID = upd.FirstName, upd.LastName, upd.Role, upd.TenantID
	m.byID[id] = u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(m.byID, id)
	delete(m.byEmail, u.Email)
	return nil
}

type memTokens struct {
	mu   sync.Mutex
	next uint64
	recs map[uint64]model.RefreshToken
}

func newMemTokens() *memTokens { return &memTokens{recs: map[uint64]model.RefreshToken{}} }

func (m *memTokens) Persist(_ context.Context, userID uint64, ttl time.Duration) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(userID, ttl), nil
}

func (m *memTokens) insert(userID uint64, ttl time.Duration) model.RefreshToken {
	m.next++
	now := time.Now().UTC()
	rec := model.RefreshToken{ID: m.next, UserID: userID, ExpiresAt: now.Add(ttl), CreatedAt: now}
	m.recs[rec.ID] = rec
	return rec
}

func (m *memTokens) FindByID(_ context.Context, id uint64) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return model.RefreshToken{}, repository.ErrRefreshTokenNotFound
	}
	return rec, nil
}

func (m *memTokens) Revoke(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

func (m *memTokens) Rotate(_ context.Context, oldID, userID uint64, ttl time.Duration) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.recs[oldID]
	if !ok || old.UserID != userID {
		return model.RefreshToken{}, repository.ErrRefreshTokenNotFound
	}
	delete(m.recs, oldID)
	return m.insert(userID, ttl), nil
}

func (m *memTokens) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type memTenants struct {
	mu   sync.Mutex
	next uint64
	rows map[uint64]model.Tenant
}

func newMemTenants() *memTenants { return &memTenants{rows: map[uint64]model.Tenant{}} }

func (m *memTenants) Create(_ context.Context, t *model.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	t.ID = m.next
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.rows[t.ID] = *t
	return nil
}

func (m *memTenants) GetByID(_ context.Context, id uint64) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrTenantNotFound
	}
	return &t, nil
}

func (m *memTenants) List(_ context.Context, lq repository.ListQuery) ([]model.Tenant, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Tenant{}
	for _, t := range m.rows {
		if lq.Q == "" || strings.Contains(t.Name+" "+t.Address, lq.Q) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := min(lq.Offset(), total)
	end := min(start+lq.Limit(), total)
	return out[start:end], total, nil
}

func (m *memTenants) Update(_ context.Context, id uint64, name, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.rows[id]
	t.Name, t.Address = name, address
	m.rows[id] = t
	return nil
}

func (m *memTenants) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrTenantNotFound
	}
	delete(m.rows, id)
	return nil
}

// recordingPublisher keeps every event it is given.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.AuthEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.AuthEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
