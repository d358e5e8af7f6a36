package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/domain"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/core/port"
	"github.com/Will-Gue/APLICACIONVISITAS/internal/repository"
)

type storeState struct {
	principals  map[int64]domain.Principal
	roles       map[string]domain.Role
	assignments []domain.UserRole
	nextID      int64
}

func (s storeState) clone() storeState {
	out := storeState{
		principals:  make(map[int64]domain.Principal, len(s.principals)),
		roles:       make(map[string]domain.Role, len(s.roles)),
		assignments: append([]domain.UserRole(nil), s.assignments...),
		nextID:      s.nextID,
	}
	for k, v := range s.principals {
		out.principals[k] = v
	}
	for k, v := range s.roles {
		out.roles[k] = v
	}
	return out
}

// memoryStore is an in-memory principal and role store with snapshot transactions.
type memoryStore struct {
	mu    sync.Mutex
	state storeState

	findErr   error
	existsErr error
	createErr error
	updateErr error
	assignErr error
	listErr   error
	// skipExists makes the existence checks report false, as a concurrent
	// registration racing the pre-check would observe.
	skipExists bool

	commits   int
	rollbacks int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: storeState{
		principals: map[int64]domain.Principal{},
		roles: map[string]domain.Role{
			"user":  {ID: 1, Name: "user", IsActive: true},
			"admin": {ID: 2, Name: "admin", IsActive: true},
		},
		nextID: 1,
	}}
}

func (m *memoryStore) principalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.principals)
}

func (m *memoryStore) seed(p domain.Principal, roles ...domain.UserRole) domain.Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.state.nextID
	}
	if p.ID >= m.state.nextID {
		m.state.nextID = p.ID + 1
	}
	m.state.principals[p.ID] = p
	for _, r := range roles {
		r.UserID = p.ID
		m.state.assignments = append(m.state.assignments, r)
	}
	return p
}

func (m *memoryStore) remove(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.principals, id)
}

// view binds the store operations to a state snapshot.
type view struct {
	store *memoryStore
	state *storeState
}

func (m *memoryStore) direct() view {
	return view{store: m, state: &m.state}
}

func (v view) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
	if v.store.findErr != nil {
		return nil, v.store.findErr
	}
	for _, p := range v.state.principals {
		if p.Email == email {
			copy := p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v view) FindByID(_ context.Context, id int64) (*domain.Principal, error) {
	if v.store.findErr != nil {
		return nil, v.store.findErr
	}
	p, ok := v.state.principals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (v view) ExistsByEmail(_ context.Context, email string) (bool, error) {
	if v.store.existsErr != nil {
		return false, v.store.existsErr
	}
	if v.store.skipExists {
		return false, nil
	}
	for _, p := range v.state.principals {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (v view) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	if v.store.existsErr != nil {
		return false, v.store.existsErr
	}
	if v.store.skipExists {
		return false, nil
	}
	for _, p := range v.state.principals {
		if p.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (v view) Create(_ context.Context, p domain.Principal) (domain.Principal, error) {
	if v.store.createErr != nil {
		return domain.Principal{}, v.store.createErr
	}
	for _, existing := range v.state.principals {
		if existing.Email == p.Email {
			return domain.Principal{}, &repository.ConstraintError{Constraint: "users_email_lower_key", Field: "email"}
		}
		if existing.Phone == p.Phone {
			return domain.Principal{}, &repository.ConstraintError{Constraint: "users_phone_key", Field: "phone"}
		}
	}
	p.ID = v.state.nextID
	v.state.nextID++
	v.state.principals[p.ID] = p
	return p, nil
}

func (v view) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	if v.store.updateErr != nil {
		return v.store.updateErr
	}
	p, ok := v.state.principals[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = hash
	v.state.principals[id] = p
	return nil
}

func (m *memoryStore) passwordHash(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.principals[id].PasswordHash
}

func (v view) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r, ok := v.state.roles[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (v view) ListActiveByUser(_ context.Context, userID int64) ([]domain.Role, error) {
	if v.store.listErr != nil {
		return nil, v.store.listErr
	}
	var active []domain.UserRole
	for _, a := range v.state.assignments {
		if a.UserID == userID && a.IsActive && a.RevokedAt == nil {
			active = append(active, a)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].AssignedAt.Equal(active[j].AssignedAt) {
			return active[i].RoleID < active[j].RoleID
		}
		return active[i].AssignedAt.Before(active[j].AssignedAt)
	})

	var out []domain.Role
	for _, a := range active {
		for _, r := range v.state.roles {
			if r.ID == a.RoleID && r.IsActive {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (v view) Assign(_ context.Context, a domain.UserRole) error {
	if v.store.assignErr != nil {
		return v.store.assignErr
	}
	v.state.assignments = append(v.state.assignments, a)
	return nil
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(context.Context, port.TxStores) error) (err error) {
	m.mu.Lock()
	staged := m.state.clone()
	m.mu.Unlock()

	tx := view{store: m, state: &staged}
	defer func() {
		if r := recover(); r != nil {
			m.rollbacks++
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	if err := fn(ctx, port.TxStores{Principals: tx, Roles: tx}); err != nil {
		m.rollbacks++
		return err
	}
	if err := ctx.Err(); err != nil {
		m.rollbacks++
		return err
	}

	m.mu.Lock()
	m.state = staged
	m.commits++
	m.mu.Unlock()
	return nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	registered []domain.PrincipalRegisteredEvent
	failed     []domain.LoginFailedEvent
	err        error
}

func (p *recordingPublisher) PublishPrincipalRegistered(_ context.Context, e domain.PrincipalRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, e)
	return p.err
}

func (p *recordingPublisher) PublishLoginFailed(_ context.Context, e domain.LoginFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, e)
	return p.err
}

type countingMetrics struct {
	logins        map[string]int
	registrations map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{logins: map[string]int{}, registrations: map[string]int{}}
}

func (c *countingMetrics) LoginAttempt(outcome string) { c.logins[outcome]++ }
func (c *countingMetrics) Registration(outcome string) { c.registrations[outcome]++ }

type failingTokens struct {
	port.TokenService
}

func (failingTokens) Issue(domain.Principal, string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signer unavailable")
}
