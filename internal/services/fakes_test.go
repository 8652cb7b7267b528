package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/subsmanager/backend/internal/billing"
	"github.com/subsmanager/backend/internal/models"
	"github.com/subsmanager/backend/internal/store"
)

// memStore is an in-memory stand-in for store.Store.
type memStore struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*models.User
	subs      map[uuid.UUID]*models.Subscription
	mutations int
	failNext  error
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[uuid.UUID]*models.User),
		subs:  make(map[uuid.UUID]*models.Subscription),
	}
}

func (m *memStore) addUser(tier models.Tier, customerRef string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{
		ID:       uuid.New(),
		FullName: "Test User",
		Username: "user-" + uuid.NewString()[:8],
		Tier:     tier,
	}
	u.Email = u.Username + "@example.com"
	if customerRef != "" {
		ref := customerRef
		u.StripeCustomerID = &ref
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) user(id uuid.UUID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

func (m *memStore) takeErr() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return err
	}
	cp := *user
	m.users[user.ID] = &cp
	m.mutations++
	return nil
}

func (m *memStore) FindUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == login || u.Email == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) UserExists(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindUserByCustomerRef(_ context.Context, ref string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeErr(); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == ref {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memStore) SetTier(_ context.Context, userID uuid.UUID, tier models.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.Tier = tier
	m.mutations++
	return nil
}

func (m *memStore) SetCustomerRef(_ context.Context, userID uuid.UUID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	if u.StripeCustomerID != nil {
		return store.ErrCustomerRefSet
	}
	u.StripeCustomerID = &ref
	m.mutations++
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return 0, store.ErrNotFound
	}
	var removed int64
	for id, s := range m.subs {
		if s.UserID == userID {
			delete(m.subs, id)
			removed++
		}
	}
	delete(m.users, userID)
	m.mutations++
	return removed, nil
}

func (m *memStore) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.subs[sub.ID] = &cp
	m.mutations++
	return nil
}

func (m *memStore) FindSubscription(_ context.Context, id uuid.UUID) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSubscriptions(_ context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Subscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStore) SaveSubscription(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.subs[sub.ID]
	if !ok {
		return store.ErrNotFound
	}
	cp := *sub
	cp.UserID = existing.UserID
	m.subs[sub.ID] = &cp
	m.mutations++
	return nil
}

func (m *memStore) DeleteSubscription(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.subs, id)
	m.mutations++
	return nil
}

func (m *memStore) mutationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutations
}

// mockProcessor stubs the payment processor.
type mockProcessor struct {
	mock.Mock
}

func (p *mockProcessor) CreateCustomer(ctx context.Context, params billing.CustomerParams) (string, error) {
	args := p.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (p *mockProcessor) CreateCheckoutSession(ctx context.Context, customerRef string) (string, error) {
	args := p.Called(ctx, customerRef)
	return args.String(0), args.Error(1)
}
