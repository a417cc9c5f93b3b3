// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	viewData  map[string]*ViewRecord // keyed by "sessionID\x00viewKey"
	users     map[string]*User       // keyed by username
	saveCalls int
	loadCalls int

	// SaveErr, when set, is returned by SaveViewData.
	SaveErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		viewData: make(map[string]*ViewRecord),
		users:    make(map[string]*User),
	}
}

func viewDataKey(sessionID, viewKey string) string {
	return sessionID + "\x00" + viewKey
}

// LoadViewData retrieves stored view data, returning ErrNotFound when absent.
func (m *MockStore) LoadViewData(ctx context.Context, sessionID, viewKey string) (*ViewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadCalls++
	rec, ok := m.viewData[viewDataKey(sessionID, viewKey)]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	result := *rec
	result.Data = append([]byte(nil), rec.Data...)
	return &result, nil
}

// SaveViewData stores view data, overwriting any previous value.
func (m *MockStore) SaveViewData(ctx context.Context, sessionID, viewKey string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.viewData[viewDataKey(sessionID, viewKey)] = &ViewRecord{
		SessionID: sessionID,
		ViewKey:   viewKey,
		Data:      append([]byte(nil), data...),
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// DeleteViewData removes stored view data.
func (m *MockStore) DeleteViewData(ctx context.Context, sessionID, viewKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.viewData, viewDataKey(sessionID, viewKey))
	return nil
}

// SaveCalls reports how many times SaveViewData was called.
func (m *MockStore) SaveCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCalls
}

// LoadCalls reports how many times LoadViewData was called.
func (m *MockStore) LoadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCalls
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Username]; exists {
		return ErrDuplicateUser
	}
	u := *user
	u.Roles = append([]string(nil), user.Roles...)
	m.users[u.Username] = &u
	return nil
}

// GetUserByUsername retrieves a user by username.
func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	result := *u
	result.Roles = append([]string(nil), u.Roles...)
	return &result, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
