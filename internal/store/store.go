// ABOUTME: Store interfaces and data types for viewgate persistence
// ABOUTME: Defines view-data records, users, and the ViewDataStore/UserStore contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateUser is returned when creating a user whose username is taken
var ErrDuplicateUser = errors.New("user already exists")

// ViewRecord is the persisted state of one view for one session.
type ViewRecord struct {
	SessionID string
	ViewKey   string
	Data      []byte // opaque serialized view data
	UpdatedAt time.Time
}

// User is an account that can log in with a password.
type User struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt
	Roles        []string
	CreatedAt    time.Time
}

// ViewDataStore persists view data keyed by (sessionID, viewKey).
// Implementations must provide atomic single-record reads and upserts.
type ViewDataStore interface {
	// LoadViewData returns ErrNotFound when nothing is stored for the pair.
	LoadViewData(ctx context.Context, sessionID, viewKey string) (*ViewRecord, error)
	SaveViewData(ctx context.Context, sessionID, viewKey string, data []byte) error
	// DeleteViewData is a no-op when nothing is stored for the pair.
	DeleteViewData(ctx context.Context, sessionID, viewKey string) error
}

// UserStore persists accounts.
type UserStore interface {
	// CreateUser returns ErrDuplicateUser when the username is taken.
	CreateUser(ctx context.Context, user *User) error
	// GetUserByUsername returns ErrNotFound for unknown usernames.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// Store combines every persistence interface.
type Store interface {
	ViewDataStore
	UserStore
	Close() error
}
