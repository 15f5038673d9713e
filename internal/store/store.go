package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Group represents a named chat group.
type Group struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
}

// FileRef points at an externally stored attachment. The blob itself
// lives in the file store; only the reference travels with a message.
type FileRef struct {
	URL  string
	Type string
}

// Message is a persisted chat message. The payload is ciphertext as
// produced by the sending client; the server never sees plaintext.
// Exactly one of RecipientID or GroupID is set.
type Message struct {
	ID          int64
	SenderID    string
	RecipientID string
	GroupID     string
	Ciphertext  string
	File        *FileRef
	CreatedAt   time.Time
}

// Direct reports whether the message targets a single recipient.
func (m *Message) Direct() bool {
	return m.RecipientID != ""
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// GroupStore exposes the group-membership surface the delivery core
// needs. Group CRUD beyond this lives behind the REST layer.
type GroupStore interface {
	// CreateGroup creates a group owned by the given user. The owner
	// becomes a member.
	CreateGroup(ctx context.Context, name, ownerID string) (*Group, error)

	// AddMember adds a user to a group. Adding an existing member is a
	// no-op.
	AddMember(ctx context.Context, groupID, userID string) error

	// GroupsFor lists the IDs of all groups the user belongs to.
	GroupsFor(ctx context.Context, userID string) ([]string, error)

	// MembersOf lists the user IDs of all members of a group.
	MembersOf(ctx context.Context, groupID string) ([]string, error)

	// IsMember reports whether the user belongs to the group.
	IsMember(ctx context.Context, userID, groupID string) (bool, error)
}

// MessageStore is the append/query surface over persisted messages.
type MessageStore interface {
	// AppendMessage persists a message, assigning its ID and CreatedAt.
	// The returned message is the stored copy.
	AppendMessage(ctx context.Context, msg *Message) (*Message, error)

	// ListDirectMessages returns messages exchanged between two users,
	// oldest first. If beforeID is non-nil only messages older than that
	// ID are returned.
	ListDirectMessages(ctx context.Context, userA, userB string, limit int, beforeID *int64) ([]*Message, error)

	// ListGroupMessages returns messages sent to a group, oldest first.
	ListGroupMessages(ctx context.Context, groupID string, limit int, beforeID *int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	GroupStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
