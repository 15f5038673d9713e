package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pulsechat/pulsechat-server/internal/store"
	"github.com/pulsechat/pulsechat-server/internal/utils"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS groups (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id  TEXT NOT NULL REFERENCES groups(id),
	user_id   TEXT NOT NULL REFERENCES users(id),
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    TEXT NOT NULL REFERENCES users(id),
	recipient_id TEXT,
	group_id     TEXT,
	ciphertext   TEXT NOT NULL DEFAULT '',
	file_url     TEXT,
	file_type    TEXT,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK ((recipient_id IS NULL) != (group_id IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_messages_direct
	ON messages (sender_id, recipient_id, id);
CREATE INDEX IF NOT EXISTS idx_messages_group
	ON messages (group_id, id);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best over a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	id := utils.NewID()
	query := `
		INSERT INTO users (id, username, password_hash)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, username, passwordHash); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== GroupStore implementation ====

// CreateGroup creates a group and adds the owner as its first member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name, ownerID string) (*store.Group, error) {
	id := utils.NewID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, owner_id) VALUES (?, ?, ?)`,
		id, name, ownerID,
	); err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`,
		id, ownerID,
	); err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	var group store.Group
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM groups WHERE id = ?`, id,
	).Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query group: %w", err)
	}
	return &group, nil
}

// AddMember adds a user to a group. Adding an existing member is a no-op.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID string) error {
	query := `
		INSERT OR IGNORE INTO group_members (group_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// GroupsFor lists the IDs of all groups the user belongs to.
func (s *SQLiteStore) GroupsFor(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT group_id FROM group_members
		WHERE user_id = ?
		ORDER BY group_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MembersOf lists the user IDs of all members of a group.
func (s *SQLiteStore) MembersOf(ctx context.Context, groupID string) ([]string, error) {
	query := `
		SELECT user_id FROM group_members
		WHERE group_id = ?
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// IsMember reports whether the user belongs to the group.
func (s *SQLiteStore) IsMember(ctx context.Context, userID, groupID string) (bool, error) {
	query := `
		SELECT 1 FROM group_members
		WHERE group_id = ? AND user_id = ?
	`
	var one int
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

// ==== MessageStore implementation ====

// AppendMessage persists a message, assigning its ID and CreatedAt.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *store.Message) (*store.Message, error) {
	query := `
		INSERT INTO messages (sender_id, recipient_id, group_id, ciphertext, file_url, file_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var fileURL, fileType *string
	if msg.File != nil {
		fileURL, fileType = &msg.File.URL, &msg.File.Type
	}

	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		msg.SenderID,
		nullable(msg.RecipientID),
		nullable(msg.GroupID),
		msg.Ciphertext,
		fileURL,
		fileType,
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	saved := *msg
	saved.ID = id
	saved.CreatedAt = createdAt
	return &saved, nil
}

// ListDirectMessages returns messages exchanged between two users, oldest first.
func (s *SQLiteStore) ListDirectMessages(ctx context.Context, userA, userB string, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, COALESCE(recipient_id, ''), COALESCE(group_id, ''),
		       ciphertext, file_url, file_type, created_at
		FROM messages
		WHERE ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		  AND (? IS NULL OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, userA, userB, userB, userA, beforeID, beforeID, limitOrDefault(limit))
}

// ListGroupMessages returns messages sent to a group, oldest first.
func (s *SQLiteStore) ListGroupMessages(ctx context.Context, groupID string, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, COALESCE(recipient_id, ''), COALESCE(group_id, ''),
		       ciphertext, file_url, file_type, created_at
		FROM messages
		WHERE group_id = ?
		  AND (? IS NULL OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, groupID, beforeID, beforeID, limitOrDefault(limit))
}

func (s *SQLiteStore) listMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*store.Message
	for rows.Next() {
		var (
			msg      store.Message
			fileURL  sql.NullString
			fileType sql.NullString
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.GroupID,
			&msg.Ciphertext,
			&fileURL,
			&fileType,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if fileURL.Valid {
			msg.File = &store.FileRef{URL: fileURL.String, Type: fileType.String}
		}
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Rows are fetched newest-first for the LIMIT; callers want oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
