package drive

import (
	"context"
	"errors"

	"drive-go/internal/model"
)

// ErrDuplicateEntry is returned (wrapped) by CreateEntry and MoveEntry when
// the owner already has an entry at the target location.
var ErrDuplicateEntry = errors.New("entry already exists")

// Database provides an interface for metadata storage operations.
// Find methods return (nil, nil) when nothing matches.
type Database interface {
	// User operations

	// CreateUser inserts a user. Emails are unique.
	CreateUser(ctx context.Context, user *model.User) error

	// FindUserByID returns the user with the given id.
	FindUserByID(ctx context.Context, id string) (*model.User, error)

	// FindUserByEmail returns the user with the given (lowercased) email.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)

	// ListUsers returns every user except exceptID, ordered by email.
	ListUsers(ctx context.Context, exceptID string) ([]*model.User, error)

	// Permission catalog

	// ListPermissions returns the seeded permission kinds.
	ListPermissions(ctx context.Context) ([]model.Permission, error)

	// Entry operations

	// CreateEntry inserts an entry and, in the same transaction, a grant of
	// every catalog permission to its owner.
	CreateEntry(ctx context.Context, entry *model.Entry) error

	// FindEntryByID returns the entry with the given id.
	FindEntryByID(ctx context.Context, id string) (*model.Entry, error)

	// FindEntryByLink returns the entry whose shareable link equals token.
	FindEntryByLink(ctx context.Context, token string) (*model.Entry, error)

	// FindEntryByPath returns the owner's entry called name inside dirPath.
	FindEntryByPath(ctx context.Context, ownerID, dirPath, name string) (*model.Entry, error)

	// FindDescendants returns every entry of the same owner whose dirPath is
	// the entry's full path or lies beneath it, matched segment-wise.
	FindDescendants(ctx context.Context, entry *model.Entry) ([]*model.Entry, error)

	// ListEntries returns one page of an owner's directory and the total
	// number of matching entries.
	ListEntries(ctx context.Context, q EntryQuery) ([]*model.Entry, int64, error)

	// UpdateEntryPublic sets the public flag of a single entry.
	UpdateEntryPublic(ctx context.Context, id string, isPublic bool) error

	// UpdateEntryLink sets the shareable link token. An empty token clears it.
	UpdateEntryLink(ctx context.Context, id string, token string) error

	// UpdateEntryContent records a new size and extension after an overwrite.
	UpdateEntryContent(ctx context.Context, id string, size int64, extension string) error

	// MoveEntry renames or moves an entry and rewrites the dirPath of all of
	// its descendants in one transaction. Returns the number of descendants
	// rewritten.
	MoveEntry(ctx context.Context, entry *model.Entry, dirPath, name string) (int, error)

	// DeleteEntryTree deletes an entry and all of its descendants in one
	// transaction. Grants go with them through the foreign keys.
	// Returns the number of entries deleted.
	DeleteEntryTree(ctx context.Context, entry *model.Entry) (int, error)

	// Grant operations

	// FindGrantsForEntry returns every grant on the entry with its user.
	FindGrantsForEntry(ctx context.Context, entryID string) ([]*model.Grant, error)

	// HasGrant reports whether userID holds perm on any of entryIDs.
	HasGrant(ctx context.Context, userID string, entryIDs []string, perm model.Permission) (bool, error)

	// AddGrants inserts grants in one transaction, skipping rows that already
	// exist. Returns the grants that were actually inserted.
	AddGrants(ctx context.Context, grants []*model.Grant) ([]*model.Grant, error)

	// ApplyGrantChanges applies a reconciliation plan in one transaction.
	ApplyGrantChanges(ctx context.Context, changes *GrantChanges) error

	// EnsureOwnerGrants backfills any catalog permission the owner lacks on
	// the entry. Returns the number of grants created.
	EnsureOwnerGrants(ctx context.Context, entry *model.Entry) (int, error)

	// Close closes the database connection.
	Close() error
}

// EntryQuery selects a page of one owner's directory.
type EntryQuery struct {
	OwnerID string
	DirPath string
	Search  string // case-insensitive substring of the name; empty matches all
	Limit   int
	Offset  int
}

// GrantChanges is a plan produced by share reconciliation.
type GrantChanges struct {
	Insert []*model.Grant
	Update []GrantUpdate
	Delete []int64
}

// GrantUpdate repurposes an existing grant row for another permission.
type GrantUpdate struct {
	ID         int64
	Permission model.Permission
}

// Empty reports whether the plan changes nothing.
func (c *GrantChanges) Empty() bool {
	return len(c.Insert) == 0 && len(c.Update) == 0 && len(c.Delete) == 0
}
