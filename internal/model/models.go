package model

import (
	"time"

	"drive-go/internal/pathtree"
)

// EntryKind distinguishes files from directories.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// Entry is a file or directory in an owner's virtual tree.
type Entry struct {
	ID            string    `json:"id"`             // UUID
	OwnerID       string    `json:"ownerId"`        // Foreign key to User
	DirPath       string    `json:"dirPath"`        // Normalized parent directory
	Name          string    `json:"name"`           // Single path segment
	Kind          EntryKind `json:"type"`           // file or directory
	FileExtension string    `json:"fileExtension,omitempty"`
	Size          *int64    `json:"size,omitempty"` // nil for directories
	IsPublic      bool      `json:"isPublic"`
	ShareableLink string    `json:"shareableLink,omitempty"` // "" means no link
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FullPath returns dirPath joined with the entry's name.
func (e *Entry) FullPath() string {
	return pathtree.Join(e.DirPath, e.Name)
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// User is an account that can own entries and receive grants.
type User struct {
	ID        string    `json:"id"` // UUID
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Grant is one (user, entry, permission) row of the ledger.
type Grant struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"userId"`
	EntryID    string     `json:"entryId"`
	Permission Permission `json:"permission"`
	User       *User      `json:"user,omitempty"` // populated by joined lookups
}

// Page is one page of a listing.
type Page struct {
	Items []*Entry `json:"items"`
	Total int64    `json:"total"`
}
