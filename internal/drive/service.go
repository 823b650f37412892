package drive

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"drive-go/internal/model"
)

// Anonymous is the principal of a request without a verified user.
const Anonymous = ""

// DefaultPageSize is used when a listing does not ask for one.
const DefaultPageSize = 10

// Options carries the settings the service needs from configuration.
type Options struct {
	// ClientURL is the base URL of the web client; share links point at
	// {ClientURL}/panel.
	ClientURL string

	// MaxPageSize caps listing page sizes. Zero means no cap.
	MaxPageSize int
}

// DriveService is the orchestration layer that coordinates the database,
// the blob store and the notifier to implement sharing and storage
// operations for the transport layer and the CLI.
type DriveService struct {
	database Database
	blobs    BlobStore
	notifier Notifier
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	opts     Options
}

// NewDriveService creates a new DriveService with the provided dependencies.
// notifier may be nil, in which case nobody is notified of shares.
func NewDriveService(database Database, blobs BlobStore, notifier Notifier, logger Logger, clock Clock, idgen IDGenerator, opts Options) *DriveService {
	return &DriveService{
		database: database,
		blobs:    blobs,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		opts:     opts,
	}
}

// GetEntry returns the entry with the given id.
func (s *DriveService) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, badRequest("file ID is required")
	}
	entry, err := s.database.FindEntryByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding entry: %w", err)
	}
	if entry == nil {
		return nil, notFound("file not found: %s", id)
	}
	return entry, nil
}

// ownedEntry loads an entry and checks that ownerID owns it.
// Entries owned by someone else are reported as missing.
func (s *DriveService) ownedEntry(ctx context.Context, ownerID, id string) (*model.Entry, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID == Anonymous || entry.OwnerID != ownerID {
		return nil, notFound("file not found: %s", id)
	}
	return entry, nil
}

// blobKey is where an entry's bytes live in the blob store.
func blobKey(ownerID, fullPath string) string {
	return ownerID + fullPath
}

// shareURL composes the client URL for a link token.
func (s *DriveService) shareURL(token string, perm model.Permission) string {
	q := url.Values{}
	q.Set("link", token)
	q.Set("permissions", string(perm))
	return strings.TrimRight(s.opts.ClientURL, "/") + "/panel?" + q.Encode()
}
