package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"drive-go/internal/model"
	"drive-go/internal/pathtree"
)

// EntryUpdate lists the fields UpdateEntry may change. Nil fields are kept.
type EntryUpdate struct {
	Name     *string
	DirPath  *string
	IsPublic *bool
}

// ListQuery selects a page of entries. When Link is set the listing is
// scoped to the link's target instead of the principal's own tree.
type ListQuery struct {
	DirPath  string
	Page     int
	PageSize int
	Search   string
	Link     string
}

// The blob store and the database are written one after the other, never in
// a shared transaction. A crash between the two steps of any method below
// leaves either stray bytes without a row or a row without bytes.

// CreateDirectory creates a directory entry for ownerID. A new directory
// inside a public parent is public as well.
func (s *DriveService) CreateDirectory(ctx context.Context, ownerID, name, dirPath string, isPublic bool) (*model.Entry, error) {
	dir, err := s.validateLocation(ownerID, name, dirPath)
	if err != nil {
		return nil, err
	}
	fullPath := pathtree.Join(dir, name)
	key := blobKey(ownerID, fullPath)

	exists, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("checking storage: %w", err)
	}
	if exists {
		return nil, conflict("directory already exists: %s", fullPath)
	}
	existing, err := s.database.FindEntryByPath(ctx, ownerID, dir, name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing entry: %w", err)
	}
	if existing != nil {
		return nil, conflict("directory already exists: %s", fullPath)
	}

	parentPublic, err := s.parentIsPublic(ctx, ownerID, dir)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &model.Entry{
		ID:        s.idgen.New(),
		OwnerID:   ownerID,
		DirPath:   dir,
		Name:      name,
		Kind:      model.KindDirectory,
		IsPublic:  isPublic || parentPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.blobs.MakeDir(ctx, key); err != nil {
		return nil, fmt.Errorf("creating directory in storage: %w", err)
	}
	if err := s.database.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			return nil, conflict("directory already exists: %s", fullPath)
		}
		return nil, fmt.Errorf("recording directory: %w", err)
	}

	s.logger.Info("directory created", "owner", ownerID, "path", fullPath)
	return entry, nil
}

// UploadFile stores size bytes from r as name inside dirPath. Uploading over
// an existing file replaces its bytes and keeps its row.
func (s *DriveService) UploadFile(ctx context.Context, ownerID string, r io.Reader, size int64, name, dirPath string, isPublic bool) (*model.Entry, error) {
	dir, err := s.validateLocation(ownerID, name, dirPath)
	if err != nil {
		return nil, err
	}
	if size < 0 {
		return nil, badRequest("file size is required")
	}
	fullPath := pathtree.Join(dir, name)
	ext := pathtree.Ext(name)

	existing, err := s.database.FindEntryByPath(ctx, ownerID, dir, name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing entry: %w", err)
	}
	if existing != nil && existing.IsDir() {
		return nil, conflict("a directory already exists at %s", fullPath)
	}

	if err := s.blobs.Put(ctx, blobKey(ownerID, fullPath), r, size); err != nil {
		return nil, fmt.Errorf("writing file to storage: %w", err)
	}

	if existing != nil {
		if err := s.database.UpdateEntryContent(ctx, existing.ID, size, ext); err != nil {
			return nil, fmt.Errorf("recording file: %w", err)
		}
		if _, err := s.database.EnsureOwnerGrants(ctx, existing); err != nil {
			return nil, fmt.Errorf("backfilling owner grants: %w", err)
		}
		existing.Size = &size
		existing.FileExtension = ext
		existing.UpdatedAt = s.clock.Now()
		s.logger.Info("file replaced", "owner", ownerID, "path", fullPath, "size", size)
		return existing, nil
	}

	parentPublic, err := s.parentIsPublic(ctx, ownerID, dir)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &model.Entry{
		ID:            s.idgen.New(),
		OwnerID:       ownerID,
		DirPath:       dir,
		Name:          name,
		Kind:          model.KindFile,
		FileExtension: ext,
		Size:          &size,
		IsPublic:      isPublic || parentPublic,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.database.CreateEntry(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			return nil, conflict("an entry already exists at %s", fullPath)
		}
		return nil, fmt.Errorf("recording file: %w", err)
	}

	s.logger.Info("file uploaded", "owner", ownerID, "path", fullPath, "size", size)
	return entry, nil
}

// UpdateEntry renames, moves or changes the visibility of an entry. Callers
// authorize principal for WRITE first; only the owner may change visibility.
// Moving a directory carries its descendants along, both in storage and in
// their recorded dirPath.
func (s *DriveService) UpdateEntry(ctx context.Context, principal, id string, upd EntryUpdate) (*model.Entry, error) {
	if upd.Name == nil && upd.DirPath == nil && upd.IsPublic == nil {
		return nil, badRequest("no updates provided")
	}
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.IsPublic != nil && principal != entry.OwnerID {
		return nil, forbidden("only the owner can change the visibility of %s", entry.Name)
	}

	if upd.Name != nil || upd.DirPath != nil {
		if err := s.relocate(ctx, entry, upd.Name, upd.DirPath); err != nil {
			return nil, err
		}
	}

	if upd.IsPublic != nil {
		if *upd.IsPublic != entry.IsPublic {
			if err := s.updateIsPublicRecursive(ctx, entry, *upd.IsPublic); err != nil {
				return nil, err
			}
		}
		if !*upd.IsPublic && entry.ShareableLink != "" {
			if err := s.database.UpdateEntryLink(ctx, entry.ID, ""); err != nil {
				return nil, fmt.Errorf("clearing shareable link: %w", err)
			}
		}
	}

	updated, err := s.database.FindEntryByID(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading entry: %w", err)
	}
	s.logger.Info("entry updated", "entry", entry.ID, "by", principal)
	return updated, nil
}

func (s *DriveService) relocate(ctx context.Context, entry *model.Entry, name, dirPath *string) error {
	newName := entry.Name
	if name != nil {
		if err := pathtree.ValidateName(*name); err != nil {
			return badRequest("%v", err)
		}
		newName = *name
	}
	newDir := entry.DirPath
	if dirPath != nil {
		dir, err := pathtree.Normalize(*dirPath)
		if err != nil {
			return badRequest("%v", err)
		}
		newDir = dir
	}
	if newName == entry.Name && newDir == entry.DirPath {
		return nil
	}

	oldPath := entry.FullPath()
	newPath := pathtree.Join(newDir, newName)
	if entry.IsDir() && pathtree.IsWithin(newDir, oldPath) {
		return badRequest("cannot move %s into itself", oldPath)
	}

	oldKey := blobKey(entry.OwnerID, oldPath)
	newKey := blobKey(entry.OwnerID, newPath)

	exists, err := s.blobs.Exists(ctx, oldKey)
	if err != nil {
		return fmt.Errorf("checking storage: %w", err)
	}
	if !exists {
		return notFound("file not found in storage: %s", oldPath)
	}
	taken, err := s.database.FindEntryByPath(ctx, entry.OwnerID, newDir, newName)
	if err != nil {
		return fmt.Errorf("checking destination: %w", err)
	}
	if taken != nil {
		return conflict("destination already exists: %s", newPath)
	}
	if exists, err = s.blobs.Exists(ctx, newKey); err != nil {
		return fmt.Errorf("checking storage: %w", err)
	}
	if exists {
		return conflict("destination already exists: %s", newPath)
	}

	if err := s.blobs.Move(ctx, oldKey, newKey); err != nil {
		return fmt.Errorf("moving in storage: %w", err)
	}
	moved, err := s.database.MoveEntry(ctx, entry, newDir, newName)
	if errors.Is(err, ErrDuplicateEntry) {
		return conflict("destination already exists: %s", newPath)
	}
	if err != nil {
		return fmt.Errorf("recording move: %w", err)
	}

	s.logger.Info("entry moved", "entry", entry.ID, "from", oldPath, "to", newPath, "descendants", moved)
	entry.DirPath = newDir
	entry.Name = newName
	return nil
}

// DeleteEntry removes an entry, its descendants and every grant on them.
// Callers authorize DELETE first.
func (s *DriveService) DeleteEntry(ctx context.Context, id string) (string, error) {
	entry, err := s.GetEntry(ctx, id)
	if err != nil {
		return "", err
	}
	key := blobKey(entry.OwnerID, entry.FullPath())

	exists, err := s.blobs.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("checking storage: %w", err)
	}
	if !exists {
		return "", notFound("file not found in storage: %s", entry.FullPath())
	}

	if err := s.blobs.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("deleting from storage: %w", err)
	}
	n, err := s.database.DeleteEntryTree(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("deleting entries: %w", err)
	}

	s.logger.Info("entry deleted", "entry", entry.ID, "path", entry.FullPath(), "entries", n)
	return "File deleted successfully", nil
}

// ListEntries returns a page of the principal's directory, or, when q.Link
// is set, a single synthetic page holding the link's target. The link page
// is empty when the target does not match q.DirPath or q.Search.
func (s *DriveService) ListEntries(ctx context.Context, principal string, q ListQuery) (*model.Page, error) {
	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if s.opts.MaxPageSize > 0 && pageSize > s.opts.MaxPageSize {
		pageSize = s.opts.MaxPageSize
	}
	dir, err := pathtree.Normalize(q.DirPath)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	search := strings.TrimSpace(q.Search)

	if q.Link != "" {
		entry, err := s.AuthorizeLink(ctx, principal, q.Link, model.Read)
		if err != nil {
			return nil, err
		}
		empty := &model.Page{Items: []*model.Entry{}, Total: 0}
		if !pathtree.IsWithin(entry.DirPath, dir) {
			return empty, nil
		}
		if search != "" && !strings.Contains(strings.ToLower(entry.Name), strings.ToLower(search)) {
			return empty, nil
		}
		if page > 1 {
			return &model.Page{Items: []*model.Entry{}, Total: 1}, nil
		}
		return &model.Page{Items: []*model.Entry{entry}, Total: 1}, nil
	}

	if principal == Anonymous {
		return nil, forbidden("user is required to list files")
	}

	items, total, err := s.database.ListEntries(ctx, EntryQuery{
		OwnerID: principal,
		DirPath: dir,
		Search:  search,
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	if items == nil {
		items = []*model.Entry{}
	}
	return &model.Page{Items: items, Total: total}, nil
}

// ReadFile streams the bytes of a file entry to w. Callers authorize READ
// first.
func (s *DriveService) ReadFile(ctx context.Context, entry *model.Entry, w io.Writer) error {
	if entry.IsDir() {
		return badRequest("%s is a directory", entry.FullPath())
	}
	if err := s.blobs.Get(ctx, blobKey(entry.OwnerID, entry.FullPath()), w); err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return notFound("file not found in storage: %s", entry.FullPath())
		}
		return fmt.Errorf("reading file from storage: %w", err)
	}
	return nil
}

// validateLocation checks the owner, name and parent of a new entry and
// returns the normalized parent path.
func (s *DriveService) validateLocation(ownerID, name, dirPath string) (string, error) {
	if ownerID == Anonymous {
		return "", forbidden("user is required to create files")
	}
	if err := pathtree.ValidateName(name); err != nil {
		return "", badRequest("%v", err)
	}
	dir, err := pathtree.Normalize(dirPath)
	if err != nil {
		return "", badRequest("%v", err)
	}
	return dir, nil
}

// parentIsPublic reports whether the directory holding dir's entries is a
// public directory of the owner. The root is never public.
func (s *DriveService) parentIsPublic(ctx context.Context, ownerID, dir string) (bool, error) {
	if dir == pathtree.Root {
		return false, nil
	}
	parentDir, parentName := pathtree.Split(dir)
	parent, err := s.database.FindEntryByPath(ctx, ownerID, parentDir, parentName)
	if err != nil {
		return false, fmt.Errorf("finding parent directory: %w", err)
	}
	return parent != nil && parent.IsDir() && parent.IsPublic, nil
}
