package drive

import (
	"context"
	"fmt"
	"strings"

	"drive-go/internal/model"
	"drive-go/internal/pathtree"
)

// Authorize decides whether principal may exercise perm on entry.
//
// Rules apply in order and short-circuit:
//  1. READ on a public entry is always allowed.
//  2. Anonymous principals are denied everything else.
//  3. The owner is allowed everything.
//  4. Otherwise a grant for (principal, perm) must exist on the entry or on
//     one of the owner's directories containing it.
func (s *DriveService) Authorize(ctx context.Context, principal string, entry *model.Entry, perm model.Permission) (bool, error) {
	if perm == model.Read && entry.IsPublic {
		return true, nil
	}
	if principal == Anonymous {
		return false, nil
	}
	if principal == entry.OwnerID {
		return true, nil
	}

	ids := []string{entry.ID}
	for _, p := range pathtree.Ancestors(entry.DirPath) {
		dir, name := pathtree.Split(p)
		ancestor, err := s.database.FindEntryByPath(ctx, entry.OwnerID, dir, name)
		if err != nil {
			return false, fmt.Errorf("finding ancestor %s: %w", p, err)
		}
		if ancestor != nil && ancestor.IsDir() {
			ids = append(ids, ancestor.ID)
		}
	}

	ok, err := s.database.HasGrant(ctx, principal, ids, perm)
	if err != nil {
		return false, fmt.Errorf("checking grants: %w", err)
	}
	return ok, nil
}

// Require loads the entry with the given id and fails with Forbidden unless
// principal holds perm on it.
func (s *DriveService) Require(ctx context.Context, principal, entryID string, perm model.Permission) (*model.Entry, error) {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, principal, entry, perm); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *DriveService) require(ctx context.Context, principal string, entry *model.Entry, perm model.Permission) error {
	ok, err := s.Authorize(ctx, principal, entry, perm)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if principal == Anonymous {
		return forbidden("user is required to access this file")
	}
	s.logger.Debug("access denied", "principal", principal, "entry", entry.ID, "permission", perm)
	return forbidden("insufficient permissions: %s required", perm)
}

// ResolveLink finds the entry a shareable link token points at.
func (s *DriveService) ResolveLink(ctx context.Context, token string) (*model.Entry, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, badRequest("link is required")
	}
	entry, err := s.database.FindEntryByLink(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("finding entry by link: %w", err)
	}
	if entry == nil {
		return nil, notFound("shared link not found")
	}
	return entry, nil
}

// AuthorizeLink resolves a link token and checks that its bearer may
// exercise perm on the target. Anonymous bearers only get READ, and only on
// public entries; authenticated principals go through Authorize.
func (s *DriveService) AuthorizeLink(ctx context.Context, principal, token string, perm model.Permission) (*model.Entry, error) {
	entry, err := s.ResolveLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if principal == Anonymous && perm != model.Read {
		return nil, forbidden("user is required to access this file")
	}
	if err := s.require(ctx, principal, entry, perm); err != nil {
		return nil, err
	}
	return entry, nil
}
