package drive

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"drive-go/internal/model"
)

// UserPermission asks for one permission to be given to the user with Email.
type UserPermission struct {
	Email      string `json:"user" validate:"required,email"`
	Permission string `json:"permission" validate:"required"`
}

// ShareLink is a shareable link scoped to a single permission.
type ShareLink struct {
	URL        string           `json:"link"`
	Token      string           `json:"token"`
	Permission model.Permission `json:"permission"`
}

// ShareResult is returned by ShareEntry.
type ShareResult struct {
	Message string     `json:"message"`
	Link    *ShareLink `json:"shareableLink"`
}

// shareTarget is a resolved grantee and the full permission set they should
// hold, companion READ included.
type shareTarget struct {
	user      *model.User
	requested []model.Permission
	perms     []model.Permission
}

// ShareEntry adds grants on an entry the owner owns and returns a shareable
// link for it. Sharing is additive: existing grants are never removed and
// a false isPublic leaves the current visibility alone.
//
// Every email and permission name is validated before anything is written.
// Users who receive at least one new grant are notified; notification
// failures are logged only.
func (s *DriveService) ShareEntry(ctx context.Context, ownerID, entryID string, isPublic bool, shares []UserPermission) (*ShareResult, error) {
	entry, err := s.ownedEntry(ctx, ownerID, entryID)
	if err != nil {
		return nil, err
	}

	targets, err := s.resolveShareTargets(ctx, entry.OwnerID, shares)
	if err != nil {
		return nil, err
	}

	var grants []*model.Grant
	var linkPerms []model.Permission
	for _, t := range targets {
		linkPerms = append(linkPerms, t.requested...)
		for _, p := range t.perms {
			grants = append(grants, &model.Grant{UserID: t.user.ID, EntryID: entry.ID, Permission: p})
		}
	}
	if isPublic {
		linkPerms = append(linkPerms, model.Read)
	}

	added, err := s.database.AddGrants(ctx, grants)
	if err != nil {
		return nil, fmt.Errorf("adding grants: %w", err)
	}

	link, err := s.generateShareableLink(ctx, entry, linkPerms, isPublic)
	if err != nil {
		return nil, err
	}

	newlyShared := make(map[string]bool)
	for _, g := range added {
		newlyShared[g.UserID] = true
	}
	for _, t := range targets {
		if newlyShared[t.user.ID] {
			s.notify(ctx, t.user.Email, link.URL)
		}
	}

	s.logger.Info("entry shared", "entry", entry.ID, "grants", len(added), "public", isPublic)
	return &ShareResult{Message: "File shared successfully", Link: link}, nil
}

// UpdateSharedEntry reconciles the grants on an entry to exactly the
// requested list. Grantees missing from the list lose all of their grants,
// changed permissions are rewritten in place, and the owner's grants are
// never touched except to backfill missing ones.
//
// Toggling isPublic cascades to descendants; turning it off also clears the
// shareable link.
func (s *DriveService) UpdateSharedEntry(ctx context.Context, ownerID, entryID string, isPublic bool, shares []UserPermission) (string, error) {
	entry, err := s.ownedEntry(ctx, ownerID, entryID)
	if err != nil {
		return "", err
	}

	targets, err := s.resolveShareTargets(ctx, entry.OwnerID, shares)
	if err != nil {
		return "", err
	}

	existing, err := s.database.FindGrantsForEntry(ctx, entry.ID)
	if err != nil {
		return "", fmt.Errorf("finding existing grants: %w", err)
	}

	changes := reconcileGrants(entry, existing, targets)
	if !changes.Empty() {
		if err := s.database.ApplyGrantChanges(ctx, changes); err != nil {
			return "", fmt.Errorf("applying grant changes: %w", err)
		}
	}

	if entry.IsPublic != isPublic {
		if err := s.updateIsPublicRecursive(ctx, entry, isPublic); err != nil {
			return "", err
		}
	}
	if !isPublic && entry.ShareableLink != "" {
		if err := s.database.UpdateEntryLink(ctx, entry.ID, ""); err != nil {
			return "", fmt.Errorf("clearing shareable link: %w", err)
		}
		entry.ShareableLink = ""
	}

	if _, err := s.database.EnsureOwnerGrants(ctx, entry); err != nil {
		return "", fmt.Errorf("backfilling owner grants: %w", err)
	}

	s.logger.Info("share updated", "entry", entry.ID,
		"inserted", len(changes.Insert), "updated", len(changes.Update), "deleted", len(changes.Delete), "public", isPublic)
	return "Shared file updated successfully", nil
}

// GenerateShareableLink returns the link of an entry the owner owns, minting
// a token on first use and reusing it afterwards. The link carries the
// strongest of perms (WRITE > DELETE > READ; READ when empty). When isPublic
// is set the entry and its descendants become public.
func (s *DriveService) GenerateShareableLink(ctx context.Context, ownerID, entryID string, perms []model.Permission, isPublic bool) (*ShareLink, error) {
	entry, err := s.ownedEntry(ctx, ownerID, entryID)
	if err != nil {
		return nil, err
	}
	return s.generateShareableLink(ctx, entry, perms, isPublic)
}

func (s *DriveService) generateShareableLink(ctx context.Context, entry *model.Entry, perms []model.Permission, isPublic bool) (*ShareLink, error) {
	token := entry.ShareableLink
	if token == "" {
		token = s.idgen.New()
		if err := s.database.UpdateEntryLink(ctx, entry.ID, token); err != nil {
			return nil, fmt.Errorf("saving shareable link: %w", err)
		}
		entry.ShareableLink = token
		s.logger.Debug("shareable link created", "entry", entry.ID)
	}

	if isPublic {
		if err := s.updateIsPublicRecursive(ctx, entry, true); err != nil {
			return nil, err
		}
	}

	perm := model.Strongest(perms)
	return &ShareLink{URL: s.shareURL(token, perm), Token: token, Permission: perm}, nil
}

// RevokeShareableLink clears the link of an entry the owner owns. Named
// grants and the public flag stay as they are, but the current flag is
// pushed down to descendants again.
func (s *DriveService) RevokeShareableLink(ctx context.Context, ownerID, entryID string) (string, error) {
	entry, err := s.ownedEntry(ctx, ownerID, entryID)
	if err != nil {
		return "", err
	}

	if err := s.database.UpdateEntryLink(ctx, entry.ID, ""); err != nil {
		return "", fmt.Errorf("clearing shareable link: %w", err)
	}
	entry.ShareableLink = ""

	if err := s.updateIsPublicRecursive(ctx, entry, entry.IsPublic); err != nil {
		return "", err
	}

	s.logger.Info("shareable link revoked", "entry", entry.ID)
	return "Shareable link revoked successfully", nil
}

// GetGrantsForEntry lists who the entry is shared with. The owner's own
// grants are left out.
func (s *DriveService) GetGrantsForEntry(ctx context.Context, entryID string) ([]*model.Grant, error) {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	grants, err := s.database.FindGrantsForEntry(ctx, entry.ID)
	if err != nil {
		return nil, fmt.Errorf("finding grants: %w", err)
	}

	out := make([]*model.Grant, 0, len(grants))
	for _, g := range grants {
		if g.UserID != entry.OwnerID {
			out = append(out, g)
		}
	}
	return out, nil
}

// ListPermissionKinds returns the permission catalog.
func (s *DriveService) ListPermissionKinds(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.database.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	return perms, nil
}

// updateIsPublicRecursive sets the public flag on entry and then on every
// descendant, one row at a time. The walk is not transactional: if a row
// fails the error is returned and the rows already written keep their new
// value.
func (s *DriveService) updateIsPublicRecursive(ctx context.Context, entry *model.Entry, isPublic bool) error {
	if err := s.database.UpdateEntryPublic(ctx, entry.ID, isPublic); err != nil {
		return fmt.Errorf("updating visibility of %s: %w", entry.FullPath(), err)
	}
	entry.IsPublic = isPublic

	if !entry.IsDir() {
		return nil
	}

	descendants, err := s.database.FindDescendants(ctx, entry)
	if err != nil {
		return fmt.Errorf("finding descendants of %s: %w", entry.FullPath(), err)
	}
	for _, d := range descendants {
		if err := s.database.UpdateEntryPublic(ctx, d.ID, isPublic); err != nil {
			return fmt.Errorf("updating visibility of %s: %w", d.FullPath(), err)
		}
	}

	s.logger.Debug("visibility cascaded", "entry", entry.ID, "public", isPublic, "descendants", len(descendants))
	return nil
}

// resolveShareTargets validates a share list and resolves its emails.
// Unknown permissions fail with BadRequest and unknown emails with a single
// NotFound naming all of them. The owner is dropped from the result.
func (s *DriveService) resolveShareTargets(ctx context.Context, ownerID string, shares []UserPermission) ([]*shareTarget, error) {
	type request struct {
		email string
		perm  model.Permission
	}
	requests := make([]request, 0, len(shares))
	for _, sp := range shares {
		email := normalizeEmail(sp.Email)
		if email == "" {
			return nil, badRequest("user email is required")
		}
		perm, err := model.ParsePermission(sp.Permission)
		if err != nil {
			return nil, badRequest("%v", err)
		}
		requests = append(requests, request{email: email, perm: perm})
	}

	byEmail := make(map[string]*shareTarget)
	var order []string
	var missing []string
	for _, r := range requests {
		if t, ok := byEmail[r.email]; ok {
			if t != nil {
				t.requested = appendUnique(t.requested, r.perm)
			}
			continue
		}
		user, err := s.database.FindUserByEmail(ctx, r.email)
		if err != nil {
			return nil, fmt.Errorf("finding user %s: %w", r.email, err)
		}
		if user == nil {
			byEmail[r.email] = nil
			missing = append(missing, r.email)
			continue
		}
		byEmail[r.email] = &shareTarget{user: user, requested: []model.Permission{r.perm}}
		order = append(order, r.email)
	}
	if len(missing) > 0 {
		return nil, notFound("users not found: %s", strings.Join(missing, ", "))
	}

	targets := make([]*shareTarget, 0, len(order))
	for _, email := range order {
		t := byEmail[email]
		if t.user.ID == ownerID {
			continue
		}
		for _, p := range t.requested {
			for _, implied := range p.WithImplied() {
				t.perms = appendUnique(t.perms, implied)
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// reconcileGrants plans the changes that turn existing into targets.
// Rows a grantee no longer needs are rewritten for a permission they lack
// before any new row is inserted.
func reconcileGrants(entry *model.Entry, existing []*model.Grant, targets []*shareTarget) *GrantChanges {
	changes := &GrantChanges{}

	held := make(map[string][]*model.Grant)
	for _, g := range existing {
		if g.UserID == entry.OwnerID {
			continue
		}
		held[g.UserID] = append(held[g.UserID], g)
	}

	for _, t := range targets {
		have := held[t.user.ID]
		delete(held, t.user.ID)

		var spare []*model.Grant
		present := make(map[model.Permission]bool)
		for _, g := range have {
			if slices.Contains(t.perms, g.Permission) && !present[g.Permission] {
				present[g.Permission] = true
				continue
			}
			spare = append(spare, g)
		}

		for _, p := range t.perms {
			if present[p] {
				continue
			}
			if len(spare) > 0 {
				changes.Update = append(changes.Update, GrantUpdate{ID: spare[0].ID, Permission: p})
				spare = spare[1:]
				continue
			}
			changes.Insert = append(changes.Insert, &model.Grant{UserID: t.user.ID, EntryID: entry.ID, Permission: p})
		}
		for _, g := range spare {
			changes.Delete = append(changes.Delete, g.ID)
		}
	}

	for _, grants := range held {
		for _, g := range grants {
			changes.Delete = append(changes.Delete, g.ID)
		}
	}
	slices.Sort(changes.Delete)

	return changes
}

func (s *DriveService) notify(ctx context.Context, email, link string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, email, link); err != nil {
		s.logger.Warn("share notification failed", "email", email, "error", err)
		return
	}
	s.logger.Debug("share notification sent", "email", email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func appendUnique(perms []model.Permission, p model.Permission) []model.Permission {
	if slices.Contains(perms, p) {
		return perms
	}
	return append(perms, p)
}
