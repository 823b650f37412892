package drive_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"drive-go/internal/drive"
	"drive-go/internal/model"
	"drive-go/internal/testutil"
)

func TestDriveService_CreateDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the directory in storage and database", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")

		dir, err := env.Service.CreateDirectory(ctx, owner.ID, "docs", "", false)
		if err != nil {
			t.Fatalf("CreateDirectory() error = %v", err)
		}
		if dir.DirPath != "/" || dir.Name != "docs" || !dir.IsDir() {
			t.Errorf("CreateDirectory() = %+v", dir)
		}
		if !blobExists(t, env, owner.ID+"/docs") {
			t.Error("directory missing from storage")
		}
		want := sortedPerms(model.Read, model.Write, model.Delete)
		if got := permsOf(t, env, dir.ID, owner.ID); len(got) != len(want) {
			t.Errorf("owner holds %v, want %v", got, want)
		}
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		mkdir(t, env, owner.ID, "/", "docs", false)

		_, err := env.Service.CreateDirectory(ctx, owner.ID, "docs", "/", false)
		wantCode(t, err, drive.ErrConflict)
	})

	t.Run("same name for different owners is fine", func(t *testing.T) {
		env := testutil.NewEnv(t)
		a := env.CreateUser(t, "a@example.com")
		b := env.CreateUser(t, "b@example.com")
		mkdir(t, env, a.ID, "/", "docs", false)
		mkdir(t, env, b.ID, "/", "docs", false)
	})

	t.Run("inherits a public parent", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		mkdir(t, env, owner.ID, "/", "pub", true)

		child := mkdir(t, env, owner.ID, "/pub", "child", false)
		if !child.IsPublic {
			t.Error("child of public directory is private")
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")

		for _, name := range []string{"", "a/b", ".", ".."} {
			_, err := env.Service.CreateDirectory(ctx, owner.ID, name, "/", false)
			wantCode(t, err, drive.ErrBadRequest)
		}
		_, err := env.Service.CreateDirectory(ctx, owner.ID, "docs", "/../etc", false)
		wantCode(t, err, drive.ErrBadRequest)
	})

	t.Run("anonymous is forbidden", func(t *testing.T) {
		env := testutil.NewEnv(t)

		_, err := env.Service.CreateDirectory(ctx, drive.Anonymous, "docs", "/", false)
		wantCode(t, err, drive.ErrForbidden)
	})
}

func TestDriveService_UploadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("stores bytes and records the file", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		mkdir(t, env, owner.ID, "/", "docs", false)

		entry := upload(t, env, owner.ID, "docs", "Report.PDF", "hello")
		if entry.FullPath() != "/docs/Report.PDF" {
			t.Errorf("FullPath() = %s", entry.FullPath())
		}
		if entry.Size == nil || *entry.Size != 5 {
			t.Errorf("Size = %v, want 5", entry.Size)
		}
		if entry.FileExtension != "PDF" {
			t.Errorf("FileExtension = %q, want PDF", entry.FileExtension)
		}

		var buf bytes.Buffer
		if err := env.Service.ReadFile(ctx, entry, &buf); err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if buf.String() != "hello" {
			t.Errorf("ReadFile() = %q, want hello", buf.String())
		}
	})

	t.Run("upload over a file replaces its bytes", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		first := upload(t, env, owner.ID, "/", "a.txt", "old")
		second := upload(t, env, owner.ID, "/", "a.txt", "newer")

		if first.ID != second.ID {
			t.Errorf("re-upload created a new row: %s != %s", first.ID, second.ID)
		}
		after := reload(t, env, first.ID)
		if after.Size == nil || *after.Size != 5 {
			t.Errorf("Size = %v, want 5", after.Size)
		}
		var buf bytes.Buffer
		if err := env.Service.ReadFile(ctx, after, &buf); err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if buf.String() != "newer" {
			t.Errorf("ReadFile() = %q, want newer", buf.String())
		}
	})

	t.Run("upload over a directory is a conflict", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		mkdir(t, env, owner.ID, "/", "docs", false)

		_, err := env.Service.UploadFile(ctx, owner.ID, strings.NewReader("x"), 1, "docs", "/", false)
		wantCode(t, err, drive.ErrConflict)
	})

	t.Run("inherits a public parent", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		mkdir(t, env, owner.ID, "/", "pub", true)

		if entry := upload(t, env, owner.ID, "/pub", "a.txt", "x"); !entry.IsPublic {
			t.Error("file in public directory is private")
		}
	})
}

// staleLookupDB hides existing entries from path lookups, the view a request
// has when another one creates the same path right after its check.
type staleLookupDB struct {
	drive.Database
}

func (staleLookupDB) FindEntryByPath(context.Context, string, string, string) (*model.Entry, error) {
	return nil, nil
}

func TestDriveService_CreateRace(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	owner := env.CreateUser(t, "owner@example.com")
	upload(t, env, owner.ID, "/", "a.txt", "first")
	mkdir(t, env, owner.ID, "/", "docs", false)

	svc := drive.NewDriveService(staleLookupDB{env.DB}, env.Blobs, env.Notifier, drive.NewNopLogger(), env.Clock, env.IDs,
		drive.Options{ClientURL: testutil.ClientURL})

	_, err := svc.UploadFile(ctx, owner.ID, strings.NewReader("second"), 6, "a.txt", "/", false)
	wantCode(t, err, drive.ErrConflict)

	if err := env.Blobs.Delete(ctx, owner.ID+"/docs"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err = svc.CreateDirectory(ctx, owner.ID, "docs", "/", false)
	wantCode(t, err, drive.ErrConflict)
}

func TestDriveService_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	str := func(s string) *string { return &s }

	t.Run("renames a file", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		entry := upload(t, env, owner.ID, "/", "a.txt", "hello")

		updated, err := env.Service.UpdateEntry(ctx, owner.ID, entry.ID, drive.EntryUpdate{Name: str("b.md")})
		if err != nil {
			t.Fatalf("UpdateEntry() error = %v", err)
		}
		if updated.Name != "b.md" || updated.FileExtension != "md" {
			t.Errorf("UpdateEntry() = %+v", updated)
		}
		if blobExists(t, env, owner.ID+"/a.txt") || !blobExists(t, env, owner.ID+"/b.md") {
			t.Error("blob not moved")
		}
	})

	t.Run("moving a directory rewrites descendant paths", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		docs := mkdir(t, env, owner.ID, "/", "docs", false)
		sub := mkdir(t, env, owner.ID, "/docs", "sub", false)
		file := upload(t, env, owner.ID, "/docs/sub", "a.txt", "hello")
		mkdir(t, env, owner.ID, "/", "docs2", false)
		other := upload(t, env, owner.ID, "/docs2", "b.txt", "keep")
		mkdir(t, env, owner.ID, "/", "archive", false)

		updated, err := env.Service.UpdateEntry(ctx, owner.ID, docs.ID, drive.EntryUpdate{DirPath: str("/archive")})
		if err != nil {
			t.Fatalf("UpdateEntry() error = %v", err)
		}
		if updated.FullPath() != "/archive/docs" {
			t.Errorf("moved to %s, want /archive/docs", updated.FullPath())
		}
		if got := reload(t, env, sub.ID).DirPath; got != "/archive/docs" {
			t.Errorf("sub dirPath = %s, want /archive/docs", got)
		}
		if got := reload(t, env, file.ID).DirPath; got != "/archive/docs/sub" {
			t.Errorf("file dirPath = %s, want /archive/docs/sub", got)
		}
		if got := reload(t, env, other.ID).DirPath; got != "/docs2" {
			t.Errorf("docs2 file moved to %s", got)
		}

		var buf bytes.Buffer
		if err := env.Service.ReadFile(ctx, reload(t, env, file.ID), &buf); err != nil {
			t.Fatalf("ReadFile() after move error = %v", err)
		}
		if buf.String() != "hello" {
			t.Errorf("ReadFile() = %q, want hello", buf.String())
		}
		if !blobExists(t, env, owner.ID+"/docs2/b.txt") {
			t.Error("docs2 blob moved")
		}
	})

	t.Run("moving into itself is a bad request", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		docs := mkdir(t, env, owner.ID, "/", "docs", false)
		mkdir(t, env, owner.ID, "/docs", "sub", false)

		_, err := env.Service.UpdateEntry(ctx, owner.ID, docs.ID, drive.EntryUpdate{DirPath: str("/docs/sub")})
		wantCode(t, err, drive.ErrBadRequest)
	})

	t.Run("taken destination is a conflict", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		a := upload(t, env, owner.ID, "/", "a.txt", "a")
		upload(t, env, owner.ID, "/", "b.txt", "b")

		_, err := env.Service.UpdateEntry(ctx, owner.ID, a.ID, drive.EntryUpdate{Name: str("b.txt")})
		wantCode(t, err, drive.ErrConflict)
		if reload(t, env, a.ID).Name != "a.txt" {
			t.Error("entry renamed despite conflict")
		}
	})

	t.Run("no fields is a bad request", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		a := upload(t, env, owner.ID, "/", "a.txt", "a")

		_, err := env.Service.UpdateEntry(ctx, owner.ID, a.ID, drive.EntryUpdate{})
		wantCode(t, err, drive.ErrBadRequest)
	})

	t.Run("missing blob is not found", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		a := upload(t, env, owner.ID, "/", "a.txt", "a")
		if err := env.Blobs.Delete(ctx, owner.ID+"/a.txt"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		_, err := env.Service.UpdateEntry(ctx, owner.ID, a.ID, drive.EntryUpdate{Name: str("b.txt")})
		wantCode(t, err, drive.ErrNotFound)
	})

	t.Run("write grantee renames but cannot change visibility", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		bob := env.CreateUser(t, "bob@example.com")
		a := upload(t, env, owner.ID, "/", "a.txt", "a")
		if _, err := env.Service.ShareEntry(ctx, owner.ID, a.ID, false, []drive.UserPermission{
			{Email: bob.Email, Permission: "WRITE"},
		}); err != nil {
			t.Fatalf("ShareEntry() error = %v", err)
		}

		isPublic := true
		_, err := env.Service.UpdateEntry(ctx, bob.ID, a.ID, drive.EntryUpdate{Name: str("b.txt"), IsPublic: &isPublic})
		wantCode(t, err, drive.ErrForbidden)

		got := reload(t, env, a.ID)
		if got.IsPublic || got.Name != "a.txt" {
			t.Errorf("entry = %s public=%v, want a.txt private", got.Name, got.IsPublic)
		}
		if ok, err := env.Service.Authorize(ctx, drive.Anonymous, got, model.Read); err != nil || ok {
			t.Errorf("Authorize(anonymous) = %v, %v, want false", ok, err)
		}

		updated, err := env.Service.UpdateEntry(ctx, bob.ID, a.ID, drive.EntryUpdate{Name: str("b.txt")})
		if err != nil {
			t.Fatalf("UpdateEntry() rename by grantee error = %v", err)
		}
		if updated.Name != "b.txt" {
			t.Errorf("Name = %s, want b.txt", updated.Name)
		}
	})

	t.Run("making private clears the link", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		a := upload(t, env, owner.ID, "/", "a.txt", "a")
		if _, err := env.Service.GenerateShareableLink(ctx, owner.ID, a.ID, nil, true); err != nil {
			t.Fatalf("GenerateShareableLink() error = %v", err)
		}

		isPublic := false
		updated, err := env.Service.UpdateEntry(ctx, owner.ID, a.ID, drive.EntryUpdate{IsPublic: &isPublic})
		if err != nil {
			t.Fatalf("UpdateEntry() error = %v", err)
		}
		if updated.IsPublic || updated.ShareableLink != "" {
			t.Errorf("UpdateEntry() = %+v, want private without link", updated)
		}
	})
}

func TestDriveService_DeleteEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the subtree and its grants", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		bob := env.CreateUser(t, "bob@example.com")
		a := mkdir(t, env, owner.ID, "/", "a", false)
		mkdir(t, env, owner.ID, "/a", "b", false)
		deep := upload(t, env, owner.ID, "/a/b", "f.txt", "x")
		sibling := mkdir(t, env, owner.ID, "/", "a2", false)
		if _, err := env.Service.ShareEntry(ctx, owner.ID, deep.ID, false, []drive.UserPermission{
			{Email: bob.Email, Permission: "READ"},
		}); err != nil {
			t.Fatalf("ShareEntry() error = %v", err)
		}

		if _, err := env.Service.DeleteEntry(ctx, a.ID); err != nil {
			t.Fatalf("DeleteEntry() error = %v", err)
		}

		if reload(t, env, a.ID) != nil || reload(t, env, deep.ID) != nil {
			t.Error("subtree still recorded")
		}
		if grants, _ := env.DB.FindGrantsForEntry(ctx, deep.ID); len(grants) != 0 {
			t.Errorf("%d grants left on deleted entry", len(grants))
		}
		if blobExists(t, env, owner.ID+"/a/b/f.txt") {
			t.Error("blob still stored")
		}
		if reload(t, env, sibling.ID) == nil || !blobExists(t, env, owner.ID+"/a2") {
			t.Error("sibling /a2 was deleted")
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		env := testutil.NewEnv(t)

		_, err := env.Service.DeleteEntry(ctx, "missing")
		wantCode(t, err, drive.ErrNotFound)
	})
}

func TestDriveService_ListEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("lists the principal's directory", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		other := env.CreateUser(t, "other@example.com")
		mkdir(t, env, owner.ID, "/", "zeta", false)
		upload(t, env, owner.ID, "/", "alpha.txt", "a")
		upload(t, env, owner.ID, "/", "Beta.txt", "b")
		upload(t, env, other.ID, "/", "theirs.txt", "c")

		page, err := env.Service.ListEntries(ctx, owner.ID, drive.ListQuery{})
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if page.Total != 3 {
			t.Fatalf("Total = %d, want 3", page.Total)
		}
		var names []string
		for _, e := range page.Items {
			names = append(names, e.Name)
		}
		if got := strings.Join(names, ","); got != "zeta,alpha.txt,Beta.txt" {
			t.Errorf("names = %s, want directories first then case-insensitive order", got)
		}
	})

	t.Run("pages and searches", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		for _, name := range []string{"a.txt", "b.txt", "c.txt", "notes.md"} {
			upload(t, env, owner.ID, "/", name, "x")
		}

		page, err := env.Service.ListEntries(ctx, owner.ID, drive.ListQuery{Page: 2, PageSize: 2})
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if page.Total != 4 || len(page.Items) != 2 || page.Items[0].Name != "c.txt" {
			t.Errorf("page 2 = %d items starting %v, total %d", len(page.Items), page.Items, page.Total)
		}

		page, err = env.Service.ListEntries(ctx, owner.ID, drive.ListQuery{Search: "NOTES"})
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if page.Total != 1 || page.Items[0].Name != "notes.md" {
			t.Errorf("search = %+v", page)
		}
	})

	t.Run("anonymous needs a link", func(t *testing.T) {
		env := testutil.NewEnv(t)

		_, err := env.Service.ListEntries(ctx, drive.Anonymous, drive.ListQuery{})
		wantCode(t, err, drive.ErrForbidden)
	})

	t.Run("link lists its target", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.CreateUser(t, "owner@example.com")
		entry := upload(t, env, owner.ID, "/", "a.txt", "x")
		link, err := env.Service.GenerateShareableLink(ctx, owner.ID, entry.ID, nil, true)
		if err != nil {
			t.Fatalf("GenerateShareableLink() error = %v", err)
		}

		page, err := env.Service.ListEntries(ctx, drive.Anonymous, drive.ListQuery{Link: link.Token})
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != entry.ID {
			t.Errorf("link page = %+v", page)
		}

		page, err = env.Service.ListEntries(ctx, drive.Anonymous, drive.ListQuery{Link: link.Token, Search: "zzz"})
		if err != nil {
			t.Fatalf("ListEntries() error = %v", err)
		}
		if page.Total != 0 || len(page.Items) != 0 {
			t.Errorf("filtered link page = %+v, want empty", page)
		}
	})
}

func TestDriveService_ReadFile(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	owner := env.CreateUser(t, "owner@example.com")
	dir := mkdir(t, env, owner.ID, "/", "docs", false)
	file := upload(t, env, owner.ID, "/docs", "a.txt", "x")

	t.Run("directory is a bad request", func(t *testing.T) {
		err := env.Service.ReadFile(ctx, dir, &bytes.Buffer{})
		wantCode(t, err, drive.ErrBadRequest)
	})

	t.Run("missing blob is not found", func(t *testing.T) {
		if err := env.Blobs.Delete(ctx, owner.ID+"/docs/a.txt"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		err := env.Service.ReadFile(ctx, file, &bytes.Buffer{})
		wantCode(t, err, drive.ErrNotFound)
	})
}

// A shared directory: the grantee may rename inside it but not delete, and
// strangers without a login see nothing.
func TestDriveService_SharedDirectoryScenario(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	u1 := env.CreateUser(t, "u1@example.com")
	u2 := env.CreateUser(t, "u2@example.com")

	docs := mkdir(t, env, u1.ID, "/", "docs", false)
	report := upload(t, env, u1.ID, "/docs", "report.pdf", "%PDF")

	if _, err := env.Service.ShareEntry(ctx, u1.ID, docs.ID, false, []drive.UserPermission{
		{Email: u2.Email, Permission: "WRITE"},
	}); err != nil {
		t.Fatalf("ShareEntry() error = %v", err)
	}

	entry, err := env.Service.Require(ctx, u2.ID, report.ID, model.Write)
	if err != nil {
		t.Fatalf("Require(WRITE) error = %v", err)
	}
	name := "final.pdf"
	renamed, err := env.Service.UpdateEntry(ctx, u2.ID, entry.ID, drive.EntryUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateEntry() error = %v", err)
	}
	if renamed.FullPath() != "/docs/final.pdf" {
		t.Errorf("renamed to %s", renamed.FullPath())
	}

	if _, err := env.Service.Require(ctx, u2.ID, report.ID, model.Read); err != nil {
		t.Errorf("Require(READ) error = %v", err)
	}
	_, err = env.Service.Require(ctx, u2.ID, report.ID, model.Delete)
	wantCode(t, err, drive.ErrForbidden)

	if ok, _ := env.Service.Authorize(ctx, drive.Anonymous, docs, model.Read); ok {
		t.Error("anonymous may read private /docs")
	}
	link, err := env.Service.GenerateShareableLink(ctx, u1.ID, docs.ID, nil, false)
	if err != nil {
		t.Fatalf("GenerateShareableLink() error = %v", err)
	}
	_, err = env.Service.ListEntries(ctx, drive.Anonymous, drive.ListQuery{Link: link.Token, DirPath: "/docs"})
	wantCode(t, err, drive.ErrForbidden)
}
