package drive_test

import (
	"context"
	"slices"
	"strings"
	"testing"

	"drive-go/internal/drive"
	"drive-go/internal/model"
	"drive-go/internal/testutil"
)

func mkdir(t *testing.T, env *testutil.Env, ownerID, dirPath, name string, isPublic bool) *model.Entry {
	t.Helper()

	entry, err := env.Service.CreateDirectory(context.Background(), ownerID, name, dirPath, isPublic)
	if err != nil {
		t.Fatalf("CreateDirectory(%s, %s) error = %v", dirPath, name, err)
	}
	return entry
}

func upload(t *testing.T, env *testutil.Env, ownerID, dirPath, name, content string) *model.Entry {
	t.Helper()

	entry, err := env.Service.UploadFile(context.Background(), ownerID, strings.NewReader(content), int64(len(content)), name, dirPath, false)
	if err != nil {
		t.Fatalf("UploadFile(%s, %s) error = %v", dirPath, name, err)
	}
	return entry
}

func reload(t *testing.T, env *testutil.Env, id string) *model.Entry {
	t.Helper()

	entry, err := env.DB.FindEntryByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindEntryByID(%s) error = %v", id, err)
	}
	return entry
}

// permsOf returns the sorted permissions userID holds directly on entryID.
func permsOf(t *testing.T, env *testutil.Env, entryID, userID string) []model.Permission {
	t.Helper()

	grants, err := env.DB.FindGrantsForEntry(context.Background(), entryID)
	if err != nil {
		t.Fatalf("FindGrantsForEntry() error = %v", err)
	}
	var perms []model.Permission
	for _, g := range grants {
		if g.UserID == userID {
			perms = append(perms, g.Permission)
		}
	}
	slices.Sort(perms)
	return perms
}

func sortedPerms(perms ...model.Permission) []model.Permission {
	out := slices.Clone(perms)
	slices.Sort(out)
	return out
}

func blobExists(t *testing.T, env *testutil.Env, key string) bool {
	t.Helper()

	ok, err := env.Blobs.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists(%s) error = %v", key, err)
	}
	return ok
}

func wantCode(t *testing.T, err error, code drive.ErrorCode) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got, ok := drive.CodeOf(err); !ok || got != code {
		t.Fatalf("error = %v, want %s", err, code)
	}
}
