package testutil

import (
	"context"
	"testing"

	"drive-go/internal/blob"
	"drive-go/internal/database"
	"drive-go/internal/drive"
	"drive-go/internal/model"
)

// ClientURL is the front-end URL test services build share links with.
const ClientURL = "http://drive.test"

// Env is a DriveService wired to in-memory collaborators that tests can
// inspect directly.
type Env struct {
	Service  *drive.DriveService
	DB       *database.SQLiteDatabase
	Blobs    *blob.MemoryStore
	Notifier *RecordingNotifier
	Clock    *StubClock
	IDs      *StubIDGenerator
}

// NewEnv builds a service over a migrated in-memory database and an
// in-memory blob store.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	clock := FixedClock()
	env := &Env{
		DB:       NewTestDatabase(t, clock),
		Blobs:    blob.NewMemoryStore(),
		Notifier: NewRecordingNotifier(),
		Clock:    clock,
		IDs:      NewStubIDGenerator(),
	}
	env.Service = drive.NewDriveService(env.DB, env.Blobs, env.Notifier, drive.NewNopLogger(), clock, env.IDs,
		drive.Options{ClientURL: ClientURL})
	return env
}

// CreateUser registers a user and fails the test on error.
func (e *Env) CreateUser(t *testing.T, email string) *model.User {
	t.Helper()

	user, err := e.Service.CreateUser(context.Background(), email, "Test", "User", "")
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", email, err)
	}
	return user
}
