package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"drive-go/internal/api"
	"drive-go/internal/auth"
	"drive-go/internal/blob"
	"drive-go/internal/config"
	"drive-go/internal/database"
	"drive-go/internal/database/migrations"
	"drive-go/internal/drive"
	"drive-go/internal/model"
	"drive-go/internal/notify"
)

// DriveApp is the application layer between the CLI and DriveService.
// It constructs all dependencies from config, exposes the operations the CLI
// needs, and manages the DB and log file lifecycle on Close.
type DriveApp struct {
	cfg      *config.Config
	db       *database.SQLiteDatabase
	blobs    drive.BlobStore
	notifier drive.Notifier
	service  *drive.DriveService
	auth     *auth.JWTAuthenticator
	logger   *slog.Logger
	clock    drive.Clock
	op       *Operation
	logFile  *os.File
}

// NewDriveApp creates a fully wired DriveApp from the given config.
// command identifies the CLI command being run (e.g. "serve", "user add").
// The caller must call Close when done.
func NewDriveApp(ctx context.Context, cfg *config.Config, command string) (*DriveApp, error) {
	clock := drive.RealClock{}
	op := NewOperation(command, clock.Now())

	logger, logFile, err := newLogger(cfg.LogDir, op.ID, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	adapter := &slogAdapter{l: logger}

	a := &DriveApp{cfg: cfg, logger: logger, clock: clock, op: op, logFile: logFile}
	if err := a.wire(ctx, adapter); err != nil {
		a.closeResources()
		return nil, err
	}

	logger.Debug("command started", "command", command)
	return a, nil
}

func (a *DriveApp) wire(ctx context.Context, logger drive.Logger) error {
	db, err := database.NewDatabaseFromConfig(a.cfg.Database, a.clock)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	a.db = db

	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("database schema out of date: %w", err)
	}

	blobs, err := blob.NewStoreFromConfig(ctx, a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("creating blob store: %w", err)
	}
	if err := blobs.ValidateSetup(ctx); err != nil {
		return fmt.Errorf("validating blob store: %w", err)
	}
	a.blobs = blobs

	notifier, err := notify.NewNotifierFromConfig(a.cfg.Mail, logger)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}
	a.notifier = notifier

	a.service = drive.NewDriveService(db, blobs, notifier, logger, a.clock, drive.UUIDGenerator{}, drive.Options{
		ClientURL:   a.cfg.Server.ClientURL,
		MaxPageSize: a.cfg.Server.MaxPageSize,
	})

	ttl := time.Duration(a.cfg.Auth.TokenTTLMinutes) * time.Minute
	a.auth = auth.NewJWTAuthenticator([]byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.Issuer, ttl, a.clock)
	return nil
}

// Operation returns the tracked CLI command.
func (a *DriveApp) Operation() *Operation {
	return a.op
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *DriveApp) Serve(ctx context.Context) error {
	srv := api.NewServer(a.service, a.auth, &slogAdapter{l: a.logger}, api.Options{
		MaxUploadBytes: a.cfg.Server.MaxUploadBytes,
	})
	timeout := time.Duration(a.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr, timeout)
}

// AddUser registers a user.
func (a *DriveApp) AddUser(ctx context.Context, email, firstName, lastName string) (*model.User, error) {
	return a.service.CreateUser(ctx, email, firstName, lastName, "")
}

// ListUsers returns every registered user.
func (a *DriveApp) ListUsers(ctx context.Context) ([]*model.User, error) {
	return a.service.ListUsers(ctx, "")
}

// IssueToken signs an API token for the user registered with email. A zero
// ttl uses the configured lifetime.
func (a *DriveApp) IssueToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	user, err := a.service.FindUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return a.auth.IssueToken(user.ID, ttl)
}

// ListEntries returns the first page of dirPath in the tree of the user
// registered with email.
func (a *DriveApp) ListEntries(ctx context.Context, email, dirPath string) (*model.Page, error) {
	user, err := a.service.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return a.service.ListEntries(ctx, user.ID, drive.ListQuery{
		DirPath:  dirPath,
		PageSize: a.cfg.Server.MaxPageSize,
	})
}

// ListPermissions returns the permission catalog.
func (a *DriveApp) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return a.service.ListPermissionKinds(ctx)
}

// BackupDatabase writes a consistent snapshot of the database to dest.
func (a *DriveApp) BackupDatabase(dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup destination already exists: %s", dest)
	}
	if err := a.db.BackupTo(dest); err != nil {
		return err
	}
	a.logger.Info("database backed up", "dest", dest)
	return nil
}

// Finish records the outcome of the command.
func (a *DriveApp) Finish(err error) {
	a.op.Finish(err, a.clock.Now())
}

// Close logs the command outcome and releases the database and log file.
func (a *DriveApp) Close() error {
	if !a.op.Finished() {
		a.op.Finish(nil, a.clock.Now())
	}
	a.logger.Info("command finished",
		"command", a.op.Command,
		"status", a.op.Status,
		"duration", a.op.Duration.Truncate(time.Millisecond).String(),
	)
	return a.closeResources()
}

func (a *DriveApp) closeResources() error {
	var firstErr error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			firstErr = fmt.Errorf("closing database: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// MigrateDatabase applies pending migrations to the configured database and
// returns the resulting status.
func MigrateDatabase(cfg *config.Config) (migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, nil)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return migrations.Status{}, err
	}
	return db.MigrationStatus()
}

// DatabaseStatus reports the schema version of the configured database.
func DatabaseStatus(cfg *config.Config) (migrations.Status, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, nil)
	if err != nil {
		return migrations.Status{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return db.MigrationStatus()
}

// DatabaseSchema returns the CREATE statements of the configured database.
func DatabaseSchema(cfg *config.Config) (string, error) {
	db, err := database.NewDatabaseFromConfig(cfg.Database, nil)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return db.Schema()
}
