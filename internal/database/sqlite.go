package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"drive-go/internal/database/migrations"
	"drive-go/internal/database/sqlc"
	"drive-go/internal/drive"
	"drive-go/internal/model"
	"drive-go/internal/pathtree"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDatabase implements the Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	queries *sqlc.Queries
	clock   drive.Clock
	path    string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock uses the real time.
func NewSQLiteDatabase(path string, clock drive.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock drive.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = drive.RealClock{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	// Foreign keys are a per-connection setting, so they go in the DSN to
	// cover every connection the pool opens.
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// User operations

func (s *SQLiteDatabase) CreateUser(ctx context.Context, user *model.User) error {
	err := s.queries.InsertUser(ctx, sqlc.InsertUserParams{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Picture:   user.Picture,
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user by id: %w", err)
	}
	return toUser(row), nil
}

func (s *SQLiteDatabase) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding user by email: %w", err)
	}
	return toUser(row), nil
}

func (s *SQLiteDatabase) ListUsers(ctx context.Context, exceptID string) ([]*model.User, error) {
	rows, err := s.queries.ListUsersExcept(ctx, exceptID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]*model.User, len(rows))
	for i, row := range rows {
		users[i] = toUser(row)
	}
	return users, nil
}

// Permission catalog

func (s *SQLiteDatabase) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	names, err := s.queries.ListPermissionNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}
	perms := make([]model.Permission, len(names))
	for i, name := range names {
		perms[i] = model.Permission(name)
	}
	return perms, nil
}

// Entry operations

func (s *SQLiteDatabase) CreateEntry(ctx context.Context, entry *model.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	err = qtx.InsertEntry(ctx, sqlc.InsertEntryParams{
		ID:            entry.ID,
		OwnerID:       entry.OwnerID,
		DirPath:       entry.DirPath,
		Name:          entry.Name,
		Kind:          string(entry.Kind),
		FileExtension: nullString(entry.FileExtension),
		Size:          nullInt64(entry.Size),
		IsPublic:      entry.IsPublic,
		ShareableLink: nullString(entry.ShareableLink),
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("inserting entry %s: %w", entry.FullPath(), drive.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}

	if _, err := ensureOwnerGrants(ctx, qtx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindEntryByID(ctx context.Context, id string) (*model.Entry, error) {
	row, err := s.queries.GetEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding entry by id: %w", err)
	}
	return toEntry(row), nil
}

func (s *SQLiteDatabase) FindEntryByLink(ctx context.Context, token string) (*model.Entry, error) {
	if token == "" {
		return nil, nil
	}
	row, err := s.queries.GetEntryByShareableLink(ctx, nullString(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding entry by link: %w", err)
	}
	return toEntry(row), nil
}

func (s *SQLiteDatabase) FindEntryByPath(ctx context.Context, ownerID, dirPath, name string) (*model.Entry, error) {
	row, err := s.queries.GetEntryByPath(ctx, sqlc.GetEntryByPathParams{
		OwnerID: ownerID,
		DirPath: dirPath,
		Name:    name,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding entry by path: %w", err)
	}
	return toEntry(row), nil
}

func (s *SQLiteDatabase) FindDescendants(ctx context.Context, entry *model.Entry) ([]*model.Entry, error) {
	return findDescendants(ctx, s.queries, entry)
}

// findDescendants narrows candidates with LIKE and confirms each one
// segment-wise, so a sibling such as "/docs2" never matches "/docs".
func findDescendants(ctx context.Context, q *sqlc.Queries, entry *model.Entry) ([]*model.Entry, error) {
	fullPath := entry.FullPath()
	rows, err := q.GetEntriesUnderPath(ctx, sqlc.GetEntriesUnderPathParams{
		OwnerID:        entry.OwnerID,
		DirPath:        fullPath,
		DirPathPattern: pathtree.LikePrefix(fullPath),
	})
	if err != nil {
		return nil, fmt.Errorf("finding descendants: %w", err)
	}

	var out []*model.Entry
	for _, row := range rows {
		if row.ID == entry.ID || !pathtree.IsWithin(row.DirPath, fullPath) {
			continue
		}
		out = append(out, toEntry(row))
	}
	return out, nil
}

func (s *SQLiteDatabase) ListEntries(ctx context.Context, q drive.EntryQuery) ([]*model.Entry, int64, error) {
	pattern := "%" + likeEscape(strings.ToLower(q.Search)) + "%"

	total, err := s.queries.CountEntriesInDir(ctx, sqlc.CountEntriesInDirParams{
		OwnerID:     q.OwnerID,
		DirPath:     q.DirPath,
		NamePattern: pattern,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("counting entries: %w", err)
	}

	rows, err := s.queries.ListEntriesInDir(ctx, sqlc.ListEntriesInDirParams{
		OwnerID:     q.OwnerID,
		DirPath:     q.DirPath,
		NamePattern: pattern,
		Limit:       int64(q.Limit),
		Offset:      int64(q.Offset),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("listing entries: %w", err)
	}

	entries := make([]*model.Entry, len(rows))
	for i, row := range rows {
		entries[i] = toEntry(row)
	}
	return entries, total, nil
}

func (s *SQLiteDatabase) UpdateEntryPublic(ctx context.Context, id string, isPublic bool) error {
	err := s.queries.UpdateEntryIsPublic(ctx, sqlc.UpdateEntryIsPublicParams{
		IsPublic:  isPublic,
		UpdatedAt: s.clock.Now(),
		ID:        id,
	})
	if err != nil {
		return fmt.Errorf("updating entry visibility: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateEntryLink(ctx context.Context, id string, token string) error {
	err := s.queries.UpdateEntryShareableLink(ctx, sqlc.UpdateEntryShareableLinkParams{
		ShareableLink: nullString(token),
		UpdatedAt:     s.clock.Now(),
		ID:            id,
	})
	if err != nil {
		return fmt.Errorf("updating shareable link: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateEntryContent(ctx context.Context, id string, size int64, extension string) error {
	err := s.queries.UpdateEntryContent(ctx, sqlc.UpdateEntryContentParams{
		Size:          sql.NullInt64{Int64: size, Valid: true},
		FileExtension: nullString(extension),
		UpdatedAt:     s.clock.Now(),
		ID:            id,
	})
	if err != nil {
		return fmt.Errorf("updating entry content: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) MoveEntry(ctx context.Context, entry *model.Entry, dirPath, name string) (int, error) {
	now := s.clock.Now()
	oldPath := entry.FullPath()
	newPath := pathtree.Join(dirPath, name)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	var descendants []*model.Entry
	if entry.IsDir() {
		descendants, err = findDescendants(ctx, qtx, entry)
		if err != nil {
			return 0, err
		}
	}

	ext := entry.FileExtension
	if !entry.IsDir() {
		ext = pathtree.Ext(name)
	}
	err = qtx.UpdateEntryLocation(ctx, sqlc.UpdateEntryLocationParams{
		DirPath:       dirPath,
		Name:          name,
		FileExtension: nullString(ext),
		UpdatedAt:     now,
		ID:            entry.ID,
	})
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("moving entry to %s: %w", newPath, drive.ErrDuplicateEntry)
	}
	if err != nil {
		return 0, fmt.Errorf("moving entry: %w", err)
	}

	for _, d := range descendants {
		err := qtx.UpdateEntryDirPath(ctx, sqlc.UpdateEntryDirPathParams{
			DirPath:   pathtree.Rebase(d.DirPath, oldPath, newPath),
			UpdatedAt: now,
			ID:        d.ID,
		})
		if err != nil {
			return 0, fmt.Errorf("moving descendant %s: %w", d.FullPath(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(descendants), nil
}

func (s *SQLiteDatabase) DeleteEntryTree(ctx context.Context, entry *model.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	var descendants []*model.Entry
	if entry.IsDir() {
		descendants, err = findDescendants(ctx, qtx, entry)
		if err != nil {
			return 0, err
		}
	}

	// Grants go with each entry through ON DELETE CASCADE.
	for _, d := range descendants {
		if err := qtx.DeleteEntryByID(ctx, d.ID); err != nil {
			return 0, fmt.Errorf("deleting descendant %s: %w", d.FullPath(), err)
		}
	}
	if err := qtx.DeleteEntryByID(ctx, entry.ID); err != nil {
		return 0, fmt.Errorf("deleting entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return len(descendants) + 1, nil
}

// Grant operations

func (s *SQLiteDatabase) FindGrantsForEntry(ctx context.Context, entryID string) ([]*model.Grant, error) {
	rows, err := s.queries.GetGrantsForEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("finding grants for entry: %w", err)
	}

	grants := make([]*model.Grant, len(rows))
	for i, row := range rows {
		grants[i] = &model.Grant{
			ID:         row.ID,
			UserID:     row.UserID,
			EntryID:    row.EntryID,
			Permission: model.Permission(row.Permission),
			User: &model.User{
				ID:        row.UserID,
				Email:     row.Email,
				FirstName: row.FirstName,
				LastName:  row.LastName,
				Picture:   row.Picture,
				CreatedAt: row.CreatedAt,
			},
		}
	}
	return grants, nil
}

func (s *SQLiteDatabase) HasGrant(ctx context.Context, userID string, entryIDs []string, perm model.Permission) (bool, error) {
	for _, id := range entryIDs {
		count, err := s.queries.CountGrant(ctx, sqlc.CountGrantParams{
			UserID:     userID,
			EntryID:    id,
			Permission: string(perm),
		})
		if err != nil {
			return false, fmt.Errorf("counting grants: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *SQLiteDatabase) AddGrants(ctx context.Context, grants []*model.Grant) ([]*model.Grant, error) {
	if len(grants) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	var added []*model.Grant
	for _, g := range grants {
		ok, id, err := insertGrant(ctx, qtx, g.UserID, g.EntryID, g.Permission)
		if err != nil {
			return nil, err
		}
		if ok {
			g.ID = id
			added = append(added, g)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return added, nil
}

func (s *SQLiteDatabase) ApplyGrantChanges(ctx context.Context, changes *drive.GrantChanges) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	// Deletes first so that an update never collides with a row that is
	// about to go away.
	for _, id := range changes.Delete {
		if err := qtx.DeleteGrantByID(ctx, id); err != nil {
			return fmt.Errorf("deleting grant %d: %w", id, err)
		}
	}
	for _, u := range changes.Update {
		err := qtx.UpdateGrantPermission(ctx, sqlc.UpdateGrantPermissionParams{
			Permission: string(u.Permission),
			ID:         u.ID,
		})
		if err != nil {
			return fmt.Errorf("updating grant %d: %w", u.ID, err)
		}
	}
	for _, g := range changes.Insert {
		if _, _, err := insertGrant(ctx, qtx, g.UserID, g.EntryID, g.Permission); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) EnsureOwnerGrants(ctx context.Context, entry *model.Entry) (int, error) {
	return ensureOwnerGrants(ctx, s.queries, entry)
}

func ensureOwnerGrants(ctx context.Context, q *sqlc.Queries, entry *model.Entry) (int, error) {
	names, err := q.ListPermissionNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing permissions: %w", err)
	}

	created := 0
	for _, name := range names {
		ok, _, err := insertGrant(ctx, q, entry.OwnerID, entry.ID, model.Permission(name))
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// insertGrant inserts a grant unless an identical one exists. It reports
// whether a row was inserted and its id.
func insertGrant(ctx context.Context, q *sqlc.Queries, userID, entryID string, perm model.Permission) (bool, int64, error) {
	res, err := q.InsertGrant(ctx, sqlc.InsertGrantParams{
		UserID:     userID,
		EntryID:    entryID,
		Permission: string(perm),
	})
	if err != nil {
		return false, 0, fmt.Errorf("inserting grant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("inserting grant: %w", err)
	}
	if n == 0 {
		return false, 0, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, 0, fmt.Errorf("inserting grant: %w", err)
	}
	return true, id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// MigrationStatus reports the schema version against the embedded migrations.
func (s *SQLiteDatabase) MigrationStatus() (migrations.Status, error) {
	return migrations.ReadStatus(s.db)
}

// Schema dumps the CREATE statements of the database.
func (s *SQLiteDatabase) Schema() (string, error) {
	return migrations.DumpSchema(s.db)
}

// Migrate applies any pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func toUser(row sqlc.User) *model.User {
	return &model.User{
		ID:        row.ID,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Picture:   row.Picture,
		CreatedAt: row.CreatedAt,
	}
}

func toEntry(row sqlc.Entry) *model.Entry {
	e := &model.Entry{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		DirPath:       row.DirPath,
		Name:          row.Name,
		Kind:          model.EntryKind(row.Kind),
		FileExtension: row.FileExtension.String,
		IsPublic:      row.IsPublic,
		ShareableLink: row.ShareableLink.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.Size.Valid {
		size := row.Size.Int64
		e.Size = &size
	}
	return e
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func likeEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Compile-time check that SQLiteDatabase implements drive.Database interface
var _ drive.Database = (*SQLiteDatabase)(nil)
