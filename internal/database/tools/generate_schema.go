// Command generate_schema rewrites sqlc/schema.sql from the embedded
// migrations. Run it from the repository root.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"drive-go/internal/database"
	"drive-go/internal/database/migrations"
)

func main() {
	if err := run(filepath.Join("internal", "database", "sqlc", "schema.sql")); err != nil {
		fmt.Fprintf(os.Stderr, "generate_schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string) error {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		return err
	}
	schema, err := migrations.DumpSchema(db)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, []byte(schema), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}
