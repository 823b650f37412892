package database

// Regenerating the sqlc layer is two steps: dump the migrated schema, then
// run sqlc over it. sqlc must be on PATH.
//
//   go generate ./internal/database

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
