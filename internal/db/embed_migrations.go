package db

import "embed"

// MigrationFS embeds the SQL migration files from internal/db/migrations.
// The migrate runner (cmd/migrate) applies them through golang-migrate's iofs
// source.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
