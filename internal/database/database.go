// Package database opens the Postgres connection pool and applies the
// embedded schema migrations.
package database

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/wb-go/wbf/dbpg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open connects to Postgres via dbpg (master plus optional read
// replicas) and runs goose migrations against the master.
func Open(masterDSN string, slaveDSNs []string, opts *dbpg.Options) (*dbpg.DB, error) {
	db, err := dbpg.New(masterDSN, slaveDSNs, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *dbpg.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db.Master, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}
