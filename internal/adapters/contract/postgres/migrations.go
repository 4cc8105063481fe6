package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Apply runs every up migration in file name order.
func Apply(ctx context.Context, db *sql.DB) error {
	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		if err := execMigration(ctx, db, name); err != nil {
			return err
		}
	}
	return nil
}

// ApplyNamed runs the single migration whose file name ends in
// "<migrationName>.sql", e.g. "create_polls.up" or "create_polls.down".
func ApplyNamed(ctx context.Context, db *sql.DB, migrationName string) error {
	pattern, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return fmt.Errorf("invalid migration name: %w", err)
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if pattern.MatchString(name) {
			return execMigration(ctx, db, name)
		}
	}
	return fmt.Errorf("migration file not found: %s", migrationName)
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func execMigration(ctx context.Context, db *sql.DB, name string) error {
	content, err := fs.ReadFile(migrationFiles, "migrations/"+name)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", name, err)
	}
	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", name, err)
	}
	return nil
}
