package shared

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// Migration is one versioned change to the session schema.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		applied_at INTEGER NOT NULL
	)
`

// Migrations returns the embedded migrations in version order.
//
// Files are named NNNN_name_up.sql and NNNN_name_down.sql; every version needs both halves.
func Migrations() ([]Migration, error) {
	entries, err := schemaFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		file := entry.Name()
		base, up := strings.CutSuffix(file, "_up.sql")
		if !up {
			var down bool
			if base, down = strings.CutSuffix(file, "_down.sql"); !down {
				continue
			}
		}

		prefix, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := schemaFiles.ReadFile("sql/" + file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if up {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("incomplete migration for version %d", m.Version)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

// RunMigrations brings the credential and pending authorization tables up to date and returns the
// migrations it applied. Each migration runs in its own transaction.
func RunMigrations(ctx context.Context, db *sql.DB) ([]Migration, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return nil, err
	}

	var applied []Migration
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := inTx(ctx, db, func(tx *sql.Tx) error {
			if err := execScript(ctx, tx, m.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				m.Version, m.Name, time.Now().Unix(),
			)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		applied = append(applied, m)
	}
	return applied, nil
}

// ResetSchema reverts every applied migration, newest first, in a single transaction. Stored credentials and
// pending authorizations are dropped with their tables.
func ResetSchema(ctx context.Context, db *sql.DB) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return inTx(ctx, db, func(tx *sql.Tx) error {
		for _, m := range slices.Backward(migrations) {
			var applied bool
			if err := tx.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", m.Version).Scan(&applied); err != nil {
				return fmt.Errorf("failed to check migration %d: %w", m.Version, err)
			}
			if !applied {
				continue
			}
			if err := execScript(ctx, tx, m.Down); err != nil {
				return fmt.Errorf("failed to revert migration %d (%s): %w", m.Version, m.Name, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version); err != nil {
				return err
			}
		}
		return nil
	})
}

// SchemaVersion is the highest applied migration, or 0 for an empty database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// execScript runs each statement of script. Line comments are stripped first.
func execScript(ctx context.Context, tx *sql.Tx, script string) error {
	var lines []string
	for line := range strings.Lines(script) {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i] + "\n"
		}
		lines = append(lines, line)
	}

	for stmt := range strings.SplitSeq(strings.Join(lines, ""), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w\nstatement: %s", err, stmt)
		}
	}
	return nil
}
