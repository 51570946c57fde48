package migrations

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
)

// Run executes a migrate subcommand: up, down, version or force <n>.
func Run(migrationFiles embed.FS, databaseURL string, args []string) error {
	if len(args) == 0 {
		return errors.New("missing migrate command: up, down, version or force <version>")
	}
	switch args[0] {
	case "up":
		return Up(migrationFiles, databaseURL)
	case "down":
		return Down(migrationFiles, databaseURL)
	case "version":
		return Version(migrationFiles, databaseURL)
	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version")
		}
		return Force(migrationFiles, databaseURL, args[1])
	}
	return fmt.Errorf("unknown migrate command %q", args[0])
}

// Up runs all available migrations
func Up(migrationFiles embed.FS, databaseURL string) error {
	m, err := NewMigrator(migrationFiles, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Info("No new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations applied successfully")
	return nil
}

// Down rolls back one migration
func Down(migrationFiles embed.FS, databaseURL string) error {
	m, err := NewMigrator(migrationFiles, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}

	slog.Info("Migration rolled back successfully")
	return nil
}

// Force sets the recorded version without running migrations, to recover
// from a dirty state.
func Force(migrationFiles embed.FS, databaseURL, version string) error {
	versionInt, err := strconv.Atoi(version)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}

	m, err := NewMigrator(migrationFiles, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Force(versionInt); err != nil {
		return fmt.Errorf("failed to force migration to version %s: %w", version, err)
	}

	slog.Info("Migration forced successfully", "version", version)
	return nil
}

// Version shows the current migration version
func Version(migrationFiles embed.FS, databaseURL string) error {
	m, err := NewMigrator(migrationFiles, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	status := "clean"
	if dirty {
		status = "dirty"
	}

	slog.Info("Current migration version", "version", version, "status", status)
	return nil
}
