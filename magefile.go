//go:build mage

package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/joho/godotenv"
)

const migrationsDir = "internal/migrations/migrations"

// MigrateUp runs all pending migrations
func MigrateUp() error {
	return migrate("up")
}

// MigrateDown rolls back the last migration
func MigrateDown() error {
	return migrate("down")
}

// MigrateVersion prints the current schema version
func MigrateVersion() error {
	return migrate("version")
}

// MigrateCreate creates new migration files
func MigrateCreate(name string) error {
	if name == "" {
		return fmt.Errorf("migration name is required")
	}
	return run("migrate", "create", "-ext", "sql", "-dir", migrationsDir, "-seq", name)
}

// Test runs the unit tests with the race detector
func Test() error {
	return run("go", "test", "-race", "./...")
}

// Build compiles the service binary into bin/
func Build() error {
	return run("go", "build", "-o", "bin/inventoryhub", "./cmd")
}

// Serve runs the API against the local .env
func Serve() error {
	loadEnv()
	return run("go", "run", "./cmd", "serve")
}

// Worker runs the task worker against the local .env
func Worker() error {
	loadEnv()
	return run("go", "run", "./cmd", "worker")
}

func migrate(args ...string) error {
	loadEnv()
	return run("go", append([]string{"run", "./cmd", "migrate"}, args...)...)
}

func loadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	return cmd.Run()
}
