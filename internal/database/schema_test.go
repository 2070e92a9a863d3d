package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kiosk-architect/internal/config"
)

const migrationsDir = "../../migrations"

func TestMigrationFilesExist(t *testing.T) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_export_manifests_table.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)
		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestExportManifestsTableHasRequiredColumns(t *testing.T) {
	content, err := os.ReadFile(filepath.Join(migrationsDir, "00001_create_export_manifests_table.sql"))
	if err != nil {
		t.Fatalf("Failed to read export_manifests migration: %v", err)
	}

	contentStr := string(content)
	requiredDefinitions := []string{
		"CREATE TABLE IF NOT EXISTS export_manifests",
		"DROP TABLE IF EXISTS export_manifests",
		"id UUID PRIMARY KEY",
		"backend VARCHAR",
		"root_path TEXT",
		"product_path TEXT",
		"files JSONB",
		"pruned JSONB",
		"created_at TIMESTAMPTZ",
		"'library', 'archive'",
	}

	for _, definition := range requiredDefinitions {
		if !strings.Contains(contentStr, definition) {
			t.Errorf("export_manifests migration missing: %s", definition)
		}
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "kiosk",
		Password: "p@ss word",
		Database: "library",
		Schema:   "public",
		SSLMode:  "disable",
	})

	want := "postgres://kiosk:p%40ss%20word@db:5432/library?search_path=public&sslmode=disable"
	if dsn != want {
		t.Fatalf("expected %s, got %s", want, dsn)
	}
}
