package db

import (
	"context"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"companion-backend/internal/schema"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	files, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	var all strings.Builder
	for _, name := range files {
		data, err := fs.ReadFile(migrationFiles, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		body := string(data)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
		if strings.Count(body, "-- +goose StatementBegin") != strings.Count(body, "-- +goose StatementEnd") {
			t.Fatalf("%s has unbalanced statement blocks", name)
		}
		all.WriteString(body)
	}

	sql := all.String()
	for _, table := range schema.Tables {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Fatalf("no table definition for %s", table)
		}
		if !strings.Contains(sql, "FUNCTION "+schema.EnsureFunction(table)+"()") {
			t.Fatalf("no ensure function for %s", table)
		}
	}
	if !strings.Contains(sql, "FUNCTION "+schema.MatchesWithDetails+"(") {
		t.Fatalf("no %s function", schema.MatchesWithDetails)
	}
}

func TestRunMigrationsNilDatabase(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestMigrationsListedInApplyOrder(t *testing.T) {
	names, err := Migrations()
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(names) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	if !sort.StringsAreSorted(names) {
		t.Fatalf("expected sorted names, got %v", names)
	}
}
