package database

import (
	"strings"
	"testing"
)

func TestMigrationsEmbedded(t *testing.T) {
	names, err := Migrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) < 2 || names[0] != "00001_init.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}
	body, err := migrations.ReadFile("migrations/00001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "CREATE TABLE IF NOT EXISTS tickets"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in init migration", want)
		}
	}
}

func TestEnsureDatabaseRejectsEmptyName(t *testing.T) {
	if err := ensureDatabase("postgres://u:p@localhost:5432/?sslmode=disable"); err == nil {
		t.Error("expected an error for a url without database name")
	}
}
