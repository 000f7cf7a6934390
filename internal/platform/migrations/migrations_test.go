package migrations

import (
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedSourceListsInitMigration(t *testing.T) {
	source, err := iofs.New(files, ".")
	if err != nil {
		t.Fatalf("iofs.New: %v", err)
	}
	defer source.Close()

	version, err := source.First()
	if err != nil {
		t.Fatalf("source.First: %v", err)
	}
	if version != 1 {
		t.Fatalf("first version = %d, want 1", version)
	}

	up, _, err := source.ReadUp(version)
	if err != nil {
		t.Fatalf("ReadUp(%d): %v", version, err)
	}
	up.Close()

	down, _, err := source.ReadDown(version)
	if err != nil {
		t.Fatalf("ReadDown(%d): %v", version, err)
	}
	down.Close()
}
