package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/service_layer/internal/apperrors"
	"github.com/R3E-Network/service_layer/internal/domain"
)

func newMockRepo(t *testing.T) (*Repository[domain.Organization], sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	sqlxDB := sqlx.NewDb(db, "postgres")
	repo := New[domain.Organization](sqlxDB, "organizations", "id", "name", "parent_organization_id", "created_at", "updated_at")
	return repo, mock, func() { db.Close() }
}

func TestRepositoryListReturnsRows(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "name", "parent_organization_id", "created_at", "updated_at"}).
		AddRow("11111111-1111-1111-1111-111111111111", "acme", "22222222-2222-2222-2222-222222222222", time.Now(), time.Now())
	mock.ExpectQuery(`SELECT .* FROM organizations ORDER BY created_at DESC`).WillReturnRows(rows)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "acme" {
		t.Fatalf("List() = %+v, want one row named acme", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryCreateStampsAndInserts(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO organizations`).WillReturnResult(sqlmock.NewResult(1, 1))

	got, err := repo.Create(context.Background(), domain.Organization{Name: "acme"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.ID == uuid.Nil {
		t.Fatal("Create() did not assign an ID")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("Create() did not stamp timestamps")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .* FROM organizations WHERE id = `).WillReturnRows(sqlmock.NewRows(nil))

	_, err := repo.GetByID(context.Background(), uuid.Nil)
	if apperrors.KindOf(err) != apperrors.NotFound {
		t.Fatalf("GetByID() error = %v, want NotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryDeleteNotFound(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM organizations WHERE id = `).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), map[string]any{"id": uuid.Nil})
	if apperrors.KindOf(err) != apperrors.NotFound {
		t.Fatalf("Delete() error = %v, want NotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
