// Package repository provides the generic Repository capability (§4.1):
// list/create/update/get against a Postgres table, generalized with Go
// generics over sqlx struct scanning, adapted from the teacher's
// per-entity hand-written store_*.go methods (raw SQL, uuid.New() +
// time.Now().UTC() stamping) combined with the shape of its
// generics-based GenericCreate/GenericUpdate/GenericGetByField helpers.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/service_layer/internal/apperrors"
)

// Entity is implemented by a pointer to every domain struct stored through a
// Repository. PrimaryKey returns the column/value pairs identifying one row
// (composite keys return more than one entry); Stamp sets created_at/updated_at
// in process before a write.
type Entity interface {
	PrimaryKey() map[string]any
	Stamp(createdAt, updatedAt time.Time)
	EnsureID()
}

// Repository is a generic per-entity capability over one table. T is the
// plain domain struct; callers operate in terms of *T.
type Repository[T any] struct {
	db      *sqlx.DB
	table   string
	columns []string
}

// New builds a Repository for table, with columns naming every db-tagged
// field that list/create/update/get should read and write.
func New[T any](db *sqlx.DB, table string, columns ...string) *Repository[T] {
	return &Repository[T]{db: db, table: table, columns: columns}
}

func entityOf[T any](v *T) Entity {
	e, ok := any(v).(Entity)
	if !ok {
		panic(fmt.Sprintf("repository: %T does not implement Entity", v))
	}
	return e
}

// List fetches all rows ordered by created_at descending.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", strings.Join(r.columns, ", "), r.table)
	var rows []T
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, apperrors.Internalf(err, "list %s", r.table)
	}
	return rows, nil
}

// ListWhere fetches rows matching a caller-supplied predicate fragment
// (e.g. "hypervisor_id = $1"), ordered by created_at descending.
func (r *Repository[T]) ListWhere(ctx context.Context, predicate string, args ...any) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC", strings.Join(r.columns, ", "), r.table, predicate)
	var rows []T
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.Internalf(err, "list %s where %s", r.table, predicate)
	}
	return rows, nil
}

// Create inserts v and returns it as inserted: a missing id is generated and
// created_at/updated_at are set to the current UTC time in process before
// the INSERT. The store does not fill or return the timestamps.
func (r *Repository[T]) Create(ctx context.Context, v T) (T, error) {
	now := time.Now().UTC()
	e := entityOf(&v)
	e.EnsureID()
	e.Stamp(now, now)

	placeholders := make([]string, len(r.columns))
	for i := range r.columns {
		placeholders[i] = fmt.Sprintf(":%s", r.columns[i])
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.table, strings.Join(r.columns, ", "), strings.Join(placeholders, ", "),
	)
	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		var zero T
		return zero, apperrors.Internalf(err, "create %s", r.table)
	}
	return v, nil
}

// Update updates v by primary key, returning the persisted row. Fails with
// NotFound if the row is absent. created_at is never overwritten.
func (r *Repository[T]) Update(ctx context.Context, v T) (T, error) {
	entityOf(&v).Stamp(time.Time{}, time.Now().UTC())

	pk := entityOf(&v).PrimaryKey()
	setCols := make([]string, 0, len(r.columns))
	for _, c := range r.columns {
		if _, isKey := pk[c]; isKey || c == "created_at" {
			continue
		}
		setCols = append(setCols, fmt.Sprintf("%s = :%s", c, c))
	}

	where := make([]string, 0, len(pk))
	for k := range pk {
		where = append(where, fmt.Sprintf("%s = :%s", k, k))
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", r.table, strings.Join(setCols, ", "), strings.Join(where, " AND "))
	result, err := r.db.NamedExecContext(ctx, query, v)
	if err != nil {
		var zero T
		return zero, apperrors.Internalf(err, "update %s", r.table)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		var zero T
		return zero, apperrors.Internalf(err, "update %s rows affected", r.table)
	}
	if affected == 0 {
		var zero T
		return zero, apperrors.NotFoundf(r.table, fmt.Sprintf("%v", pk))
	}
	return r.Get(ctx, pk)
}

// Get fetches one row by primary key. Fails with NotFound on an absent row.
func (r *Repository[T]) Get(ctx context.Context, key map[string]any) (T, error) {
	where := make([]string, 0, len(key))
	args := make([]any, 0, len(key))
	i := 1
	for k, v := range key {
		where = append(where, fmt.Sprintf("%s = $%d", k, i))
		args = append(args, v)
		i++
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(r.columns, ", "), r.table, strings.Join(where, " AND "))

	var v T
	if err := r.db.GetContext(ctx, &v, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return v, apperrors.NotFoundf(r.table, fmt.Sprintf("%v", key))
		}
		return v, apperrors.Internalf(err, "get %s", r.table)
	}
	return v, nil
}

// GetByID is a convenience wrapper for the common single-uuid-key case.
func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	return r.Get(ctx, map[string]any{"id": id})
}

// Delete removes the row matching key. Fails with NotFound if absent.
func (r *Repository[T]) Delete(ctx context.Context, key map[string]any) error {
	where := make([]string, 0, len(key))
	args := make([]any, 0, len(key))
	i := 1
	for k, v := range key {
		where = append(where, fmt.Sprintf("%s = $%d", k, i))
		args = append(args, v)
		i++
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", r.table, strings.Join(where, " AND "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Internalf(err, "delete %s", r.table)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Internalf(err, "delete %s rows affected", r.table)
	}
	if affected == 0 {
		return apperrors.NotFoundf(r.table, fmt.Sprintf("%v", key))
	}
	return nil
}
