package dbx

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcodd23/go-tx-sandbox/pkg/errorx"
)

// Queryable marks a per-entity accessor whose data operations can be
// individually intercepted. It is an explicit capability marker: wrappers that
// reroute data access (for example the sandbox call router) wrap exactly the
// values implementing this interface.
type Queryable interface {
	FindFirst(ctx context.Context, where string, args ...any) (Row, error)
}

// Repository is a minimal per-table accessor built on an Executor.
//
// Column names are derived from the `db` struct tags of the entity type the
// repository was created for, so the same struct drives both reads and writes.
// A Repository carries no connection state of its own: rebinding it to another
// Executor (WithExecutor) retargets every operation, which is what allows a
// transaction-scoped or sandboxed executor to be swapped in transparently.
type Repository struct {
	exec    Executor
	table   string
	columns []string
}

// NewRepository creates a Repository for the given table, deriving the column
// list from the `db` tags of the entity struct.
func NewRepository[T any](exec Executor, table string, entity T) (*Repository, error) {
	columns, err := DeriveColumnNamesFromTags(entity, "db")
	if err != nil {
		return nil, err
	}

	if len(columns) == 0 {
		return nil, errorx.NewDatabaseError("no `db` tagged columns found for table %s", table)
	}

	return &Repository{exec: exec, table: table, columns: columns}, nil
}

// WithExecutor returns a copy of the repository bound to another Executor.
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{exec: exec, table: r.table, columns: r.columns}
}

// Table - the table this repository reads and writes.
func (r *Repository) Table() string {
	return r.table
}

// Columns - the tag-derived column list, in declaration order.
func (r *Repository) Columns() []string {
	return r.columns
}

// FindFirst returns the first row matching the where clause, or nil when no
// row matches. The where clause uses positional placeholders ($1, $2, ...).
func (r *Repository) FindFirst(ctx context.Context, where string, args ...any) (Row, error) {
	rows, err := r.find(ctx, where, 1, args...)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0], nil
}

// FindMany returns all rows matching the where clause.
func (r *Repository) FindMany(ctx context.Context, where string, args ...any) ([]Row, error) {
	return r.find(ctx, where, 0, args...)
}

func (r *Repository) find(ctx context.Context, where string, limit int, args ...any) ([]Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(r.columns, ", "), r.table)
	if where != "" {
		query = fmt.Sprintf("%s WHERE %s", query, where)
	}

	if limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	resultSet, err := r.exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer resultSet.Close()

	return resultSet.GetRows(), nil
}

// Insert writes one row of values, matching the repository column order.
func (r *Repository) Insert(ctx context.Context, values Row) (int64, error) {
	if len(values) != len(r.columns) {
		return 0, errorx.NewDatabaseError("expected %d values for table %s, got %d", len(r.columns), r.table, len(values))
	}

	placeholders := make([]string, len(r.columns))
	for i := range r.columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.table,
		strings.Join(r.columns, ", "),
		strings.Join(placeholders, ", "))

	return r.exec.Exec(ctx, query, values...)
}

// Delete removes the rows matching the where clause and returns the number of
// rows affected.
func (r *Repository) Delete(ctx context.Context, where string, args ...any) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s", r.table)
	if where != "" {
		query = fmt.Sprintf("%s WHERE %s", query, where)
	}

	return r.exec.Exec(ctx, query, args...)
}

// InsertEntity inserts a struct, deriving the values from its `db` tags.
func InsertEntity[T any](ctx context.Context, r *Repository, entity T) (int64, error) {
	rows, err := StructsToRows([]T{entity}, "db")
	if err != nil {
		return 0, err
	}

	return r.Insert(ctx, rows[0])
}
