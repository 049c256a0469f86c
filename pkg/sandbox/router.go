package sandbox

import (
	"context"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
)

// RoutedDatabase is the stable handle application code uses in place of the
// real client. It implements dbx.Database, so callers and any code composed
// on top of the client keep working unmodified. Every call is dispatched
// through a small decision table:
//
//  1. no open session: forward to the original database unchanged;
//  2. pool and configuration accessors: always the original, that state is
//     frozen at construction and must not be shadowed;
//  3. the interactive transaction entry point: the sandbox transaction proxy,
//     which wraps the whole call in one savepoint;
//  4. data operations: the active nested scope, each call wrapped in its own
//     savepoint unless the call chain is already inside one; per-entity
//     accessors are wrapped at the delegate level via Repository;
//  5. TxBegin while a session is open: a savepoint-backed transaction handle.
type RoutedDatabase struct {
	sandbox *Sandbox
}

var _ dbx.Database = (*RoutedDatabase)(nil)

// GetDbConnPool - always the original client's pool.
func (r *RoutedDatabase) GetDbConnPool() (any, error) {
	return r.sandbox.db.GetDbConnPool()
}

// CloseDbConnPool - always closes the original client's pool.
func (r *RoutedDatabase) CloseDbConnPool() {
	r.sandbox.db.CloseDbConnPool()
}

// GetConnectionConfig - always the original client's configuration.
func (r *RoutedDatabase) GetConnectionConfig() dbx.ConnConfig {
	return r.sandbox.db.GetConnectionConfig()
}

// Query executes a query through the active nested scope, or directly against
// the original database when no session is open.
func (r *RoutedDatabase) Query(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	if r.sandbox.currentSession() == nil {
		return r.sandbox.db.Query(ctx, query, args...)
	}

	result, err := r.runScoped(ctx, func(ctx context.Context, tx dbx.Transaction) (any, error) {
		return tx.TxQuery(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}

	return result.(dbx.ResultSet), nil
}

// Exec executes a command query through the active nested scope, or directly
// against the original database when no session is open.
func (r *RoutedDatabase) Exec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	if r.sandbox.currentSession() == nil {
		return r.sandbox.db.Exec(ctx, execQuery, args...)
	}

	result, err := r.runScoped(ctx, func(ctx context.Context, tx dbx.Transaction) (any, error) {
		return tx.TxExec(ctx, execQuery, args...)
	})
	if err != nil {
		return 0, err
	}

	return result.(int64), nil
}

// QueryAndProcess materializes the scoped query result and feeds each row to
// the callback, matching the original client's row-by-row contract.
func (r *RoutedDatabase) QueryAndProcess(ctx context.Context, processCallback func(row dbx.Row, rowScan dbx.RowScan) error, query string, args ...any) error {
	if r.sandbox.currentSession() == nil {
		return r.sandbox.db.QueryAndProcess(ctx, processCallback, query, args...)
	}

	_, err := r.runScoped(ctx, func(ctx context.Context, tx dbx.Transaction) (any, error) {
		resultSet, err := tx.TxQuery(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer resultSet.Close()

		rowsScan := resultSet.GetRowsScan()
		for i, row := range resultSet.GetRows() {
			if err := processCallback(row, rowsScan[i]); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})

	return err
}

// TxBegin returns an explicit nested scope while a session is open: a
// transaction handle backed by a savepoint that is released on TxCommit and
// rolled back to on TxRollback. With no session open it forwards to the
// original client.
func (r *RoutedDatabase) TxBegin(ctx context.Context) (dbx.Transaction, error) {
	if r.sandbox.currentSession() == nil {
		return r.sandbox.db.TxBegin(ctx)
	}

	return r.sandbox.beginScopedTx(ctx)
}

// ExecTransactionalTask routes the client's interactive transaction entry
// point through the sandbox transaction proxy while a session is open. The
// task options only apply to real transactions, savepoints carry no timeout,
// so they are dropped on the sandboxed path.
func (r *RoutedDatabase) ExecTransactionalTask(ctx context.Context, opts dbx.TxTaskOptions, task dbx.TxTask) error {
	if r.sandbox.currentSession() == nil {
		return r.sandbox.db.ExecTransactionalTask(ctx, opts, task)
	}

	_, err := r.sandbox.Transaction(ctx, task)

	return err
}

// Repository wraps a per-entity accessor at the delegate level, so that each
// of its data operations is individually interceptable. Repositories are the
// values implementing the dbx.Queryable capability marker.
func (r *RoutedDatabase) Repository(repo *dbx.Repository) *RoutedRepository {
	return &RoutedRepository{sandbox: r.sandbox, repo: repo}
}

// runScoped executes op in the active scope: inline when the call chain is
// already inside a savepoint, in its own savepoint otherwise.
func (r *RoutedDatabase) runScoped(ctx context.Context, op Operation) (any, error) {
	if _, nested := ScopeFromContext(ctx); nested {
		snapshot := r.sandbox.currentSession()
		if snapshot == nil {
			return nil, &NoActiveTransactionError{}
		}

		return op(ctx, &guardedTx{sandbox: r.sandbox, snapshot: snapshot})
	}

	return r.sandbox.wrapInSavepoint(ctx, op)
}
