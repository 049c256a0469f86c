package sandbox

import (
	"context"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
)

// DeferredQuery is a data operation captured at call time and executed when
// awaited. Awaiting routes through the sandbox exactly like a direct call:
// with no session open it runs against the original database; inside an open
// scope it runs inline; otherwise it gets its own savepoint. Passing a slice
// of deferred queries to Sandbox.Transaction runs them all in one savepoint.
type DeferredQuery struct {
	sandbox *Sandbox
	op      Operation
	// direct runs the operation against the original database, used when no
	// session is open at await time.
	direct func(ctx context.Context) (any, error)

	errFns []func(error)
	finFns []func()
}

// OnError registers a callback invoked when awaiting fails. It returns the
// query so registrations chain.
func (d *DeferredQuery) OnError(fn func(error)) *DeferredQuery {
	d.errFns = append(d.errFns, fn)
	return d
}

// Finally registers a callback invoked after awaiting, on success and failure
// alike.
func (d *DeferredQuery) Finally(fn func()) *DeferredQuery {
	d.finFns = append(d.finFns, fn)
	return d
}

// Await executes the captured operation and returns its result.
func (d *DeferredQuery) Await(ctx context.Context) (any, error) {
	result, err := d.run(ctx)

	if err != nil {
		for _, fn := range d.errFns {
			fn(err)
		}
	}

	for _, fn := range d.finFns {
		fn()
	}

	return result, err
}

func (d *DeferredQuery) run(ctx context.Context) (any, error) {
	snapshot := d.sandbox.currentSession()
	if snapshot == nil {
		return d.direct(ctx)
	}

	if _, nested := ScopeFromContext(ctx); nested {
		return d.op(ctx, &guardedTx{sandbox: d.sandbox, snapshot: snapshot})
	}

	return d.sandbox.wrapInSavepoint(ctx, d.op)
}

// RoutedRepository wraps a per-entity accessor so that each data operation is
// intercepted individually and returned as a DeferredQuery. This is the
// delegate-level counterpart of RoutedDatabase: the top-level router handles
// whole-client calls, this one handles the methods of a single Queryable.
type RoutedRepository struct {
	sandbox *Sandbox
	repo    *dbx.Repository
}

var _ dbx.Queryable = (*RoutedRepository)(nil)

// FindFirst defers a single-row lookup. The untyped result of awaiting is a
// dbx.Row, or nil when no row matches.
func (rr *RoutedRepository) FindFirstDeferred(where string, args ...any) *DeferredQuery {
	return rr.newDeferred(
		func(ctx context.Context, tx dbx.Transaction) (any, error) {
			return rr.repo.WithExecutor(txExecutor{tx: tx}).FindFirst(ctx, where, args...)
		},
		func(ctx context.Context) (any, error) {
			return rr.repo.FindFirst(ctx, where, args...)
		},
	)
}

// FindManyDeferred defers a multi-row lookup. The untyped result of awaiting
// is a []dbx.Row.
func (rr *RoutedRepository) FindManyDeferred(where string, args ...any) *DeferredQuery {
	return rr.newDeferred(
		func(ctx context.Context, tx dbx.Transaction) (any, error) {
			return rr.repo.WithExecutor(txExecutor{tx: tx}).FindMany(ctx, where, args...)
		},
		func(ctx context.Context) (any, error) {
			return rr.repo.FindMany(ctx, where, args...)
		},
	)
}

// InsertDeferred defers a single-row insert. The untyped result of awaiting is
// the affected row count as an int64.
func (rr *RoutedRepository) InsertDeferred(values dbx.Row) *DeferredQuery {
	return rr.newDeferred(
		func(ctx context.Context, tx dbx.Transaction) (any, error) {
			return rr.repo.WithExecutor(txExecutor{tx: tx}).Insert(ctx, values)
		},
		func(ctx context.Context) (any, error) {
			return rr.repo.Insert(ctx, values)
		},
	)
}

// DeleteDeferred defers a delete. The untyped result of awaiting is the
// affected row count as an int64.
func (rr *RoutedRepository) DeleteDeferred(where string, args ...any) *DeferredQuery {
	return rr.newDeferred(
		func(ctx context.Context, tx dbx.Transaction) (any, error) {
			return rr.repo.WithExecutor(txExecutor{tx: tx}).Delete(ctx, where, args...)
		},
		func(ctx context.Context) (any, error) {
			return rr.repo.Delete(ctx, where, args...)
		},
	)
}

// FindFirst satisfies dbx.Queryable by awaiting the deferred form immediately.
func (rr *RoutedRepository) FindFirst(ctx context.Context, where string, args ...any) (dbx.Row, error) {
	result, err := rr.FindFirstDeferred(where, args...).Await(ctx)
	if err != nil {
		return nil, err
	}

	if result == nil {
		return nil, nil
	}

	return result.(dbx.Row), nil
}

// FindMany awaits the deferred multi-row lookup immediately.
func (rr *RoutedRepository) FindMany(ctx context.Context, where string, args ...any) ([]dbx.Row, error) {
	result, err := rr.FindManyDeferred(where, args...).Await(ctx)
	if err != nil {
		return nil, err
	}

	return result.([]dbx.Row), nil
}

// Insert awaits the deferred insert immediately.
func (rr *RoutedRepository) Insert(ctx context.Context, values dbx.Row) (int64, error) {
	result, err := rr.InsertDeferred(values).Await(ctx)
	if err != nil {
		return 0, err
	}

	return result.(int64), nil
}

// Delete awaits the deferred delete immediately.
func (rr *RoutedRepository) Delete(ctx context.Context, where string, args ...any) (int64, error) {
	result, err := rr.DeleteDeferred(where, args...).Await(ctx)
	if err != nil {
		return 0, err
	}

	return result.(int64), nil
}

func (rr *RoutedRepository) newDeferred(op Operation, direct func(ctx context.Context) (any, error)) *DeferredQuery {
	return &DeferredQuery{sandbox: rr.sandbox, op: op, direct: direct}
}

// txExecutor adapts a transaction-scoped client to the Executor interface so
// repositories can be rebound onto the active nested scope.
type txExecutor struct {
	tx dbx.Transaction
}

var _ dbx.Executor = txExecutor{}

func (e txExecutor) Query(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	return e.tx.TxQuery(ctx, query, args...)
}

func (e txExecutor) Exec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	return e.tx.TxExec(ctx, execQuery, args...)
}
