package sandbox

import (
	"context"
	"fmt"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/logx"
)

// Operation is a unit of work executed inside one savepoint. The transaction
// it receives is the active nested-scope client, guarded against session
// changes.
type Operation func(ctx context.Context, tx dbx.Transaction) (any, error)

// wrapInSavepoint runs op inside its own savepoint on the current session.
//
// The session is snapshotted at call time: every savepoint command issued for
// this operation targets the snapshot, never a later session. Top-level
// operations take the scope lock first, so concurrently issued operations are
// applied strictly in acquisition order and their savepoint commands never
// interleave on the shared connection. Operations whose call chain is already
// inside a savepoint skip the lock and run inline.
//
// On success the savepoint is released; on failure it is rolled back to and
// the original error is re-raised unchanged. Every control path ends in
// exactly one of those two outcomes.
func (s *Sandbox) wrapInSavepoint(ctx context.Context, op Operation) (any, error) {
	snapshot := s.currentSession()

	if _, nested := ScopeFromContext(ctx); !nested {
		if err := s.lock.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.lock.Release()
	}

	if snapshot == nil {
		return nil, &NoActiveTransactionError{}
	}

	name, err := s.openSavepoint(ctx, snapshot)
	if err != nil {
		return nil, err
	}

	result, opErr := op(withScope(ctx, name), &guardedTx{sandbox: s, snapshot: snapshot})

	if err := s.closeSavepoint(ctx, snapshot, name, opErr == nil); err != nil {
		return nil, err
	}

	if opErr != nil {
		return nil, opErr
	}

	return result, nil
}

// openSavepoint creates the next uniquely named savepoint on the snapshot
// session, applying the batch-release policy first. Caller must either hold
// the scope lock or be running inside an already-open scope.
func (s *Sandbox) openSavepoint(ctx context.Context, snapshot *session) (string, error) {
	s.mu.Lock()

	var oldest string
	if len(s.pending) >= maxLiveSavepoints {
		// Releasing the oldest savepoint also releases every savepoint opened
		// after it, so a single command clears the whole batch.
		oldest = s.pending[0]
		s.pending = nil
	}

	s.seq++
	name := fmt.Sprintf("%s%d", savepointNamePrefix, s.seq)
	s.mu.Unlock()

	if oldest != "" {
		if err := s.ensureSession(snapshot); err != nil {
			return "", err
		}

		if _, err := snapshot.tx.TxExec(ctx, "RELEASE SAVEPOINT "+oldest); err != nil {
			return "", err
		}

		logx.GetLogger().LogDebug(ctx, fmt.Sprintf("sandbox session %s: released savepoint batch up to %s", snapshot.id, oldest))
	}

	if err := s.ensureSession(snapshot); err != nil {
		return "", err
	}

	if _, err := snapshot.tx.TxExec(ctx, "SAVEPOINT "+name); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.pending = append(s.pending, name)
	s.mu.Unlock()

	return name, nil
}

// closeSavepoint ends the named savepoint on the snapshot session: released
// when the wrapped operation succeeded, rolled back to otherwise. A rolled
// back savepoint stays live on the connection until a batch release clears it.
func (s *Sandbox) closeSavepoint(ctx context.Context, snapshot *session, name string, success bool) error {
	if err := s.ensureSession(snapshot); err != nil {
		return err
	}

	if !success {
		_, err := snapshot.tx.TxExec(ctx, "ROLLBACK TO SAVEPOINT "+name)
		return err
	}

	if _, err := snapshot.tx.TxExec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return err
	}

	s.mu.Lock()
	for i, pending := range s.pending {
		if pending == name {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	return nil
}

// Transaction is the sandbox replacement for the client's transaction entry
// point. The whole call runs inside one savepoint. Two argument shapes are
// accepted:
//
//   - []*DeferredQuery: every query is awaited in order against the same
//     nested scope and its result collected positionally into a []any.
//   - a callback func(ctx, tx) error or func(ctx, tx) (any, error): invoked
//     with the active nested-scope client.
//
// Any other shape fails with InvalidTransactionArgumentError.
func (s *Sandbox) Transaction(ctx context.Context, arg any) (any, error) {
	switch v := arg.(type) {
	case []*DeferredQuery:
		return s.wrapInSavepoint(ctx, func(ctx context.Context, _ dbx.Transaction) (any, error) {
			results := make([]any, len(v))

			for i, deferred := range v {
				result, err := deferred.Await(ctx)
				if err != nil {
					return nil, err
				}

				results[i] = result
			}

			return results, nil
		})
	case dbx.TxTask:
		return s.Transaction(ctx, (func(ctx context.Context, tx dbx.Transaction) error)(v))
	case func(ctx context.Context, tx dbx.Transaction) error:
		return s.wrapInSavepoint(ctx, func(ctx context.Context, tx dbx.Transaction) (any, error) {
			return nil, v(ctx, tx)
		})
	case func(ctx context.Context, tx dbx.Transaction) (any, error):
		return s.wrapInSavepoint(ctx, Operation(v))
	default:
		return nil, NewInvalidTransactionArgumentError(arg)
	}
}

// guardedTx presents the outer transaction as a dbx.Transaction scoped to one
// session. Every data call re-checks that the session is still the one the
// operation snapshotted. Commit and rollback are deliberate no-ops: the
// enclosing savepoint decides the outcome of the scope.
type guardedTx struct {
	sandbox  *Sandbox
	snapshot *session
}

var _ dbx.Transaction = (*guardedTx)(nil)

func (g *guardedTx) GetTx() any {
	return g.snapshot.tx.GetTx()
}

func (g *guardedTx) TxCommit(ctx context.Context) error {
	return nil
}

func (g *guardedTx) TxRollback(ctx context.Context) {}

func (g *guardedTx) TxQuery(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	if err := g.sandbox.ensureSession(g.snapshot); err != nil {
		return nil, err
	}

	return g.snapshot.tx.TxQuery(ctx, query, args...)
}

func (g *guardedTx) TxExec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	if err := g.sandbox.ensureSession(g.snapshot); err != nil {
		return 0, err
	}

	return g.snapshot.tx.TxExec(ctx, execQuery, args...)
}

func (g *guardedTx) TxExecBatch(ctx context.Context, batch dbx.Batch) (int64, error) {
	if err := g.sandbox.ensureSession(g.snapshot); err != nil {
		return 0, err
	}

	return g.snapshot.tx.TxExecBatch(ctx, batch)
}
