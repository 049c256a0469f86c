package sandbox

import (
	"context"
	"fmt"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/logx"
)

// scopedTx is the transaction handle TxBegin returns while a session is open:
// an explicit nested scope backed by one savepoint. TxCommit releases the
// savepoint, TxRollback rolls back to it. Either call ends the scope; data
// calls after that fail.
//
// A top-level scopedTx holds the scope lock for its whole lifetime, so the
// queries issued through it never interleave with other operations on the
// shared connection. A scopedTx begun inside an already-open scope shares the
// enclosing operation's turn instead.
type scopedTx struct {
	sandbox  *Sandbox
	snapshot *session
	name     string
	locked   bool
	closed   bool
}

var _ dbx.Transaction = (*scopedTx)(nil)

// beginScopedTx opens the savepoint for an explicit nested scope.
func (s *Sandbox) beginScopedTx(ctx context.Context) (dbx.Transaction, error) {
	snapshot := s.currentSession()

	locked := false
	if _, nested := ScopeFromContext(ctx); !nested {
		if err := s.lock.Acquire(ctx); err != nil {
			return nil, err
		}
		locked = true
	}

	if snapshot == nil {
		if locked {
			s.lock.Release()
		}
		return nil, &NoActiveTransactionError{}
	}

	name, err := s.openSavepoint(ctx, snapshot)
	if err != nil {
		if locked {
			s.lock.Release()
		}
		return nil, err
	}

	return &scopedTx{sandbox: s, snapshot: snapshot, name: name, locked: locked}, nil
}

func (t *scopedTx) GetTx() any {
	return t.snapshot.tx.GetTx()
}

// TxCommit ends the scope keeping its changes visible to the outer
// transaction. The changes still disappear when the session is rolled back.
func (t *scopedTx) TxCommit(ctx context.Context) error {
	return t.end(ctx, true)
}

// TxRollback ends the scope discarding every change made through it.
func (t *scopedTx) TxRollback(ctx context.Context) {
	if err := t.end(ctx, false); err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("sandbox: rollback of nested scope %s failed", t.name), err)
	}
}

func (t *scopedTx) end(ctx context.Context, success bool) error {
	if t.closed {
		return nil
	}
	t.closed = true

	if t.locked {
		defer t.sandbox.lock.Release()
	}

	return t.sandbox.closeSavepoint(ctx, t.snapshot, t.name, success)
}

func (t *scopedTx) TxQuery(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	if err := t.ensureOpen(); err != nil {
		return nil, err
	}

	return t.snapshot.tx.TxQuery(ctx, query, args...)
}

func (t *scopedTx) TxExec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	if err := t.ensureOpen(); err != nil {
		return 0, err
	}

	return t.snapshot.tx.TxExec(ctx, execQuery, args...)
}

func (t *scopedTx) TxExecBatch(ctx context.Context, batch dbx.Batch) (int64, error) {
	if err := t.ensureOpen(); err != nil {
		return 0, err
	}

	return t.snapshot.tx.TxExecBatch(ctx, batch)
}

func (t *scopedTx) ensureOpen() error {
	if t.closed {
		return &NoActiveTransactionError{}
	}

	return t.sandbox.ensureSession(t.snapshot)
}
