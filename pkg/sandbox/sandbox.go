package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/errorx"
	"github.com/marcodd23/go-tx-sandbox/pkg/logx"
)

const (
	// savepointNamePrefix plus a per-session ordinal forms each savepoint name.
	savepointNamePrefix = "tx_sandbox_sp_"

	// maxLiveSavepoints bounds how many savepoints the database engine has to
	// track at once. PostgreSQL caches 64 subtransaction XIDs per backend, so
	// the oldest batch is released before the cap is reached.
	maxLiveSavepoints = 56
)

// errEndOfSandbox is the sentinel raised inside the holding task so the
// underlying client rolls the outer transaction back instead of committing it.
// It is swallowed where the holding task returns and nowhere else.
var errEndOfSandbox = errors.New("sandbox: outer transaction rollback requested")

// session - one lifetime of the outer transaction, from StartNewTransaction
// to RollbackCurrentTransaction.
type session struct {
	id string
	// tx is the transaction-scoped client published by the holding task. It is
	// written once, before ready is closed, and only read afterwards.
	tx dbx.Transaction
	// ready is closed once tx is recorded and the outer transaction is usable.
	ready chan struct{}
	// endSignal is closed by RollbackCurrentTransaction to let the holding
	// task complete.
	endSignal chan struct{}
	// done carries the holding task result after the outer transaction ended.
	done chan error
}

// Sandbox keeps one outer database transaction open across a whole test run
// and gives every operation issued through its proxy client a nested rollback
// scope (a savepoint) inside it. Nothing issued through the sandbox is ever
// committed: RollbackCurrentTransaction always ends the outer transaction
// with a rollback, restoring the database to its pre-session state.
type Sandbox struct {
	db dbx.Database

	// mu guards curr, seq and pending. It orders state reads and writes; the
	// serialization of savepoint SQL on the shared connection is the lock's job.
	mu      sync.Mutex
	curr    *session
	seq     int64
	pending []string

	lock   *scopeLock
	routed *RoutedDatabase
}

// NewSandbox binds a sandbox to one client instance.
func NewSandbox(db dbx.Database) *Sandbox {
	s := &Sandbox{
		db:   db,
		lock: newScopeLock(),
	}
	s.routed = &RoutedDatabase{sandbox: s}

	return s
}

// GetProxyClient returns the stable routed handle. Callers fetch it once and
// use it exactly as they would use the real client.
func (s *Sandbox) GetProxyClient() dbx.Database {
	return s.routed
}

// StartNewTransaction opens the outer transaction and holds it open until
// RollbackCurrentTransaction is called. It returns once the transaction has
// actually begun and the scoped client is ready for use.
//
// The underlying client only exposes transactions as a callback that commits
// on return, so the transaction is held open by a task that records the
// scoped client, signals readiness and then suspends on the end signal. Once
// signaled it raises the rollback sentinel, forcing the client to roll the
// whole outer transaction back.
//
// opts is passed through unchanged to the underlying client's transaction
// call: MaxWait bounds connection acquisition, Timeout bounds how long the
// outer transaction may stay open.
func (s *Sandbox) StartNewTransaction(ctx context.Context, opts dbx.TxTaskOptions) error {
	s.mu.Lock()

	if s.curr != nil {
		s.mu.Unlock()
		return &AlreadyActiveError{}
	}

	sess := &session{
		id:        uuid.NewString(),
		ready:     make(chan struct{}),
		endSignal: make(chan struct{}),
		done:      make(chan error, 1),
	}

	s.curr = sess
	s.seq = 0
	s.pending = nil
	s.mu.Unlock()

	// The holding task outlives this call; the outer transaction ends only
	// when RollbackCurrentTransaction fires the end signal.
	holdCtx := context.WithoutCancel(ctx)

	go func() {
		err := s.db.ExecTransactionalTask(holdCtx, opts, func(taskCtx context.Context, tx dbx.Transaction) error {
			sess.tx = tx
			close(sess.ready)

			select {
			case <-sess.endSignal:
				return errEndOfSandbox
			case <-taskCtx.Done():
				return taskCtx.Err()
			}
		})

		if errors.Is(err, errEndOfSandbox) {
			err = nil
		}

		sess.done <- err
	}()

	select {
	case <-sess.ready:
		logx.GetLogger().LogDebug(ctx, fmt.Sprintf("sandbox session %s: outer transaction open", sess.id))
		return nil
	case err := <-sess.done:
		// The outer transaction never opened; clear the half-started session.
		s.mu.Lock()
		if s.curr == sess {
			s.curr = nil
		}
		s.mu.Unlock()

		if err == nil {
			err = errorx.NewDatabaseError("sandbox outer transaction ended before it became ready")
		}

		return err
	}
}

// RollbackCurrentTransaction ends the current session. The outer transaction
// is always rolled back, never committed, discarding every change made
// through the sandbox since StartNewTransaction.
func (s *Sandbox) RollbackCurrentTransaction(ctx context.Context) error {
	s.mu.Lock()

	sess := s.curr
	if sess == nil {
		s.mu.Unlock()
		return &NoActiveTransactionError{}
	}

	s.curr = nil
	s.pending = nil
	s.mu.Unlock()

	close(sess.endSignal)
	err := <-sess.done

	logx.GetLogger().LogDebug(ctx, fmt.Sprintf("sandbox session %s: outer transaction rolled back", sess.id))

	return err
}

// currentSession returns the open session, or nil.
func (s *Sandbox) currentSession() *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.curr
}

// ensureSession fails when the open session is no longer the snapshot an
// in-flight operation was issued against. Savepoint SQL must never run
// against a session other than the one it was opened on.
func (s *Sandbox) ensureSession(snapshot *session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.curr == snapshot {
		return nil
	}

	actual := "none"
	if s.curr != nil {
		actual = s.curr.id
	}

	return NewTransactionChangedError(snapshot.id, actual)
}
