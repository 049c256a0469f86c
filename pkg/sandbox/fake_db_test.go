package sandbox

import (
	"context"
	"sync"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/dbx/pgxdb"
)

// fakeDB is an in-memory dbx.Database that records every command it receives,
// in order, so tests can assert on the exact savepoint SQL the sandbox issues.
type fakeDB struct {
	mu  sync.Mutex
	log []string

	// execErr fails TxExec and Exec for the given query text.
	execErr map[string]error
	// beginErr fails ExecTransactionalTask before the task runs.
	beginErr error
	// queryRows is returned by every query.
	queryRows []dbx.Row
}

func newFakeDB() *fakeDB {
	return &fakeDB{execErr: map[string]error{}}
}

func (f *fakeDB) record(cmd string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.log = append(f.log, cmd)
}

func (f *fakeDB) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.log))
	copy(out, f.log)

	return out
}

// resultSet materializes queryRows like the real client: one RowScan per Row.
func (f *fakeDB) resultSet() *dbx.DefaultResultSet {
	f.mu.Lock()
	defer f.mu.Unlock()

	rs := &dbx.DefaultResultSet{Rows: f.queryRows}
	for _, row := range f.queryRows {
		rs.RowsScan = append(rs.RowsScan, &pgxdb.PgRowScan{Values: row})
	}

	return rs
}

func (f *fakeDB) errFor(query string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.execErr[query]
}

func (f *fakeDB) GetDbConnPool() (any, error) {
	return f, nil
}

func (f *fakeDB) CloseDbConnPool() {}

func (f *fakeDB) GetConnectionConfig() dbx.ConnConfig {
	return dbx.ConnConfig{DBName: "fake"}
}

func (f *fakeDB) Query(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	f.record("query: " + query)

	return f.resultSet(), nil
}

func (f *fakeDB) Exec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	if err := f.errFor(execQuery); err != nil {
		return 0, err
	}

	f.record("exec: " + execQuery)

	return 1, nil
}

func (f *fakeDB) QueryAndProcess(ctx context.Context, processCallback func(row dbx.Row, rowScan dbx.RowScan) error, query string, args ...any) error {
	f.record("query: " + query)

	for _, row := range f.queryRows {
		if err := processCallback(row, nil); err != nil {
			return err
		}
	}

	return nil
}

func (f *fakeDB) TxBegin(ctx context.Context) (dbx.Transaction, error) {
	f.record("begin")

	return &fakeTx{db: f}, nil
}

func (f *fakeDB) ExecTransactionalTask(ctx context.Context, opts dbx.TxTaskOptions, task dbx.TxTask) error {
	if f.beginErr != nil {
		return f.beginErr
	}

	f.record("begin")

	if err := task(ctx, &fakeTx{db: f}); err != nil {
		f.record("rollback")
		return err
	}

	f.record("commit")

	return nil
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) GetTx() any {
	return t
}

func (t *fakeTx) TxCommit(ctx context.Context) error {
	t.db.record("commit")
	return nil
}

func (t *fakeTx) TxRollback(ctx context.Context) {
	t.db.record("rollback")
}

func (t *fakeTx) TxQuery(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	t.db.record("tx-query: " + query)

	return t.db.resultSet(), nil
}

func (t *fakeTx) TxExec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	if err := t.db.errFor(execQuery); err != nil {
		return 0, err
	}

	t.db.record("tx-exec: " + execQuery)

	return 1, nil
}

func (t *fakeTx) TxExecBatch(ctx context.Context, batch dbx.Batch) (int64, error) {
	t.db.record("tx-batch")

	return int64(batch.Len()), nil
}
