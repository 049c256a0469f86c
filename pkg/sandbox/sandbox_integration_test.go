package sandbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/sandbox"
	"github.com/marcodd23/go-tx-sandbox/test/testcontainer/postgres"
)

/*
The Table under test is:

CREATE TABLE ACCOUNTS
(
    ID      BIGINT PRIMARY KEY,
    NAME    VARCHAR(200) NOT NULL,
    BALANCE BIGINT NOT NULL DEFAULT 0
);
*/

// setupTestContainer - setup testcontainer and DB connection manager
func setupTestContainer(ctx context.Context, t *testing.T) (db dbx.Database, stopContainer func()) {
	container := postgres.StartPostgresContainer(ctx, t, nil)
	db = postgres.SetupDatabaseConnection(ctx, container)

	waitForDBReady(ctx, t, db)

	return db, func() {
		container.StopContainer(ctx, t)
	}
}

// waitForDBReady waits for the database container to be ready.
func waitForDBReady(ctx context.Context, t *testing.T, db dbx.Database) {
	for retries := 0; retries < 20; retries++ {
		_, err := db.Exec(ctx, "SELECT 1")
		if err == nil {
			return
		}
		t.Log(err)
		t.Log("Waiting for database to be ready...")
		time.Sleep(2 * time.Second)
	}

	t.Fatal("Database is not ready after waiting")
}

func TestSandboxIsolation(t *testing.T) {
	ctx := context.Background()

	db, stopContainer := setupTestContainer(ctx, t)
	defer stopContainer()
	defer db.CloseDbConnPool()

	s := sandbox.NewSandbox(db)
	proxy := s.GetProxyClient()

	require.NoError(t, s.StartNewTransaction(ctx, dbx.TxTaskOptions{}))

	// Row A goes through a released savepoint: visible for the rest of the session.
	_, err := proxy.Exec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(1), "alice")
	require.NoError(t, err)

	// Rows B and C go through an explicit nested transaction that rolls back.
	tx, err := proxy.TxBegin(ctx)
	require.NoError(t, err)

	_, err = tx.TxExec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(2), "bob")
	require.NoError(t, err)
	_, err = tx.TxExec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(3), "carol")
	require.NoError(t, err)

	tx.TxRollback(ctx)

	// Only row A is visible inside the session.
	resultSet, err := proxy.Query(ctx, "SELECT id, name FROM accounts ORDER BY id")
	require.NoError(t, err)
	require.Len(t, resultSet.GetRows(), 1)
	require.Equal(t, "alice", resultSet.GetRows()[0][1])

	// A failed statement is contained to its own savepoint and does not
	// poison the session.
	_, err = proxy.Exec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(1), "duplicate")
	require.Error(t, err)

	resultSet, err = proxy.Query(ctx, "SELECT id FROM accounts")
	require.NoError(t, err)
	require.Len(t, resultSet.GetRows(), 1)

	require.NoError(t, s.RollbackCurrentTransaction(ctx))

	// Nothing made through the sandbox survives the session.
	resultSet, err = db.Query(ctx, "SELECT id FROM accounts")
	require.NoError(t, err)
	require.Empty(t, resultSet.GetRows())
}

func TestSandboxSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()

	db, stopContainer := setupTestContainer(ctx, t)
	defer stopContainer()
	defer db.CloseDbConnPool()

	s := sandbox.NewSandbox(db)
	proxy := s.GetProxyClient()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.StartNewTransaction(ctx, dbx.TxTaskOptions{}))

		// Every session starts from a clean table, whatever the previous one did.
		resultSet, err := proxy.Query(ctx, "SELECT id FROM accounts")
		require.NoError(t, err)
		require.Empty(t, resultSet.GetRows())

		_, err = proxy.Exec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(1), "alice")
		require.NoError(t, err)

		require.NoError(t, s.RollbackCurrentTransaction(ctx))
	}
}

func TestSandboxTransactionCallbackAtomicity(t *testing.T) {
	ctx := context.Background()

	db, stopContainer := setupTestContainer(ctx, t)
	defer stopContainer()
	defer db.CloseDbConnPool()

	s := sandbox.NewSandbox(db)
	proxy := s.GetProxyClient()

	require.NoError(t, s.StartNewTransaction(ctx, dbx.TxTaskOptions{}))

	// Both inserts share one savepoint; the duplicate key aborts them together.
	_, err := s.Transaction(ctx, func(ctx context.Context, tx dbx.Transaction) error {
		if _, err := tx.TxExec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(1), "alice"); err != nil {
			return err
		}

		_, err := tx.TxExec(ctx, "INSERT INTO accounts (id, name) VALUES ($1, $2)", int64(1), "duplicate")

		return err
	})
	require.Error(t, err)

	resultSet, err := proxy.Query(ctx, "SELECT id FROM accounts")
	require.NoError(t, err)
	require.Empty(t, resultSet.GetRows())

	require.NoError(t, s.RollbackCurrentTransaction(ctx))
}

func TestSandboxRoutedRepository(t *testing.T) {
	ctx := context.Background()

	db, stopContainer := setupTestContainer(ctx, t)
	defer stopContainer()
	defer db.CloseDbConnPool()

	type account struct {
		Id   int64  `db:"id"`
		Name string `db:"name"`
	}

	s := sandbox.NewSandbox(db)
	proxy := s.GetProxyClient()

	repo, err := dbx.NewRepository(proxy, "accounts", account{})
	require.NoError(t, err)
	accounts := proxy.(*sandbox.RoutedDatabase).Repository(repo)

	require.NoError(t, s.StartNewTransaction(ctx, dbx.TxTaskOptions{}))

	results, err := s.Transaction(ctx, []*sandbox.DeferredQuery{
		accounts.InsertDeferred(dbx.Row{int64(1), "alice"}),
		accounts.FindFirstDeferred("id = $1", int64(1)),
	})
	require.NoError(t, err)

	positional := results.([]any)
	require.Len(t, positional, 2)
	require.Equal(t, int64(1), positional[0])

	row := positional[1].(dbx.Row)
	require.Equal(t, "alice", row[1])

	require.NoError(t, s.RollbackCurrentTransaction(ctx))
}
