package sandbox

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
)

type account struct {
	Id   int64  `db:"id"`
	Name string `db:"name"`
}

func routedAccounts(t *testing.T, s *Sandbox) *RoutedRepository {
	t.Helper()

	repo, err := dbx.NewRepository(s.GetProxyClient(), "accounts", account{})
	require.NoError(t, err)

	return s.GetProxyClient().(*RoutedDatabase).Repository(repo)
}

func TestDeferredInsertRunsInOwnSavepoint(t *testing.T) {
	s, db := startSandbox(t)
	ctx := context.Background()

	accounts := routedAccounts(t, s)

	result, err := accounts.InsertDeferred(dbx.Row{int64(1), "alice"}).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result)

	assert.Equal(t, []string{
		"begin",
		"tx-exec: SAVEPOINT tx_sandbox_sp_1",
		"tx-exec: INSERT INTO accounts (id, name) VALUES ($1, $2)",
		"tx-exec: RELEASE SAVEPOINT tx_sandbox_sp_1",
	}, db.commands())

	require.NoError(t, s.RollbackCurrentTransaction(ctx))
}

func TestDeferredQueriesShareOneSavepointInTransaction(t *testing.T) {
	s, db := startSandbox(t)
	ctx := context.Background()

	db.queryRows = []dbx.Row{{int64(1), "alice"}}
	accounts := routedAccounts(t, s)

	results, err := s.Transaction(ctx, []*DeferredQuery{
		accounts.InsertDeferred(dbx.Row{int64(1), "alice"}),
		accounts.FindFirstDeferred("id = $1", int64(1)),
	})
	require.NoError(t, err)

	positional := results.([]any)
	require.Len(t, positional, 2)
	assert.Equal(t, int64(1), positional[0])
	assert.Equal(t, dbx.Row{int64(1), "alice"}, positional[1])

	savepoints := 0
	for _, cmd := range db.commands() {
		if cmd == "tx-exec: SAVEPOINT tx_sandbox_sp_1" || cmd == "tx-exec: SAVEPOINT tx_sandbox_sp_2" {
			savepoints++
		}
	}
	assert.Equal(t, 1, savepoints)

	require.NoError(t, s.RollbackCurrentTransaction(ctx))
}

func TestDeferredQueryWithoutSessionGoesDirect(t *testing.T) {
	db := newFakeDB()
	s := NewSandbox(db)

	accounts := routedAccounts(t, s)

	_, err := accounts.InsertDeferred(dbx.Row{int64(1), "alice"}).Await(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"exec: INSERT INTO accounts (id, name) VALUES ($1, $2)"}, db.commands())
}

func TestDeferredQueryCallbacks(t *testing.T) {
	s, db := startSandbox(t)
	ctx := context.Background()

	opErr := errors.New("boom")
	db.execErr["INSERT INTO accounts (id, name) VALUES ($1, $2)"] = opErr

	accounts := routedAccounts(t, s)

	var gotErr error
	finished := false

	_, err := accounts.InsertDeferred(dbx.Row{int64(1), "alice"}).
		OnError(func(err error) { gotErr = err }).
		Finally(func() { finished = true }).
		Await(ctx)

	require.ErrorIs(t, err, opErr)
	assert.ErrorIs(t, gotErr, opErr)
	assert.True(t, finished)

	require.NoError(t, s.RollbackCurrentTransaction(ctx))
}

func TestRoutedRepositoryImmediateOperations(t *testing.T) {
	s, db := startSandbox(t)
	ctx := context.Background()

	db.queryRows = []dbx.Row{{int64(1), "alice"}, {int64(2), "bob"}}
	accounts := routedAccounts(t, s)

	rows, err := accounts.FindMany(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	affected, err := accounts.Delete(ctx, "id = $1", int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	assert.Contains(t, db.commands(), "tx-exec: DELETE FROM accounts WHERE id = $1")

	require.NoError(t, s.RollbackCurrentTransaction(ctx))
}

func TestRoutedRepositoryIsQueryable(t *testing.T) {
	s, _ := startSandbox(t)

	var q dbx.Queryable = routedAccounts(t, s)
	assert.NotNil(t, q)

	require.NoError(t, s.RollbackCurrentTransaction(context.Background()))
}
