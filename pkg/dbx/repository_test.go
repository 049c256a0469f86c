package dbx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
)

type account struct {
	Id   int64  `db:"id"`
	Name string `db:"name"`
}

// stubExecutor records the SQL it receives and replays canned rows.
type stubExecutor struct {
	queries []string
	args    [][]any
	rows    []dbx.Row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)

	return &dbx.DefaultResultSet{Rows: s.rows}, nil
}

func (s *stubExecutor) Exec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	s.queries = append(s.queries, execQuery)
	s.args = append(s.args, args)

	return 1, nil
}

func newAccountsRepo(t *testing.T, exec dbx.Executor) *dbx.Repository {
	t.Helper()

	repo, err := dbx.NewRepository(exec, "accounts", account{})
	require.NoError(t, err)

	return repo
}

func TestNewRepositoryDerivesColumns(t *testing.T) {
	repo := newAccountsRepo(t, &stubExecutor{})

	assert.Equal(t, "accounts", repo.Table())
	assert.Equal(t, []string{"id", "name"}, repo.Columns())
}

func TestNewRepositoryRejectsUntaggedStruct(t *testing.T) {
	type bare struct {
		Id int64
	}

	_, err := dbx.NewRepository(&stubExecutor{}, "bare", bare{})
	require.Error(t, err)
}

func TestRepositoryFindFirst(t *testing.T) {
	exec := &stubExecutor{rows: []dbx.Row{{int64(1), "alice"}, {int64(2), "bob"}}}
	repo := newAccountsRepo(t, exec)

	row, err := repo.FindFirst(context.Background(), "name = $1", "alice")
	require.NoError(t, err)
	assert.Equal(t, dbx.Row{int64(1), "alice"}, row)

	require.Len(t, exec.queries, 1)
	assert.Equal(t, "SELECT id, name FROM accounts WHERE name = $1 LIMIT 1", exec.queries[0])
	assert.Equal(t, []any{"alice"}, exec.args[0])
}

func TestRepositoryFindFirstNoMatch(t *testing.T) {
	repo := newAccountsRepo(t, &stubExecutor{})

	row, err := repo.FindFirst(context.Background(), "id = $1", int64(404))
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestRepositoryFindMany(t *testing.T) {
	exec := &stubExecutor{rows: []dbx.Row{{int64(1), "alice"}, {int64(2), "bob"}}}
	repo := newAccountsRepo(t, exec)

	rows, err := repo.FindMany(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.Len(t, exec.queries, 1)
	assert.Equal(t, "SELECT id, name FROM accounts", exec.queries[0])
}

func TestRepositoryInsert(t *testing.T) {
	exec := &stubExecutor{}
	repo := newAccountsRepo(t, exec)

	affected, err := repo.Insert(context.Background(), dbx.Row{int64(1), "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.Len(t, exec.queries, 1)
	assert.Equal(t, "INSERT INTO accounts (id, name) VALUES ($1, $2)", exec.queries[0])
}

func TestRepositoryInsertArityMismatch(t *testing.T) {
	repo := newAccountsRepo(t, &stubExecutor{})

	_, err := repo.Insert(context.Background(), dbx.Row{int64(1)})
	require.Error(t, err)
}

func TestRepositoryDelete(t *testing.T) {
	exec := &stubExecutor{}
	repo := newAccountsRepo(t, exec)

	_, err := repo.Delete(context.Background(), "id = $1", int64(1))
	require.NoError(t, err)

	require.Len(t, exec.queries, 1)
	assert.Equal(t, "DELETE FROM accounts WHERE id = $1", exec.queries[0])
}

func TestRepositoryWithExecutorRebinds(t *testing.T) {
	first := &stubExecutor{}
	second := &stubExecutor{}

	repo := newAccountsRepo(t, first)
	rebound := repo.WithExecutor(second)

	_, err := rebound.Delete(context.Background(), "")
	require.NoError(t, err)

	assert.Empty(t, first.queries)
	assert.Len(t, second.queries, 1)
}

func TestInsertEntity(t *testing.T) {
	exec := &stubExecutor{}
	repo := newAccountsRepo(t, exec)

	affected, err := dbx.InsertEntity(context.Background(), repo, account{Id: 1, Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	require.Len(t, exec.args, 1)
	assert.Equal(t, []any{int64(1), "alice"}, exec.args[0])
}
