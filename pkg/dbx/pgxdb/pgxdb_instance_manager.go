package pgxdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/errorx"
	"github.com/marcodd23/go-tx-sandbox/pkg/logx"
)

//###################################
//#    PostgresDB - dbx manager.    #
//###################################

// PostgresDB - dbx manager.
// It Implements dbx.Database.
type PostgresDB struct {
	pool   *pgxpool.Pool
	dbConf dbx.ConnConfig
}

// SetupPostgresDbManager - setup Postgres DB connection.
func SetupPostgresDbManager(ctx context.Context, dbConf dbx.ConnConfig, preparedStatements ...dbx.PreparedStatement) dbx.Database {
	pool, err := newConnectionPool(ctx, dbConf, preparedStatements...)
	if err != nil {
		logx.GetLogger().LogFatal(ctx, "connection Pool Error", err)
	}

	logx.
		GetLogger().
		LogInfo(ctx, fmt.Sprintf("Created new Database Connection Pool: DB=%s, HOST=%s, PORT=%d",
			pool.Config().ConnConfig.Database,
			pool.Config().ConnConfig.Host,
			pool.Config().ConnConfig.Port))

	return &PostgresDB{
		pool:   pool,
		dbConf: dbConf,
	}
}

func newConnectionPool(ctx context.Context, dbConf dbx.ConnConfig, preparedStatements ...dbx.PreparedStatement) (*pgxpool.Pool, error) {
	poolConfig, err := createConnectionConfiguration(dbConf)
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}

	// Setup prepared statements
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return setupPreparedStatements(ctx, conn, preparedStatements...)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "Error creating New Connection Pool")
	}

	return pool, nil
}

func createConnectionConfiguration(dbConf dbx.ConnConfig) (*pgxpool.Config, error) {
	poolConfig, _ := pgxpool.ParseConfig("")

	if dbConf.DBName == "" {
		return nil, errorx.NewDatabaseError("Error creating Connection Pool ConnConfig: DB_Name is EMPTY")
	}

	if dbConf.User == "" {
		return nil, errorx.NewDatabaseError("Error creating Connection Pool ConnConfig: DB_User is EMPTY")
	}

	if dbConf.Password == "" {
		return nil, errorx.NewDatabaseError("Error creating Connection Pool ConnConfig: DB_Password is EMPTY")
	}

	poolConfig.ConnConfig.Database = dbConf.DBName
	poolConfig.ConnConfig.User = dbConf.User
	poolConfig.ConnConfig.Password = dbConf.Password
	poolConfig.ConnConfig.Host = dbConf.Host
	poolConfig.ConnConfig.Port = uint16(dbConf.Port)

	if dbConf.MaxConn > 0 {
		poolConfig.MaxConns = dbConf.MaxConn
	}

	return poolConfig, nil
}

func setupPreparedStatements(ctx context.Context, conn *pgx.Conn, preparedStatements ...dbx.PreparedStatement) error {
	for _, stmt := range preparedStatements {
		_, err := conn.Prepare(ctx, stmt.GetName(), stmt.GetQuery())
		if err != nil {
			return errorx.NewDatabaseErrorWrapper(err, "Failed to prepare statement '%s'", stmt.GetName())
		}
	}

	return nil
}

func acquireConnectionFromPool(ctx context.Context, db *PostgresDB) (*pgxpool.Conn, error) {
	if db.pool == nil {
		logx.GetLogger().LogPanic(ctx, "error, Connection Pool To DB not initialized", nil)
	}

	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		logx.GetLogger().LogError(ctx, "Error acquiring connection from pool", err)
		return nil, errors.Wrap(err, "Error acquiring connection from pool")
	}

	return conn, nil
}

// GetDbConnPool - get the connection pool.
func (dbm *PostgresDB) GetDbConnPool() (any, error) {
	if dbm.pool == nil {
		return nil, errorx.NewDatabaseError("error, Connection Pool To DB not initialized")
	}

	return dbm.pool, nil
}

// CloseDbConnPool - close dbx connection pool.
func (dbm *PostgresDB) CloseDbConnPool() {
	if dbm.pool != nil {
		dbm.pool.Close()
		logx.GetLogger().LogInfo(context.TODO(), "DB Connection Pool Successfully Closed!")
	}
}

// GetConnectionConfig - get Db Connection config.
func (dbm *PostgresDB) GetConnectionConfig() dbx.ConnConfig {
	return dbm.dbConf
}

// Query executes a query, copies the results and returns a ResultSet, with automatic resource management.
func (dbm *PostgresDB) Query(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	conn, err := acquireConnectionFromPool(ctx, dbm)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", query), err)
		return nil, errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", query)
	}
	defer rows.Close()

	return readRowsIntoResultSet(rows)
}

// QueryAndProcess executes a query and applies the processCallback function to each row instead of
// returning the entire result set in memory. This method is designed for processing large result
// sets efficiently by handling each row sequentially, which helps in reducing memory usage.
func (dbm *PostgresDB) QueryAndProcess(ctx context.Context, processCallback func(row dbx.Row, rowScan dbx.RowScan) error, query string, args ...any) error {
	conn, err := acquireConnectionFromPool(ctx, dbm)
	if err != nil {
		return err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("Error executing query '%s'", query), err)
		return errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", query)
	}
	defer rows.Close()

	for rows.Next() {
		rowElements, err := rows.Values()
		if err != nil {
			return errorx.NewDatabaseErrorWrapper(err, "Error reading row Values")
		}

		if err := processCallback(rowElements, &PgRowScan{Values: rowElements}); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return errorx.NewDatabaseErrorWrapper(err, "Error iterating rows")
	}

	return nil
}

// Exec - Executes a command query and returns the number of rows affected.
func (dbm *PostgresDB) Exec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	conn, err := acquireConnectionFromPool(ctx, dbm)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	result, err := conn.Exec(ctx, execQuery, args...)
	if err != nil {
		return 0, errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", execQuery)
	}

	return result.RowsAffected(), nil
}

// TxBegin starts a new database transaction and returns a Transaction interface that can be used
// to commit or roll back the transaction.
//
// It acquires a connection from the connection pool, begins a transaction on that connection, and
// returns a `PostgresTx` struct that implements the `dbx.Transaction` interface.
func (dbm *PostgresDB) TxBegin(ctx context.Context) (dbx.Transaction, error) {
	conn, err := acquireConnectionFromPool(ctx, dbm)
	if err != nil {
		return nil, err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return nil, errorx.NewDatabaseErrorWrapper(err, "error starting transaction")
	}

	// Generate a random Transaction ID
	txId := dbx.GenerateRandomInt64Id()

	return &PostgresTx{tx: tx, conn: conn, txId: txId}, nil
}

// ExecTransactionalTask runs the task inside a transaction: the transaction is committed if the
// task returns nil and rolled back if it returns an error.
//
// Options:
//   - opts.MaxWait bounds the wait for a connection from the pool.
//   - opts.Timeout bounds the execution of the task itself.
func (dbm *PostgresDB) ExecTransactionalTask(ctx context.Context, opts dbx.TxTaskOptions, task dbx.TxTask) error {
	acquireCtx := ctx

	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}

	conn, err := acquireConnectionFromPool(acquireCtx, dbm)
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		conn.Release()
		return errorx.NewDatabaseErrorWrapper(err, "error starting transaction")
	}

	pgxTx := &PostgresTx{tx: tx, conn: conn, txId: dbx.GenerateRandomInt64Id()}

	taskCtx := ctx

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := task(taskCtx, pgxTx); err != nil {
		pgxTx.TxRollback(ctx)
		return err
	}

	return pgxTx.TxCommit(ctx)
}
