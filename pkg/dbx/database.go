package dbx

import (
	"context"
	"time"
)

// =====================================
// Executor Interface
// =====================================

// Executor defines the two data-bearing operations shared by a Database and a
// transaction-scoped adapter. Code that only needs to read or write rows
// should accept an Executor, so it can run unchanged against the plain
// database, a transaction, or a sandboxed scope.
type Executor interface {
	// Query executes a query, copies the results and closes the underlying rows.
	Query(ctx context.Context, query string, args ...any) (ResultSet, error)
	// Exec executes a command query and returns the number of rows affected.
	Exec(ctx context.Context, execQuery string, args ...any) (int64, error)
}

// =====================================
// Database Interface
// =====================================

// TxTask is the body of an interactive transaction. It receives a
// transaction-scoped client; the transaction commits if the task returns nil
// and rolls back if it returns an error.
type TxTask func(ctx context.Context, tx Transaction) error

// TxTaskOptions - options for ExecTransactionalTask.
// Timeout bounds the execution of the task itself, MaxWait bounds the wait for
// a connection from the pool. Zero values mean no bound.
type TxTaskOptions struct {
	Timeout time.Duration
	MaxWait time.Duration
}

// Database defines a contract for managing database connections and executing queries within a database instance.
//
// This interface abstracts the operations related to managing a database connection pool, initiating transactions,
// and executing SQL queries. It provides an API for interacting with a database instance, regardless of the
// specific database implementation being used.
//
// Responsibilities of Database include:
//   - Managing the lifecycle of the database connection pool, including acquiring and releasing connections.
//   - Initiating transactions, either as an explicit Transaction handle (TxBegin) or as an interactive
//     callback-style task (ExecTransactionalTask) that commits on success and rolls back on error.
//   - Executing SQL queries and commands directly, outside of a transaction context.
//   - Providing access to the connection configuration.
//
// The methods within this interface are designed to be flexible and allow for different database drivers or
// implementations to be used under a common API, making it easier to switch or extend database functionality
// without altering application logic.
type Database interface {
	Executor
	GetDbConnPool() (any, error)
	CloseDbConnPool()
	GetConnectionConfig() ConnConfig
	// QueryAndProcess applies processCallback to each row instead of materializing the whole result set.
	QueryAndProcess(ctx context.Context, processCallback func(row Row, rowScan RowScan) error, query string, args ...any) error
	TxBegin(ctx context.Context) (Transaction, error)
	ExecTransactionalTask(ctx context.Context, opts TxTaskOptions, task TxTask) error
}
