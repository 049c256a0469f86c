package pgxdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/errorx"
	"github.com/marcodd23/go-tx-sandbox/pkg/logx"
)

//###################################
//#       Postgres TX Manager       #
//###################################

// PostgresTx - Postgres Transaction manager.
// Implements dbx.Transaction, providing methods to manage a PostgreSQL transaction.
type PostgresTx struct {
	tx   pgx.Tx
	conn *pgxpool.Conn
	txId int64
}

// GetTx - Returns the underlying pgx.Tx object, allowing for direct interaction with
// the transaction if needed.
func (tx *PostgresTx) GetTx() any {
	return tx.tx
}

// TxCommit - Commits a transaction and releases the connection to the pool.
func (tx *PostgresTx) TxCommit(ctx context.Context) error {
	if tx.conn != nil {
		defer tx.conn.Release()
	}

	err := tx.tx.Commit(ctx)
	if err != nil {
		logx.GetLogger().LogError(ctx, "error during transaction commit", err)
		return errorx.NewDatabaseErrorWrapper(err, "error during transaction commit")
	}

	return nil
}

// TxRollback - Rolls back a transaction and releases the connection to the pool.
//
// This method aborts the transaction, discarding all changes made during the transaction.
// It does not return an error; a rollback failure is logged, typically in a deferred call.
func (tx *PostgresTx) TxRollback(ctx context.Context) {
	if tx.conn != nil {
		defer tx.conn.Release()
	}

	err := tx.tx.Rollback(ctx)
	if err != nil {
		logx.GetLogger().LogError(ctx, fmt.Sprintf("error Rolling Back transaction: %d", tx.txId), err)
	} else {
		logx.GetLogger().LogDebug(ctx, fmt.Sprintf("Rollback transaction: %d", tx.txId))
	}
}

// TxQuery executes a query within the transaction, copies the results and returns a ResultSet.
func (tx *PostgresTx) TxQuery(ctx context.Context, query string, args ...any) (dbx.ResultSet, error) {
	rows, err := tx.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", query)
	}
	defer rows.Close()

	return readRowsIntoResultSet(rows)
}

// TxExec - Executes a command query under a transaction and returns the number of rows affected.
func (tx *PostgresTx) TxExec(ctx context.Context, execQuery string, args ...any) (int64, error) {
	result, err := tx.tx.Exec(ctx, execQuery, args...)
	if err != nil {
		return 0, errorx.NewDatabaseErrorWrapper(err, "Error executing query '%s'", execQuery)
	}

	return result.RowsAffected(), nil
}

// TxExecBatch - Executes a batch of command queries under a transaction and returns the total number of rows affected.
func (tx *PostgresTx) TxExecBatch(ctx context.Context, batch dbx.Batch) (int64, error) {
	pgBatch, ok := batch.GetBatch().(*pgx.Batch)
	if !ok {
		return 0, errorx.NewDatabaseError("batch is not a pgx batch")
	}

	batchResult := tx.tx.SendBatch(ctx, pgBatch)
	defer func() {
		if err := batchResult.Close(); err != nil {
			logx.GetLogger().LogError(ctx, "error closing batch results", err)
		}
	}()

	var totalRowsAffected int64

	for range pgBatch.QueuedQueries {
		commandTag, err := batchResult.Exec()
		if err != nil {
			return 0, errorx.NewDatabaseErrorWrapper(err, "Error executing batch")
		}

		totalRowsAffected += commandTag.RowsAffected()
	}

	return totalRowsAffected, nil
}
