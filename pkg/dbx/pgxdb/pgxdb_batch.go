package pgxdb

import (
	"github.com/jackc/pgx/v5"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
)

//###################################
//#       Postgres BATCH            #
//###################################

// pgxBatch - Postgres Transaction Batch manager.
// Implements dbx.Batch, providing methods to manage a batch of SQL statements within a transaction.
type pgxBatch struct {
	batch *pgx.Batch
}

// NewEmptyBatch creates a new, empty batch for queuing SQL statements.
func NewEmptyBatch() dbx.Batch {
	return &pgxBatch{
		batch: &pgx.Batch{},
	}
}

// GetBatch returns the underlying pgx.Batch.
func (bch *pgxBatch) GetBatch() any {
	if bch.batch == nil {
		bch.batch = &pgx.Batch{}
	}

	return bch.batch
}

// Len returns the number of SQL statements queued in the batch.
func (bch *pgxBatch) Len() int {
	if bch.batch == nil {
		bch.batch = &pgx.Batch{}
	}

	return bch.batch.Len()
}

// Queue adds a SQL statement to the batch with the given query and arguments.
func (bch *pgxBatch) Queue(query string, arguments ...any) {
	if bch.batch == nil {
		bch.batch = &pgx.Batch{}
	}

	bch.batch.Queue(query, arguments...)
}
