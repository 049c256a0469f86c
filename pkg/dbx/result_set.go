package dbx

import (
	"github.com/marcodd23/go-tx-sandbox/pkg/errorx"
)

// ============================================
// DefaultResultSet, Row and RowScan structs
// ============================================

// Row represents a database row returned as a result.
type Row []any

// RowScan represents a row that can be mapped to dest fields through the Scan function.
type RowScan interface {
	Scan(dest ...any) error
}

// ResultSet represents a fully materialized query result.
type ResultSet interface {
	GetRow(rowIdx int) (Row, error)
	GetRows() []Row
	GetRowScan(rowIdx int) (RowScan, error)
	GetRowsScan() []RowScan
	Close()
}

// DefaultResultSet represents the query result set.
type DefaultResultSet struct {
	Rows     []Row
	RowsScan []RowScan
}

// GetRow - get row by index.
func (r *DefaultResultSet) GetRow(rowIdx int) (Row, error) {
	if rowIdx < 0 || rowIdx >= len(r.Rows) {
		return Row{}, errorx.NewDatabaseError("Error retrieving DefaultResultSet row, index out of range: %d", rowIdx)
	}

	return r.Rows[rowIdx], nil
}

// GetRows - return all the Row of this resultset.
func (r *DefaultResultSet) GetRows() []Row {
	return r.Rows
}

// GetRowScan - Get row scan by index.
func (r *DefaultResultSet) GetRowScan(rowIdx int) (RowScan, error) {
	if rowIdx < 0 || rowIdx >= len(r.RowsScan) {
		return nil, errorx.NewDatabaseError("Error retrieving DefaultResultSet RowsScan, index out of range: %d", rowIdx)
	}

	return r.RowsScan[rowIdx], nil
}

// GetRowsScan - Return all RowScan of this resultset.
func (r *DefaultResultSet) GetRowsScan() []RowScan {
	return r.RowsScan
}

// Close - It is supposed to be implemented by the derived struct
// to close the resultset eventually (Rows, RowsScan).
func (r *DefaultResultSet) Close() {}
