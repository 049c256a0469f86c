package pgxdb

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
	"github.com/marcodd23/go-tx-sandbox/pkg/errorx"
)

//###################################
//#       Postgres Row Scan         #
//###################################

// PgRowScan - Postgres specific RowScan over already materialized row values.
// It implements dbx.RowScan.
type PgRowScan struct {
	Values []any
}

// Scan implements the RowScan interface to scan Values into the provided dest.
func (p *PgRowScan) Scan(dest ...any) error {
	if len(dest) != len(p.Values) {
		return errorx.NewDatabaseError("expected %d destination arguments in Scan, not %d", len(p.Values), len(dest))
	}

	for i, v := range p.Values {
		destValue := reflect.ValueOf(dest[i])

		// Check that the destination argument is a pointer.
		if destValue.Kind() != reflect.Ptr {
			return errorx.NewDatabaseError("destination not a pointer")
		}

		destElem := destValue.Elem()

		// Special case to handle nil values
		if v == nil {
			destElem.Set(reflect.Zero(destElem.Type()))
			continue
		}

		val := reflect.ValueOf(v)

		// Special handling for JSONB data
		if destElem.Kind() == reflect.Slice && destElem.Type().Elem().Kind() == reflect.Uint8 {
			if m, ok := v.(map[string]interface{}); ok {
				jsonBytes, err := json.Marshal(m)
				if err != nil {
					return errorx.NewDatabaseErrorWrapper(err, "failed to marshal jsonb data")
				}
				destElem.Set(reflect.ValueOf(jsonBytes))
				continue
			}
		}

		// Handle pointer destinations
		if destElem.Kind() == reflect.Ptr {
			newElem := reflect.New(destElem.Type().Elem())
			if val.Type().ConvertibleTo(newElem.Elem().Type()) {
				newElem.Elem().Set(val.Convert(newElem.Elem().Type()))
				destElem.Set(newElem)
			} else {
				return errorx.NewDatabaseError(fmt.Sprintf("cannot convert %v to %v", val.Type(), newElem.Elem().Type()))
			}
		} else if val.Type().ConvertibleTo(destElem.Type()) {
			destElem.Set(val.Convert(destElem.Type()))
		} else {
			return errorx.NewDatabaseError(fmt.Sprintf("cannot convert %v to %v", val.Type(), destElem.Type()))
		}
	}

	return nil
}

// readRowsIntoResultSet copies every row into a DefaultResultSet. The pgx rows
// are fully consumed but not closed; the caller owns them.
func readRowsIntoResultSet(rows pgx.Rows) (*dbx.DefaultResultSet, error) {
	resultSet := &dbx.DefaultResultSet{}

	for rows.Next() {
		rowElements, err := rows.Values()
		if err != nil {
			return nil, errorx.NewDatabaseErrorWrapper(err, "Error reading row Values")
		}

		rowElementsCopy := make(dbx.Row, len(rowElements))
		copy(rowElementsCopy, rowElements)

		resultSet.Rows = append(resultSet.Rows, rowElementsCopy)
		resultSet.RowsScan = append(resultSet.RowsScan, &PgRowScan{Values: rowElementsCopy})
	}

	if err := rows.Err(); err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "Error iterating rows")
	}

	return resultSet, nil
}
