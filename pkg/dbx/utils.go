package dbx

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"reflect"

	"github.com/pkg/errors"

	"github.com/marcodd23/go-tx-sandbox/pkg/logx"
)

// GenerateRandomInt64Id generates a random 64-bit ID.
//
// This function generates a random, non-zero 64-bit integer that can be used as a unique identifier for transactions
// or other purposes requiring a unique ID. It uses the crypto/rand package to ensure cryptographic randomness.
//
// The function ensures that the generated ID is non-zero by continuously generating a new ID if the result is zero.
//
// Returns:
//   - int64: A random, non-zero 64-bit integer, which can be used as a unique transaction ID.
func GenerateRandomInt64Id() int64 {
	var idNum uint64

	for idNum == 0 {
		err := binary.Read(rand.Reader, binary.BigEndian, &idNum)
		if err != nil {
			logx.GetLogger().LogError(context.TODO(), "error generating 64-bit random ID", err)
			continue
		}

		idNum %= uint64(math.MaxInt64)
	}

	return int64(idNum)
}

// DeriveColumnNamesFromTags extracts column names from a struct's tags.
// It uses reflection over the fields of a struct and retrieves the tag values
// specified by `tagKey` (e.g., "db"). Only exported fields that contain a
// non-empty tag and are not marked with `"-"` will be included in the returned slice.
//
// Arguments:
//   - entity: The struct from which to derive the column names. Can be a pointer or a value.
//   - tagKey: The key of the tag to extract values from (e.g., "db" for database column mapping).
//
// Returns:
//   - []string: A slice of column names derived from the specified tag on the struct fields.
//   - error: Any error encountered
//
// Example:
//
//	type Example struct {
//	    ID   int    `db:"id"`
//	    Name string `db:"name"`
//	    Age  int    `db:"age"`
//	}
//	columns, _ := DeriveColumnNamesFromTags(Example{}, "db")
//	// columns would be: []string{"id", "name", "age"}
func DeriveColumnNamesFromTags[T any](entity T, tagKey string) ([]string, error) {
	var columnNames []string

	v := reflect.ValueOf(entity)
	t := reflect.TypeOf(entity)

	// Check if it's a pointer, and dereference if necessary
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
		t = t.Elem()
	}

	// Ensure that the value is a struct
	if v.Kind() != reflect.Struct {
		return nil, errors.New("expected a struct type")
	}

	// Iterate over each field of the struct
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		dbTag := field.Tag.Get(tagKey)
		if dbTag != "" && dbTag != "-" {
			// Skip unexported fields
			if field.PkgPath != "" {
				continue
			}

			columnNames = append(columnNames, dbTag)
		}
	}

	return columnNames, nil
}

// StructsToRows converts a slice of structs to a []Row using the values of the
// fields carrying the given tag. The column order matches DeriveColumnNamesFromTags.
func StructsToRows[T any](entities []T, tagKey string) ([]Row, error) {
	var rows []Row

	for _, entity := range entities {
		var row Row

		v := reflect.ValueOf(entity)

		// Check if it's a pointer, and dereference if necessary
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}

		// Ensure that the value is a struct
		if v.Kind() != reflect.Struct {
			return nil, errors.New("expected a struct type")
		}

		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)

			dbTag := field.Tag.Get(tagKey)
			if dbTag != "" && dbTag != "-" {
				// Skip unexported fields
				if field.PkgPath != "" {
					continue
				}

				row = append(row, v.Field(i).Interface())
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}
