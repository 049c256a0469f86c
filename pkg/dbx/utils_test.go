package dbx_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-tx-sandbox/pkg/dbx"
)

// Define a struct matching the ACCOUNTS table schema
type TestStruct struct {
	Id       int64     `db:"id"`
	Name     string    `db:"name"`
	Balance  int64     `db:"balance"`
	ModifyTs time.Time `db:"modify_ts"`
	Internal string    `db:"-"`
}

func TestDeriveColumnNamesFromTags(t *testing.T) {
	columns, err := dbx.DeriveColumnNamesFromTags(TestStruct{}, "db")

	expectedColumns := []string{
		"id",
		"name",
		"balance",
		"modify_ts",
	}

	assert.NoError(t, err)
	assert.True(t, reflect.DeepEqual(expectedColumns, columns), "Expected %v but got %v", expectedColumns, columns)
}

func TestDeriveColumnNamesFromTagsRejectsNonStruct(t *testing.T) {
	_, err := dbx.DeriveColumnNamesFromTags("not a struct", "db")
	require.Error(t, err)
}

func TestStructsToRows(t *testing.T) {
	now := time.Now()

	testData := []TestStruct{
		{
			Id:       1,
			Name:     "alice",
			Balance:  500,
			ModifyTs: now,
			Internal: "ignored", // Should be ignored because of `db:"-"` tag
		},
		{
			Id:       2,
			Name:     "bob",
			Balance:  750,
			ModifyTs: now,
			Internal: "ignored",
		},
	}

	rows, err := dbx.StructsToRows(testData, "db")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Len(t, rows[0], 4) // Internal is skipped
	require.Equal(t, int64(1), rows[0][0])
	require.Equal(t, "alice", rows[0][1])
	require.Equal(t, int64(500), rows[0][2])

	require.Len(t, rows[1], 4)
	require.Equal(t, int64(2), rows[1][0])
	require.Equal(t, "bob", rows[1][1])
	require.Equal(t, int64(750), rows[1][2])
}

func TestGenerateRandomInt64Id(t *testing.T) {
	seen := map[int64]bool{}

	for i := 0; i < 100; i++ {
		id := dbx.GenerateRandomInt64Id()
		require.Greater(t, id, int64(0))
		require.False(t, seen[id])
		seen[id] = true
	}
}
