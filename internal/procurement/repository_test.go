package procurement

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTranslateUndefinedTable(t *testing.T) {
	err := fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01", Message: `relation "requests" does not exist`})
	require.ErrorIs(t, translate(err), ErrTableMissing)

	other := &pgconn.PgError{Code: "23505"}
	require.False(t, errors.Is(translate(other), ErrTableMissing))
	require.NoError(t, translate(nil))
}

func TestNumericArg(t *testing.T) {
	require.Nil(t, numericArg(""))
	require.Nil(t, numericArg("abc"))
	require.Equal(t, "12.5", numericArg("12.5"))
}

func TestSaveRequestOnlyOverwritesOlderVersions(t *testing.T) {
	require.Contains(t, saveRequestSQL, "version=$22")
	require.True(t, strings.HasSuffix(strings.TrimSpace(saveRequestSQL), "WHERE id=$1 AND version < $22"))

	row, _, _ := ToRows(Request{ID: "req-1001", Version: 4})
	require.Equal(t, int64(4), row.Version)
	require.Equal(t, int64(4), ToRequest(row, nil).Version)
}

func TestUpsertItemKeepsForeignRowsUntouched(t *testing.T) {
	require.Contains(t, upsertItemSQL, "ON CONFLICT (id) DO UPDATE")
	require.True(t, strings.HasSuffix(strings.TrimSpace(upsertItemSQL), "WHERE request_items.request_id = EXCLUDED.request_id"))
}
