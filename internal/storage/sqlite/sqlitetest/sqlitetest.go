// Package sqlitetest opens throwaway in-memory databases with the production schema.
package sqlitetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/legaldesk/insights/internal/storage/sqlite"
)

func New(t testing.TB) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

// Exec runs seed statements, failing the test on the first error.
func Exec(t testing.TB, client *sqlite.Client, statement string, args ...any) {
	t.Helper()
	require.NoError(t, client.Exec(context.Background(), statement, args...))
}
