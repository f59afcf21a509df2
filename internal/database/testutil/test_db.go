// Package testutil opens throwaway audit stores for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/storefront/internal/database"
	"github.com/charlesng35/storefront/internal/models"
)

// Option customises OpenAuditDB.
type Option func(*options)

type options struct {
	skipMigrate bool
	rows        []models.AuditLog
}

// Unmigrated leaves the schema empty so tests can exercise write failures.
func Unmigrated() Option {
	return func(o *options) { o.skipMigrate = true }
}

// WithAuditRows inserts rows after migration. CreatedAt is kept as given so
// retention tests can seed aged entries.
func WithAuditRows(rows ...models.AuditLog) Option {
	return func(o *options) { o.rows = append(o.rows, rows...) }
}

// OpenAuditDB opens a private in-memory SQLite database named after the test
// and migrates the audit schema. It is closed via t.Cleanup.
func OpenAuditDB(t *testing.T, opts ...Option) *gorm.DB {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(database.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	if o.skipMigrate {
		require.Empty(t, o.rows, "cannot seed rows into an unmigrated database")
		return db
	}

	require.NoError(t, database.Prepare(db))
	for i := range o.rows {
		require.NoError(t, db.Create(&o.rows[i]).Error)
	}
	return db
}
