// Package migrationtest opens migrated in-memory SQLite databases for tests.
package migrationtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap/zaptest"

	"github.com/Additional-Code/tableside/internal/config"
	"github.com/Additional-Code/tableside/internal/database"
	"github.com/Additional-Code/tableside/internal/migration"
)

var seq atomic.Int64

// SQLite returns a fresh, fully migrated in-memory database that is closed
// when the test ends.
func SQLite(t testing.TB) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.Open("sqlite", dsn, config.Database{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mig, err := migration.NewForDB(db, "sqlite", zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, mig.Up(context.Background()))

	return db
}
