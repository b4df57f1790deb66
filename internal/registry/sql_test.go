package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsync/reconciler/internal/db"
	"github.com/brandsync/reconciler/internal/plan"
)

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	store, err := OpenSQLStore(ctx, db.Options{Driver: db.DriverSQLite}, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Insert(ctx, seedDocuments()...))
	return store
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	require.NoError(t, store.Ping(ctx))

	snapshot, err := LoadSnapshot(ctx, store, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.Len())

	p := plan.New()
	plan.StageSubsidiary(p, "e2", "Acme Corp", "e1", plan.Origin{Dataset: "subsidiaries", Line: 2, Score: 100})

	report := Apply(ctx, store, p)
	require.True(t, report.OK(), report.Err())
	assert.Equal(t, []string{"e1", "e2"}, report.Applied)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "e2", docs[0].Fields["parent_id"])
	assert.Equal(t, "Acme Corp", docs[0].Fields["parent_company"])
	assert.Equal(t, "3M Co", docs[0].Fields["name"])
	assert.Equal(t, map[string]any{"e1": true}, docs[1].Fields["subsidiaries"])
}

func TestSQLStoreMissingEntity(t *testing.T) {
	store := openSQLite(t)

	err := store.ApplyEntity(context.Background(), "nope", []plan.Mutation{
		plan.SetValue("name", "x", plan.Origin{}),
	})
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestNewSQLStoreRejectsBadTable(t *testing.T) {
	_, err := NewSQLStore(&db.Connection{}, "entities; DROP TABLE x")
	assert.Error(t, err)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "$2", db.Dialect{Name: db.DriverPostgres}.Placeholder(2))
	assert.Equal(t, "?", db.Dialect{Name: db.DriverSQLite}.Placeholder(2))
	assert.Equal(t, " FOR UPDATE", db.Dialect{Name: db.DriverPostgres}.LockClause())
	assert.Empty(t, db.Dialect{Name: db.DriverSQLite}.LockClause())
}
