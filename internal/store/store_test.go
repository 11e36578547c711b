package store

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invsync/internal/inventory"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Mode:     "api",
		SyncedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		Records: []inventory.Record{
			{Date: "1/5", BranchName: "Lagos", DeviceName: "Widget A", StockIn: 10, CurrentCount: 40, Category: inventory.CategoryMainUnit},
			{Date: "1/5", BranchName: "Lagos", DeviceName: "USB Cable", StockOut: 2, Remarks: "To Yaba", Category: inventory.CategoryAccessory},
		},
	}
}

// exerciseStore runs the replace semantics every driver must honour.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Empty())

	want := sampleSnapshot()
	require.NoError(t, s.Replace(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Mode, got.Mode)
	assert.True(t, want.SyncedAt.Equal(got.SyncedAt))
	assert.Equal(t, want.Records, got.Records)

	next := Snapshot{Mode: "public", SyncedAt: want.SyncedAt.Add(time.Hour), Records: want.Records[:1]}
	require.NoError(t, s.Replace(ctx, next))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "public", got.Mode)
	assert.Len(t, got.Records, 1, "replace never merges")

	large := Snapshot{Mode: "api", SyncedAt: want.SyncedAt, Records: []inventory.Record{
		{Date: "1/6", BranchName: "Lagos", DeviceName: "Screws", StockIn: 3_000_000_000, StockOut: 1 << 40, CurrentCount: 5_000_000_000},
	}}
	require.NoError(t, s.Replace(ctx, large))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, large.Records, got.Records, "quantities beyond 32 bits survive")

	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Empty(t, got.Records)
}

func TestPostgresSchema_QuantityColumnsAreBigint(t *testing.T) {
	for _, column := range []string{"stock_in", "stock_out", "current_count"} {
		t.Run(column, func(t *testing.T) {
			create := regexp.MustCompile(`(?m)^\s*` + column + `\s+BIGINT NOT NULL`)
			alter := regexp.MustCompile(`ALTER COLUMN ` + column + ` TYPE BIGINT`)
			assert.Regexp(t, create, schemaSQL)
			assert.Regexp(t, alter, schemaSQL)
			assert.NotRegexp(t, regexp.MustCompile(`(?m)^\s*`+column+`\s+INTEGER`), schemaSQL)
		})
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	snap := sampleSnapshot()
	require.NoError(t, s.Replace(ctx, snap))

	snap.Records[0].StockIn = 999
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Records[0].StockIn)

	got.Records[0].StockIn = 555
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Records[0].StockIn)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, "sqlite", "")
	assert.Error(t, err)

	_, err = Open(ctx, DriverPostgres, "")
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("INV_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INV_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Clear(ctx))
	exerciseStore(t, s)
}
