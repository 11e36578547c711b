package services

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invsync/internal/errors"
	"invsync/internal/inventory"
	"invsync/internal/normalize"
	"invsync/internal/shared/testutil"
	"invsync/internal/source"
	"invsync/internal/store"
	"invsync/internal/tabular"
)

func lagosResult() *source.Result {
	return &source.Result{
		Mode: source.ModeAPI,
		Tabs: []source.Tab{{
			Name: "Lagos",
			Rows: tabular.Matrix{
				{"S/N", "Product", "1/5 Inbound", "1/5 Outbound", "1/5 Balance"},
				{"1", "Widget A", "10", "3", "40"},
				{"2", "Widget B", "-", "", "15"},
			},
			Branch: normalize.BranchFromTab,
		}},
		Skipped: []source.SkippedTab{{Name: "Broken", Reason: "bad range", Type: errors.ErrTypeNetwork}},
	}
}

func newTestService(t *testing.T, fetcher SheetFetcher, wb WorkbookReader, notifier SyncNotifier) (*InventoryService, *store.MemoryStore) {
	t.Helper()
	return newTestServiceWithOptions(t, fetcher, wb, InventoryOptions{Notifier: notifier})
}

func newTestServiceWithOptions(t *testing.T, fetcher SheetFetcher, wb WorkbookReader, opts InventoryOptions) (*InventoryService, *store.MemoryStore) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	st := store.NewMemoryStore()
	opts.SyncTimeout = 5 * time.Second
	opts.UnitValue = 100
	svc := NewInventoryService(fetcher, wb, st, opts, logger)
	return svc, st
}

func TestInventoryServiceSync(t *testing.T) {
	ctx := context.Background()
	creds := source.Credentials{APIKey: "key"}

	fetcher := &mockFetcher{}
	fetcher.On("Select", creds).Return(source.ModeAPI)
	fetcher.On("Fetch", mock.Anything, creds).Return(lagosResult(), nil).Once()

	notifier := &recordingNotifier{}
	svc, st := newTestService(t, fetcher, nil, notifier)

	status, err := svc.Sync(ctx, SyncRequest{Credentials: creds})
	require.NoError(t, err)
	fetcher.AssertExpectations(t)

	assert.Equal(t, source.ModeAPI, status.Mode)
	assert.Equal(t, 2, status.RecordCount)
	assert.False(t, status.InProgress)
	assert.False(t, status.LastSuccess.IsZero())
	assert.Empty(t, status.ErrorType)
	require.Len(t, status.Skipped, 1)
	assert.Equal(t, "Broken", status.Skipped[0].Name)
	assert.NotEmpty(t, status.SyncID)

	records := svc.Records("")
	require.Len(t, records, 2)
	assert.Equal(t, inventory.Record{
		Date: "1/5", BranchName: "Lagos", DeviceName: "Widget A",
		StockIn: 10, StockOut: 3, CurrentCount: 40, Category: inventory.CategoryMainUnit,
	}, records[0])

	snap, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, "api", snap.Mode)

	assert.Equal(t, []string{EventSyncStarted, EventSyncCompleted}, notifier.types())
}

func TestInventoryServiceViews(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Select", mock.Anything).Return(source.ModeAPI)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(lagosResult(), nil)

	svc, _ := newTestService(t, fetcher, nil, nil)
	_, err := svc.Sync(context.Background(), SyncRequest{})
	require.NoError(t, err)

	t.Run("records filter", func(t *testing.T) {
		assert.Len(t, svc.Records("lag"), 2)
		assert.Empty(t, svc.Records("abuja"))
	})

	t.Run("branches", func(t *testing.T) {
		branches := svc.Branches("")
		require.Len(t, branches, 1)
		assert.Equal(t, 55, branches[0].TotalItems)
		assert.Equal(t, 10, branches[0].TotalStockIn)
	})

	t.Run("daily", func(t *testing.T) {
		daily := svc.Daily(7)
		require.Len(t, daily, 1)
		assert.Equal(t, "1/5", daily[0].Date)
		assert.Equal(t, 55, daily[0].Count)
	})

	t.Run("metrics", func(t *testing.T) {
		metrics := svc.Metrics()
		require.Len(t, metrics, 1)
		assert.Equal(t, 3, metrics[0].StockOut)
	})

	t.Run("summary", func(t *testing.T) {
		summary := svc.Summary()
		assert.Equal(t, 55, summary.TotalItems)
		assert.Equal(t, 5500, summary.TotalValue)
		assert.Equal(t, "Lagos", summary.TopBranch)
		assert.Equal(t, 2, summary.RecordCount)
	})

	t.Run("records are copies", func(t *testing.T) {
		records := svc.Records("")
		records[0].DeviceName = "changed"
		assert.Equal(t, "Widget A", svc.Records("")[0].DeviceName)
	})
}

func TestInventoryServiceFailurePolicy(t *testing.T) {
	credErr := errors.NewCredentialError("API key rejected", nil).WithRemedy("check the API key")

	tests := []struct {
		name        string
		silent      bool
		wantRecords int
	}{
		{name: "non-silent failure clears the snapshot", silent: false, wantRecords: 0},
		{name: "silent failure keeps the snapshot", silent: true, wantRecords: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fetcher := &mockFetcher{}
			fetcher.On("Select", mock.Anything).Return(source.ModeAPI)
			fetcher.On("Fetch", mock.Anything, mock.Anything).Return(lagosResult(), nil).Once()
			fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, credErr).Once()

			notifier := &recordingNotifier{}
			svc, st := newTestService(t, fetcher, nil, notifier)

			_, err := svc.Sync(ctx, SyncRequest{})
			require.NoError(t, err)

			status, err := svc.Sync(ctx, SyncRequest{Silent: tt.silent})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrCredential)

			assert.Equal(t, errors.ErrTypeCredential, status.ErrorType)
			assert.Equal(t, "check the API key", status.Remedy)
			assert.Contains(t, status.Error, "API key rejected")
			assert.Equal(t, tt.wantRecords, status.RecordCount)
			assert.Len(t, svc.Records(""), tt.wantRecords)

			snap, err := st.Load(ctx)
			require.NoError(t, err)
			assert.Len(t, snap.Records, tt.wantRecords)

			assert.Equal(t, svc.Status().ErrorType, errors.ErrTypeCredential)
			assert.Equal(t, EventSyncFailed, notifier.types()[len(notifier.types())-1])
		})
	}
}

func TestInventoryServiceSuccessClearsPreviousError(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Select", mock.Anything).Return(source.ModePublic)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.NewNetworkError("timeout", nil)).Once()
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(lagosResult(), nil).Once()

	svc, _ := newTestService(t, fetcher, nil, nil)
	_, err := svc.Sync(context.Background(), SyncRequest{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeNetwork, svc.Status().ErrorType)
	assert.Equal(t, source.ModePublic, svc.Status().Mode)

	_, err = svc.Sync(context.Background(), SyncRequest{})
	require.NoError(t, err)
	st := svc.Status()
	assert.Empty(t, st.ErrorType)
	assert.Empty(t, st.Error)
	assert.Empty(t, st.Remedy)
}

func TestInventoryServiceWorkbook(t *testing.T) {
	t.Run("workbook request bypasses the sheet fetcher", func(t *testing.T) {
		fetcher := &mockFetcher{}
		wb := &mockWorkbook{}
		res := lagosResult()
		res.Mode = source.ModeWorkbook
		wb.On("Fetch", mock.Anything, "/tmp/stock.xlsx").Return(res, nil)

		svc, _ := newTestService(t, fetcher, wb, nil)
		status, err := svc.Sync(context.Background(), SyncRequest{Workbook: "/tmp/stock.xlsx"})
		require.NoError(t, err)
		assert.Equal(t, source.ModeWorkbook, status.Mode)
		wb.AssertExpectations(t)
		fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("workbook disabled", func(t *testing.T) {
		svc, _ := newTestService(t, &mockFetcher{}, nil, nil)
		status, err := svc.Sync(context.Background(), SyncRequest{Workbook: "/tmp/stock.xlsx"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWorkbookDisabled)
		assert.Equal(t, errors.ErrTypeValidation, status.ErrorType)
	})
}

func TestInventoryServiceWorkbookDir(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		workbook string
		want     string
		wantErr  error
	}{
		{name: "relative path inside", workbook: "stock.xlsx", want: filepath.Join(dir, "stock.xlsx")},
		{name: "absolute path inside", workbook: filepath.Join(dir, "lagos", "stock.xlsx"), want: filepath.Join(dir, "lagos", "stock.xlsx")},
		{name: "absolute path outside", workbook: "/etc/stock.xlsx", wantErr: ErrWorkbookOutsideDir},
		{name: "relative traversal", workbook: "../stock.xlsx", wantErr: ErrWorkbookOutsideDir},
		{name: "traversal after subdir", workbook: "lagos/../../stock.xlsx", wantErr: ErrWorkbookOutsideDir},
		{name: "sibling with shared prefix", workbook: dir + "-other/stock.xlsx", wantErr: ErrWorkbookOutsideDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fetcher := &mockFetcher{}
			fetcher.On("Select", mock.Anything).Return(source.ModeAPI)
			fetcher.On("Fetch", mock.Anything, mock.Anything).Return(lagosResult(), nil).Once()
			wb := &mockWorkbook{}
			if tt.wantErr == nil {
				res := lagosResult()
				res.Mode = source.ModeWorkbook
				wb.On("Fetch", mock.Anything, tt.want).Return(res, nil)
			}

			svc, st := newTestServiceWithOptions(t, fetcher, wb, InventoryOptions{WorkbookDir: dir})
			_, err := svc.Sync(ctx, SyncRequest{})
			require.NoError(t, err)

			status, err := svc.Sync(ctx, SyncRequest{Workbook: tt.workbook})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, errors.ErrTypeValidation, status.ErrorType)
				wb.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)

				assert.Len(t, svc.Records(""), 2)
				snap, loadErr := st.Load(ctx)
				require.NoError(t, loadErr)
				assert.Len(t, snap.Records, 2, "rejected workbook must not clear the snapshot")
				assert.Empty(t, svc.Status().ErrorType)
				return
			}
			require.NoError(t, err)
			wb.AssertExpectations(t)
		})
	}
}

type blockingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) Select(source.Credentials) source.Mode { return source.ModePublic }

func (f *blockingFetcher) Fetch(ctx context.Context, _ source.Credentials) (*source.Result, error) {
	f.calls.Add(1)
	f.once.Do(func() { close(f.started) })
	select {
	case <-f.release:
		return lagosResult(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestInventoryServiceSharesInFlightSync(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{}), started: make(chan struct{})}
	svc, _ := newTestService(t, fetcher, nil, nil)

	var wg sync.WaitGroup
	results := make([]SyncStatus, 3)
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Sync(context.Background(), SyncRequest{})
		}(i)
	}

	<-fetcher.started
	assert.Eventually(t, func() bool { return svc.Status().InProgress }, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 2, results[i].RecordCount)
	}
}

func TestInventoryServiceSyncOutlivesCaller(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{}), started: make(chan struct{})}
	svc, _ := newTestService(t, fetcher, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.Sync(ctx, SyncRequest{})
		done <- err
	}()

	<-fetcher.started
	cancel()
	close(fetcher.release)
	require.NoError(t, <-done)
	assert.Len(t, svc.Records(""), 2)
}

func TestInventoryServiceRestore(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, &mockFetcher{}, nil, nil)

	require.NoError(t, svc.Restore(ctx))
	assert.Empty(t, svc.Records(""))

	syncedAt := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, st.Replace(ctx, store.Snapshot{
		Records:  []inventory.Record{{Date: "1/5", BranchName: "Lagos", DeviceName: "Widget A", CurrentCount: 4}},
		Mode:     "public",
		SyncedAt: syncedAt,
	}))
	require.NoError(t, svc.Restore(ctx))

	assert.Len(t, svc.Records(""), 1)
	status := svc.Status()
	assert.Equal(t, source.ModePublic, status.Mode)
	assert.Equal(t, syncedAt, status.LastSuccess)
	assert.Equal(t, 1, status.RecordCount)
}

func TestInventoryServiceRunPoller(t *testing.T) {
	t.Run("zero interval returns immediately", func(t *testing.T) {
		svc, _ := newTestService(t, &mockFetcher{}, nil, nil)
		done := make(chan struct{})
		go func() {
			svc.RunPoller(context.Background(), 0)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller did not return")
		}
	})

	t.Run("issues silent syncs until cancelled", func(t *testing.T) {
		var calls atomic.Int32
		fetcher := &mockFetcher{}
		fetcher.On("Select", source.Credentials{}).Return(source.ModeAPI)
		fetcher.On("Fetch", mock.Anything, source.Credentials{}).
			Run(func(mock.Arguments) { calls.Add(1) }).
			Return(nil, errors.NewNetworkError("down", nil))

		svc, st := newTestService(t, fetcher, nil, nil)
		ctx := context.Background()
		require.NoError(t, st.Replace(ctx, store.Snapshot{
			Records:  []inventory.Record{{Date: "1/5", BranchName: "Lagos", DeviceName: "Widget A"}},
			SyncedAt: time.Now(),
		}))
		require.NoError(t, svc.Restore(ctx))

		pollCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			svc.RunPoller(pollCtx, 10*time.Millisecond)
			close(done)
		}()

		assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
		cancel()
		<-done

		// Background failures keep the restored data.
		assert.Len(t, svc.Records(""), 1)
		assert.Equal(t, errors.ErrTypeNetwork, svc.Status().ErrorType)
	})
}

func TestValidateWorkbookPath(t *testing.T) {
	assert.NoError(t, ValidateWorkbookPath(""))
	assert.NoError(t, ValidateWorkbookPath("/data/Stock.XLSX"))
	err := ValidateWorkbookPath("/data/stock.csv")
	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeValidation, errors.TypeOf(err))
}
