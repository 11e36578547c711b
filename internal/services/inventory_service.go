package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"invsync/internal/errors"
	"invsync/internal/infrastructure"
	"invsync/internal/inventory"
	"invsync/internal/normalize"
	"invsync/internal/source"
	"invsync/internal/store"
)

var tracer = otel.Tracer("invsync/services")

// SheetFetcher is the transport selector used for modes A and B.
type SheetFetcher interface {
	Select(creds source.Credentials) source.Mode
	Fetch(ctx context.Context, creds source.Credentials) (*source.Result, error)
}

// WorkbookReader reads a local workbook (mode W).
type WorkbookReader interface {
	Fetch(ctx context.Context, path string) (*source.Result, error)
}

// SyncNotifier receives sync lifecycle events, typically the websocket hub.
type SyncNotifier interface {
	BroadcastSync(event SyncEvent)
}

// Sync event types
const (
	EventSyncStarted   = "sync:started"
	EventSyncCompleted = "sync:completed"
	EventSyncFailed    = "sync:failed"
)

// SyncEvent describes one step of a sync for subscribers.
type SyncEvent struct {
	Type      string      `json:"type"`
	SyncID    string      `json:"syncId"`
	Silent    bool        `json:"silent"`
	Status    *SyncStatus `json:"status,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SyncRequest triggers one sync.
type SyncRequest struct {
	Credentials source.Credentials
	// Silent syncs keep the previous snapshot when they fail.
	Silent bool
	// Workbook selects mode W with a local .xlsx path.
	Workbook string
}

func (r SyncRequest) flightKey() string {
	return fmt.Sprintf("%t\x00%s\x00%s\x00%s", r.Silent, r.Workbook, r.Credentials.APIKey, r.Credentials.AccessToken)
}

// SyncStatus is the outcome of the most recent sync attempt.
type SyncStatus struct {
	SyncID      string              `json:"syncId,omitempty"`
	Mode        source.Mode         `json:"mode,omitempty"`
	InProgress  bool                `json:"inProgress"`
	LastAttempt time.Time           `json:"lastAttempt,omitempty"`
	LastSuccess time.Time           `json:"lastSuccess,omitempty"`
	Duration    time.Duration       `json:"durationNs,omitempty"`
	RecordCount int                 `json:"recordCount"`
	Skipped     []source.SkippedTab `json:"skippedTabs,omitempty"`
	ErrorType   errors.ErrorType    `json:"errorType,omitempty"`
	Error       string              `json:"error,omitempty"`
	Remedy      string              `json:"remedy,omitempty"`
}

// InventoryOptions tunes the service.
type InventoryOptions struct {
	SyncTimeout time.Duration
	UnitValue   int
	// WorkbookDir confines workbook requests to one directory. Empty accepts
	// any path, which only local callers such as the CLI should use.
	WorkbookDir string
	Metrics     *infrastructure.SyncMetrics
	Notifier    SyncNotifier
}

// InventoryService owns the current snapshot. A sync fetches, normalizes and
// consolidates the sheet, then replaces the snapshot as a whole.
type InventoryService struct {
	fetcher  SheetFetcher
	workbook WorkbookReader
	store    store.Store
	opts     InventoryOptions
	logger   *slog.Logger

	flight singleflight.Group
	// syncMu serializes distinct syncs so snapshot replacements never interleave.
	syncMu sync.Mutex

	mu       sync.RWMutex
	snapshot store.Snapshot
	status   SyncStatus
}

// NewInventoryService creates the service. workbook may be nil when mode W is
// not offered.
func NewInventoryService(fetcher SheetFetcher, workbook WorkbookReader, st store.Store, opts InventoryOptions, logger *slog.Logger) *InventoryService {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SyncTimeout <= 0 {
		opts.SyncTimeout = 2 * time.Minute
	}
	return &InventoryService{
		fetcher:  fetcher,
		workbook: workbook,
		store:    st,
		opts:     opts,
		logger:   infrastructure.WithComponent(logger, "inventory_service"),
	}
}

// Restore loads the persisted snapshot, if any, so views are served before the
// first sync completes.
func (s *InventoryService) Restore(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if snap.Empty() {
		return nil
	}

	s.mu.Lock()
	s.snapshot = snap
	s.status.Mode = source.Mode(snap.Mode)
	s.status.LastSuccess = snap.SyncedAt
	s.status.RecordCount = len(snap.Records)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "snapshot restored",
		slog.Int("records", len(snap.Records)),
		slog.Time("synced_at", snap.SyncedAt),
	)
	return nil
}

// Sync runs one sync. Identical concurrent requests share a single run.
func (s *InventoryService) Sync(ctx context.Context, req SyncRequest) (SyncStatus, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	if req.Workbook != "" {
		// A rejected workbook never starts a sync, so the snapshot is untouched.
		path, err := s.resolveWorkbook(req.Workbook)
		if err != nil {
			s.logger.WarnContext(ctx, "workbook request rejected",
				slog.String("workbook", req.Workbook),
				slog.String("error", err.Error()))
			return SyncStatus{
				SyncID:    infrastructure.GetTraceID(ctx),
				Mode:      source.ModeWorkbook,
				ErrorType: errors.TypeOf(err),
				Error:     err.Error(),
			}, err
		}
		req.Workbook = path
	}
	v, err, shared := s.flight.Do(req.flightKey(), func() (interface{}, error) {
		// The shared run must outlive any single caller that gives up.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SyncTimeout)
		defer cancel()
		return s.run(runCtx, req)
	})
	if shared {
		s.logger.DebugContext(ctx, "joined in-flight sync")
	}
	status, _ := v.(SyncStatus)
	return status, err
}

func (s *InventoryService) run(ctx context.Context, req SyncRequest) (SyncStatus, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	syncID := infrastructure.GetTraceID(ctx)
	mode := source.ModeWorkbook
	if req.Workbook == "" {
		mode = s.fetcher.Select(req.Credentials)
	}

	ctx, span := tracer.Start(ctx, "inventory.sync")
	defer span.End()
	span.SetAttributes(attribute.String("sync.mode", string(mode)), attribute.Bool("sync.silent", req.Silent))

	start := time.Now()
	s.mu.Lock()
	s.status.SyncID = syncID
	s.status.InProgress = true
	s.status.LastAttempt = start
	s.mu.Unlock()
	s.notify(SyncEvent{Type: EventSyncStarted, SyncID: syncID, Silent: req.Silent, Timestamp: start})

	s.logger.InfoContext(ctx, "sync started",
		slog.String("mode", string(mode)),
		slog.Bool("silent", req.Silent),
	)

	res, err := s.fetch(ctx, req)
	var records []inventory.Record
	if err == nil {
		records = s.normalize(ctx, res.Tabs)
		err = s.commit(ctx, records, res.Mode, start)
	}
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.fail(ctx, req, mode, syncID, start, duration, err)
	}

	s.mu.Lock()
	s.status = SyncStatus{
		SyncID:      syncID,
		Mode:        res.Mode,
		LastAttempt: start,
		LastSuccess: start,
		Duration:    duration,
		RecordCount: len(records),
		Skipped:     res.Skipped,
	}
	status := s.status
	s.mu.Unlock()

	s.opts.Metrics.RecordSync(ctx, string(res.Mode), duration, len(records), len(res.Skipped), "")
	s.logger.InfoContext(ctx, "sync completed",
		slog.String("mode", string(res.Mode)),
		slog.Int("tabs", len(res.Tabs)),
		slog.Int("skipped_tabs", len(res.Skipped)),
		slog.Int("records", len(records)),
		slog.Duration("duration", duration),
	)
	s.notify(SyncEvent{Type: EventSyncCompleted, SyncID: syncID, Silent: req.Silent, Status: &status, Timestamp: time.Now()})
	return status, nil
}

func (s *InventoryService) fetch(ctx context.Context, req SyncRequest) (*source.Result, error) {
	if req.Workbook != "" {
		return s.workbook.Fetch(ctx, req.Workbook)
	}
	return s.fetcher.Fetch(ctx, req.Credentials)
}

func (s *InventoryService) normalize(ctx context.Context, tabs []source.Tab) []inventory.Record {
	var candidates []inventory.Record
	for _, tab := range tabs {
		rows := normalize.NormalizeTab(tab)
		if len(rows) == 0 {
			s.logger.DebugContext(ctx, "tab contributed no records", slog.String("tab", tab.Name))
			continue
		}
		candidates = append(candidates, rows...)
	}
	return normalize.Consolidate(candidates)
}

func (s *InventoryService) commit(ctx context.Context, records []inventory.Record, mode source.Mode, at time.Time) error {
	snap := store.Snapshot{Records: records, Mode: string(mode), SyncedAt: at}
	if err := s.store.Replace(ctx, snap); err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return nil
}

// fail records a failed sync. A non-silent failure also clears the snapshot so
// consumers do not keep presenting data the source no longer confirms.
func (s *InventoryService) fail(ctx context.Context, req SyncRequest, mode source.Mode, syncID string, start time.Time, duration time.Duration, err error) (SyncStatus, error) {
	errType := errors.TypeOf(err)
	remedy := errors.RemedyOf(err)

	if !req.Silent {
		if clearErr := s.store.Clear(ctx); clearErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear snapshot", slog.String("error", clearErr.Error()))
		}
	}

	s.mu.Lock()
	if !req.Silent {
		s.snapshot = store.Snapshot{}
		s.status.RecordCount = 0
	}
	s.status.SyncID = syncID
	s.status.Mode = mode
	s.status.InProgress = false
	s.status.LastAttempt = start
	s.status.Duration = duration
	s.status.Skipped = nil
	s.status.ErrorType = errType
	s.status.Error = err.Error()
	s.status.Remedy = remedy
	status := s.status
	s.mu.Unlock()

	s.opts.Metrics.RecordSync(ctx, string(mode), duration, 0, 0, string(errType))
	s.logger.ErrorContext(ctx, "sync failed",
		slog.String("mode", string(mode)),
		slog.String("error_type", string(errType)),
		slog.String("error", err.Error()),
		slog.Bool("silent", req.Silent),
		slog.Bool("snapshot_kept", req.Silent),
	)
	s.notify(SyncEvent{Type: EventSyncFailed, SyncID: syncID, Silent: req.Silent, Status: &status, Timestamp: time.Now()})
	return status, err
}

func (s *InventoryService) notify(ev SyncEvent) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.BroadcastSync(ev)
	}
}

// RunPoller issues a silent sync every interval until ctx is cancelled. A zero
// interval returns immediately.
func (s *InventoryService) RunPoller(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sync poller started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sync poller stopped")
			return
		case <-ticker.C:
			// Failures are already logged and kept in status.
			_, _ = s.Sync(infrastructure.WithTraceID(ctx, infrastructure.GenerateTraceID()), SyncRequest{Silent: true})
		}
	}
}

// Status returns the outcome of the latest sync attempt.
func (s *InventoryService) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := s.status
	status.Skipped = append([]source.SkippedTab(nil), s.status.Skipped...)
	return status
}

// Records returns the current snapshot, optionally filtered by a branch
// substring.
func (s *InventoryService) Records(branch string) []inventory.Record {
	s.mu.RLock()
	records := s.snapshot.Records
	s.mu.RUnlock()

	filtered := inventory.FilterByBranch(records, branch)
	out := make([]inventory.Record, len(filtered))
	copy(out, filtered)
	return out
}

// Branches returns per-branch stock totals.
func (s *InventoryService) Branches(query string) []inventory.BranchInventory {
	return inventory.BranchSummaries(s.Records(""), query)
}

// Daily returns the per-date trend, limited to the last window entries when
// window is positive.
func (s *InventoryService) Daily(window int) []inventory.DailyStats {
	trend := inventory.DailyTrend(s.Records(""))
	if window > 0 {
		return trend.Window(window)
	}
	return trend
}

// Metrics returns per-branch flow metrics.
func (s *InventoryService) Metrics() []inventory.BranchMetrics {
	return inventory.BranchMetricsFor(s.Records(""))
}

// Summary returns the dashboard headline figures.
func (s *InventoryService) Summary() inventory.DashboardSummary {
	return inventory.Summarize(s.Records(""), s.opts.UnitValue)
}

// HasCredentialFallback reports whether an unauthenticated request would still
// use the API transport.
func (s *InventoryService) HasCredentialFallback() bool {
	return s.fetcher.Select(source.Credentials{}) == source.ModeAPI
}

func (s *InventoryService) resolveWorkbook(path string) (string, error) {
	if s.workbook == nil {
		return "", errors.NewAppError(errors.ErrTypeValidation, ErrWorkbookDisabled.Error(), ErrWorkbookDisabled)
	}
	if err := ValidateWorkbookPath(path); err != nil {
		return "", err
	}
	if s.opts.WorkbookDir == "" {
		return path, nil
	}
	return ResolveWorkbookPath(s.opts.WorkbookDir, path)
}

// ResolveWorkbookPath resolves path against dir and rejects results outside
// dir. Relative paths are taken relative to dir.
func ResolveWorkbookPath(dir, path string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.NewConfigError("invalid workbook directory", err)
	}
	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.NewAppError(errors.ErrTypeValidation, "workbook must be inside the workbook directory", ErrWorkbookOutsideDir)
	}
	return target, nil
}

// ValidateWorkbookPath rejects workbook paths that are obviously not .xlsx.
func ValidateWorkbookPath(path string) error {
	if path == "" {
		return nil
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return errors.NewAppValidationError("workbook must be an .xlsx file")
	}
	return nil
}
