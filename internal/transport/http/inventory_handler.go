package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "invsync/internal/errors"
	"invsync/internal/exporter"
	"invsync/internal/infrastructure"
	"invsync/internal/inventory"
	"invsync/internal/middleware"
	"invsync/internal/services"
	"invsync/internal/source"
)

const maxQueryLen = 200

// InventoryService is the part of services.InventoryService the handlers use.
type InventoryService interface {
	Sync(ctx context.Context, req services.SyncRequest) (services.SyncStatus, error)
	Status() services.SyncStatus
	Records(branch string) []inventory.Record
	Branches(query string) []inventory.BranchInventory
	Daily(window int) []inventory.DailyStats
	Metrics() []inventory.BranchMetrics
	Summary() inventory.DashboardSummary
}

// DashboardInfo labels the summary response.
type DashboardInfo struct {
	CompanyName    string `json:"companyName"`
	CurrencySymbol string `json:"currencySymbol"`
}

// SyncRequestBody is the payload of POST /sync. Credentials may also be sent
// as X-Api-Key or Authorization: Bearer headers.
type SyncRequestBody struct {
	APIKey      string `json:"apiKey" validate:"omitempty,max=256"`
	AccessToken string `json:"accessToken" validate:"omitempty,max=4096"`
	Silent      bool   `json:"silent"`
	Workbook    string `json:"workbook" validate:"omitempty,xlsxpath"`
}

// RecordsResponse wraps the records of the snapshot.
type RecordsResponse struct {
	Records  []inventory.Record `json:"records"`
	Count    int                `json:"count"`
	LastSync *time.Time         `json:"lastSync,omitempty"`
}

// SummaryResponse combines the headline figures with the sync status.
type SummaryResponse struct {
	inventory.DashboardSummary
	DashboardInfo
	Status services.SyncStatus `json:"status"`
}

// InventoryHandler serves the inventory API.
type InventoryHandler struct {
	service      InventoryService
	dashboard    DashboardInfo
	validation   *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	syncLimiter  *middleware.RateLimiter
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
	now          func() time.Time
}

// NewInventoryHandler creates the handler. syncLimiter may be nil.
func NewInventoryHandler(service InventoryService, dashboard DashboardInfo, syncLimiter *middleware.RateLimiter, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *InventoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryHandler{
		service:      service,
		dashboard:    dashboard,
		validation:   middleware.NewValidationMiddleware(logger, errorHandler),
		query:        middleware.NewQueryParamValidator(errorHandler),
		syncLimiter:  syncLimiter,
		errorHandler: errorHandler,
		logger:       infrastructure.WithComponent(logger, "inventory_handler"),
		now:          time.Now,
	}
}

// Routes returns the inventory routes
func (h *InventoryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/records", h.GetRecords)
		r.Get("/branches", h.GetBranches)
		r.Get("/daily", h.GetDaily)
		r.Get("/metrics", h.GetMetrics)
		r.Get("/summary", h.GetSummary)
		r.Get("/status", h.GetStatus)

		r.Group(func(r chi.Router) {
			if h.syncLimiter != nil {
				r.Use(h.syncLimiter.Handler)
			}
			r.Use(h.validation.LimitBody)
			r.Post("/sync", h.PostSync)
		})
	})

	r.Get("/export.csv", h.ExportCSV)
	r.Get("/export.xlsx", h.ExportXLSX)
	return r
}

// GetRecords handles GET /records
func (h *InventoryHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.query.ValidateString(w, r, "branch", maxQueryLen)
	if !ok {
		return
	}
	records := h.service.Records(branch)
	if records == nil {
		records = []inventory.Record{}
	}

	resp := RecordsResponse{Records: records, Count: len(records)}
	if st := h.service.Status(); !st.LastSuccess.IsZero() {
		resp.LastSync = &st.LastSuccess
	}
	render.JSON(w, r, resp)
}

// GetBranches handles GET /branches
func (h *InventoryHandler) GetBranches(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query.ValidateString(w, r, "q", maxQueryLen)
	if !ok {
		return
	}
	branches := h.service.Branches(q)
	if branches == nil {
		branches = []inventory.BranchInventory{}
	}
	render.JSON(w, r, branches)
}

// GetDaily handles GET /daily
func (h *InventoryHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	window, ok := h.query.ValidateInt(w, r, "window", 0, 3650, 0)
	if !ok {
		return
	}
	trend := h.service.Daily(window)
	if trend == nil {
		trend = []inventory.DailyStats{}
	}
	render.JSON(w, r, trend)
}

// GetMetrics handles GET /metrics
func (h *InventoryHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.service.Metrics()
	if metrics == nil {
		metrics = []inventory.BranchMetrics{}
	}
	render.JSON(w, r, metrics)
}

// GetSummary handles GET /summary
func (h *InventoryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, SummaryResponse{
		DashboardSummary: h.service.Summary(),
		DashboardInfo:    h.dashboard,
		Status:           h.service.Status(),
	})
}

// GetStatus handles GET /status
func (h *InventoryHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}

// PostSync handles POST /sync
func (h *InventoryHandler) PostSync(w http.ResponseWriter, r *http.Request) {
	var body SyncRequestBody
	if err := h.validation.Decode(r, &body); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	creds := source.Credentials{APIKey: body.APIKey, AccessToken: body.AccessToken}
	if creds.APIKey == "" {
		creds.APIKey = strings.TrimSpace(r.Header.Get("X-Api-Key"))
	}
	if creds.AccessToken == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			creds.AccessToken = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
	}

	h.logger.InfoContext(r.Context(), "sync requested",
		slog.Bool("silent", body.Silent),
		slog.Bool("caller_api_key", creds.APIKey != ""),
		slog.Bool("caller_token", creds.AccessToken != ""),
		slog.Bool("workbook", body.Workbook != ""),
	)

	status, err := h.service.Sync(r.Context(), services.SyncRequest{
		Credentials: creds,
		Silent:      body.Silent,
		Workbook:    body.Workbook,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, status)
}

// ExportCSV handles GET /export.csv
func (h *InventoryHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.query.ValidateString(w, r, "branch", maxQueryLen)
	if !ok {
		return
	}
	records := h.service.Records(branch)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", h.attachment("csv"))
	if err := exporter.WriteRecords(w, records, exporter.WriteOptions{BOMPrefix: true}); err != nil {
		// Headers are already sent; only log.
		h.logger.ErrorContext(r.Context(), "csv export failed", slog.String("error", err.Error()))
	}
}

// ExportXLSX handles GET /export.xlsx
func (h *InventoryHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	branch, ok := h.query.ValidateString(w, r, "branch", maxQueryLen)
	if !ok {
		return
	}
	records := h.service.Records(branch)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", h.attachment("xlsx"))
	if err := exporter.WriteWorkbook(w, records); err != nil {
		h.logger.ErrorContext(r.Context(), "xlsx export failed", slog.String("error", err.Error()))
	}
}

func (h *InventoryHandler) attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="inventory-%s.%s"`, h.now().Format("20060102"), ext)
}
