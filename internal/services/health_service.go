package services

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"invsync/internal/infrastructure"
)

// Pinger is implemented by stores that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HubStats reports websocket hub counters.
type HubStats interface {
	Stats() map[string]int64
}

// StatusReporter exposes the latest sync status.
type StatusReporter interface {
	Status() SyncStatus
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	store     interface{}
	hub       HubStats
	inventory StatusReporter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. store is pinged when it
// implements Pinger; hub and inventory may be nil.
func NewHealthService(version string, store interface{}, hub HubStats, inventory StatusReporter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		hub:       hub,
		inventory: inventory,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports "ready" only when every dependency is ready.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"store":     hs.checkStore(ctx),
			"websocket": hs.checkWebSocket(),
			"sync":      hs.checkSync(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "dependency not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

func (hs *HealthService) checkStore(ctx context.Context) ServiceHealth {
	p, ok := hs.store.(Pinger)
	if !ok {
		return ServiceHealth{Status: "ready", Message: "in-memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return ServiceHealth{Status: "unavailable", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "disabled"}
	}
	stats := hs.hub.Stats()
	msg := plural(int(stats["active_clients"]), "client")
	if dropped := stats["messages_dropped"]; dropped > 0 {
		msg += ", " + plural(int(dropped), "message") + " dropped"
	}
	return ServiceHealth{Status: "ready", Message: msg}
}

// A failed sync degrades the data, not the process, so it stays ready.
func (hs *HealthService) checkSync() ServiceHealth {
	if hs.inventory == nil {
		return ServiceHealth{Status: "ready"}
	}
	st := hs.inventory.Status()
	switch {
	case st.InProgress:
		return ServiceHealth{Status: "ready", Message: "sync in progress"}
	case st.ErrorType != "":
		return ServiceHealth{Status: "ready", Message: "last sync failed: " + string(st.ErrorType)}
	case st.LastSuccess.IsZero():
		return ServiceHealth{Status: "ready", Message: "no sync yet"}
	default:
		return ServiceHealth{Status: "ready", Message: "last sync " + st.LastSuccess.Format(time.RFC3339)}
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
