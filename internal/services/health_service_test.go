package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invsync/internal/errors"
	"invsync/internal/shared/testutil"
	"invsync/internal/store"
)

func TestHealthServiceReadiness(t *testing.T) {
	tests := []struct {
		name       string
		store      interface{}
		hub        HubStats
		status     SyncStatus
		wantStatus string
		wantStore  string
	}{
		{
			name:       "memory store is always ready",
			store:      store.NewMemoryStore(),
			hub:        stubHub{n: 2},
			wantStatus: "ready",
			wantStore:  "ready",
		},
		{
			name:       "reachable database",
			store:      stubPinger{},
			wantStatus: "ready",
			wantStore:  "ready",
		},
		{
			name:       "database down",
			store:      stubPinger{err: fmt.Errorf("connection refused")},
			wantStatus: "not_ready",
			wantStore:  "unavailable",
		},
		{
			name:       "failed sync stays ready",
			store:      store.NewMemoryStore(),
			status:     SyncStatus{ErrorType: errors.ErrTypeAccess},
			wantStatus: "ready",
			wantStore:  "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			hs := NewHealthService("1.0.0", tt.store, tt.hub, stubStatus{st: tt.status}, logger)

			got := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantStore, got.Services["store"].Status)
			assert.Equal(t, "1.0.0", got.Version)
		})
	}
}

func TestHealthServiceMessages(t *testing.T) {
	hs := NewHealthService("1.0.0", nil, stubHub{n: 1}, stubStatus{st: SyncStatus{ErrorType: errors.ErrTypeCredential}}, nil)
	got := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "1 client", got.Services["websocket"].Message)
	assert.Equal(t, "last sync failed: CREDENTIAL", got.Services["sync"].Message)

	hs = NewHealthService("1.0.0", nil, stubHub{n: 3, dropped: 2}, stubStatus{st: SyncStatus{LastSuccess: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}}, nil)
	got = hs.ReadinessCheck(context.Background())
	assert.Equal(t, "3 clients, 2 messages dropped", got.Services["websocket"].Message)
	assert.Equal(t, "last sync 2026-01-02T03:04:05Z", got.Services["sync"].Message)
}

func TestHealthServiceLiveness(t *testing.T) {
	hs := NewHealthService("1.0.0", nil, nil, nil, nil)
	got := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", got.Status)
	assert.Contains(t, got.Runtime, "go_version")
	assert.Equal(t, "1.0.0", hs.Version()["version"])
}
