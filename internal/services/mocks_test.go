package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"invsync/internal/source"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Select(creds source.Credentials) source.Mode {
	return m.Called(creds).Get(0).(source.Mode)
}

func (m *mockFetcher) Fetch(ctx context.Context, creds source.Credentials) (*source.Result, error) {
	args := m.Called(ctx, creds)
	res, _ := args.Get(0).(*source.Result)
	return res, args.Error(1)
}

type mockWorkbook struct {
	mock.Mock
}

func (m *mockWorkbook) Fetch(ctx context.Context, path string) (*source.Result, error) {
	args := m.Called(ctx, path)
	res, _ := args.Get(0).(*source.Result)
	return res, args.Error(1)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []SyncEvent
}

func (n *recordingNotifier) BroadcastSync(ev SyncEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubHub struct{ n, dropped int64 }

func (h stubHub) Stats() map[string]int64 {
	return map[string]int64{"active_clients": h.n, "messages_dropped": h.dropped}
}

type stubStatus struct{ st SyncStatus }

func (s stubStatus) Status() SyncStatus { return s.st }
