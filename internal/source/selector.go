package source

import (
	"context"
	"log/slog"
	"strings"

	"invsync/internal/errors"
	"invsync/internal/infrastructure"
)

// Selector chooses and runs exactly one transport per call.
type Selector struct {
	cfg    Config
	logger *slog.Logger
	api    *apiFetcher
	public *publicFetcher
}

// NewSelector creates a selector for the given configuration.
func NewSelector(cfg Config, logger *slog.Logger) *Selector {
	cfg = cfg.withDefaults()
	logger = infrastructure.WithComponent(logger, "source")
	return &Selector{
		cfg:    cfg,
		logger: logger,
		api:    newAPIFetcher(cfg, logger),
		public: newPublicFetcher(cfg, logger),
	}
}

// Select returns the mode a fetch with creds would use. It has no side effects.
func (s *Selector) Select(creds Credentials) Mode {
	if !creds.empty() || strings.TrimSpace(s.cfg.APIKey) != "" {
		return ModeAPI
	}
	return ModePublic
}

// Fetch runs the selected transport. A Mode A failure is returned as is; the
// public export is never tried in its place.
func (s *Selector) Fetch(ctx context.Context, creds Credentials) (*Result, error) {
	if strings.TrimSpace(s.cfg.SpreadsheetID) == "" {
		return nil, errors.NewConfigError("spreadsheet id is not configured", nil)
	}

	mode := s.Select(creds)
	s.logger.DebugContext(ctx, "transport selected", slog.String("mode", string(mode)))

	if mode == ModeAPI {
		return s.api.fetch(ctx, creds)
	}
	return s.public.fetch(ctx)
}
