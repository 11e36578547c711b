package source

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"invsync/internal/errors"
	"invsync/internal/normalize"
	"invsync/internal/tabular"
)

var tracer = otel.Tracer("invsync/source")

// apiFetcher implements Mode A on top of the Sheets v4 client.
type apiFetcher struct {
	cfg     Config
	logger  *slog.Logger
	limiter *rate.Limiter
}

func newAPIFetcher(cfg Config, logger *slog.Logger) *apiFetcher {
	return &apiFetcher{
		cfg:     cfg,
		logger:  logger.With(slog.String("transport", string(ModeAPI))),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.MaxConcurrentTabs),
	}
}

func (f *apiFetcher) clientOptions(creds Credentials) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(creds.AccessToken) != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(creds.AccessToken), TokenType: "Bearer"})
		opts = append(opts, option.WithTokenSource(ts))
	case strings.TrimSpace(creds.APIKey) != "":
		opts = append(opts, option.WithAPIKey(strings.TrimSpace(creds.APIKey)))
	default:
		opts = append(opts, option.WithAPIKey(f.cfg.APIKey))
	}
	if f.cfg.APIEndpoint != "" {
		opts = append(opts, option.WithEndpoint(f.cfg.APIEndpoint))
	}
	return opts
}

func (f *apiFetcher) fetch(ctx context.Context, creds Credentials) (*Result, error) {
	ctx, span := tracer.Start(ctx, "source.api.fetch")
	defer span.End()

	svc, err := sheets.NewService(ctx, f.clientOptions(creds)...)
	if err != nil {
		return nil, errors.NewConfigError("failed to create sheets client", err)
	}

	titles, err := f.tabTitles(ctx, svc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metadata")
		return nil, err
	}
	span.SetAttributes(attribute.Int("sheets.tabs", len(titles)))

	tabs := make([]*Tab, len(titles))
	skipped := make([]*SkippedTab, len(titles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrentTabs)
	for i, title := range titles {
		g.Go(func() error {
			if err := f.limiter.Wait(gctx); err != nil {
				return err
			}
			rows, err := f.tabValues(gctx, svc, title)
			if err != nil {
				f.logger.WarnContext(gctx, "tab fetch failed, skipping",
					slog.String("tab", title),
					slog.String("error", err.Error()),
				)
				skipped[i] = &SkippedTab{Name: title, Reason: err.Error(), Type: errors.TypeOf(err)}
				return nil
			}
			tabs[i] = &Tab{Name: title, Rows: rows, Branch: normalize.BranchFromTab}
			return nil
		})
	}
	// Only context cancellation surfaces here; tab errors are recorded above.
	if err := g.Wait(); err != nil {
		return nil, errors.NewNetworkError("sheet fetch interrupted", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewNetworkError("sheet fetch interrupted", err)
	}

	res := &Result{Mode: ModeAPI}
	for i := range titles {
		if tabs[i] != nil {
			res.Tabs = append(res.Tabs, *tabs[i])
		}
		if skipped[i] != nil {
			res.Skipped = append(res.Skipped, *skipped[i])
		}
	}
	f.logger.InfoContext(ctx, "sheets api fetch complete",
		slog.Int("tabs", len(res.Tabs)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// tabTitles enumerates the data tabs of the spreadsheet in document order.
func (f *apiFetcher) tabTitles(ctx context.Context, svc *sheets.Service) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	meta, err := svc.Spreadsheets.Get(f.cfg.SpreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyAPIError(err, "spreadsheet metadata")
	}

	var titles []string
	for _, sh := range meta.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		if !IsDataTab(sh.Properties.Title) {
			f.logger.DebugContext(ctx, "skipping non-data tab", slog.String("tab", sh.Properties.Title))
			continue
		}
		titles = append(titles, sh.Properties.Title)
	}
	return titles, nil
}

func (f *apiFetcher) tabValues(ctx context.Context, svc *sheets.Service, title string) (tabular.Matrix, error) {
	ctx, span := tracer.Start(ctx, "source.api.tab", trace.WithAttributes(attribute.String("sheets.tab", title)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	resp, err := svc.Spreadsheets.Values.Get(f.cfg.SpreadsheetID, quoteRange(title)).Context(ctx).Do()
	if err != nil {
		err = classifyAPIError(err, fmt.Sprintf("tab %q", title))
		span.RecordError(err)
		span.SetStatus(codes.Error, "values")
		return nil, err
	}
	return tabular.FromValues(resp.Values), nil
}

// quoteRange wraps a tab title in A1 notation quotes so titles with spaces or
// punctuation address the whole sheet.
func quoteRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// classifyAPIError maps a Sheets API failure onto the error taxonomy by HTTP
// status: 401 credential, 403 access, 404 not found, anything else network.
func classifyAPIError(err error, what string) error {
	var gerr *googleapi.Error
	if !stderrors.As(err, &gerr) {
		return errors.NewNetworkError(what+": request failed", err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized || hasReason(gerr, "keyInvalid"):
		return errors.NewCredentialError(what+": credential rejected", err).
			WithStatus(gerr.Code).
			WithRemedy("check or renew the API key or access token")
	case gerr.Code == http.StatusForbidden:
		return errors.NewAccessError(what+": access denied", err).
			WithStatus(gerr.Code).
			WithRemedy("share the spreadsheet with the identity behind the credential")
	case gerr.Code == http.StatusNotFound:
		return errors.NewAppError(errors.ErrTypeNotFound, what+": not found", err).
			WithStatus(gerr.Code).
			WithRemedy("check the spreadsheet id")
	default:
		return errors.NewNetworkError(what+": "+gerr.Message, err).WithStatus(gerr.Code)
	}
}

func hasReason(gerr *googleapi.Error, reason string) bool {
	for _, item := range gerr.Errors {
		if item.Reason == reason {
			return true
		}
	}
	return strings.Contains(gerr.Message, "API key not valid")
}
