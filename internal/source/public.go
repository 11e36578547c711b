package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"invsync/internal/errors"
	"invsync/internal/normalize"
	"invsync/internal/tabular"
)

// maxExportBytes caps the body read from the public export. A larger body is
// an error, never a truncated sheet.
const maxExportBytes = 32 << 20

// publicFetcher implements Mode B against the anonymous CSV export.
type publicFetcher struct {
	cfg      Config
	maxBytes int64
	logger   *slog.Logger
}

func newPublicFetcher(cfg Config, logger *slog.Logger) *publicFetcher {
	return &publicFetcher{
		cfg:      cfg,
		maxBytes: maxExportBytes,
		logger:   logger.With(slog.String("transport", string(ModePublic))),
	}
}

// exportURL builds {base}/spreadsheets/d/{id}/export?format=csv&gid={gid}.
func (f *publicFetcher) exportURL() string {
	q := url.Values{}
	q.Set("format", "csv")
	q.Set("gid", f.cfg.PublicGID)
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?%s", f.cfg.PublicBaseURL, url.PathEscape(f.cfg.SpreadsheetID), q.Encode())
}

func (f *publicFetcher) fetch(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "source.public.fetch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.exportURL(), nil)
	if err != nil {
		return nil, errors.NewConfigError("invalid public export url", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.cfg.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, errors.NewNetworkError("public export request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, errors.NewNetworkError("failed to read public export", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, errors.NewParsingError(fmt.Sprintf("public export exceeds size limit of %d bytes", f.maxBytes), nil).
			WithRemedy("split the tab or configure an API key")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.NewNetworkError(fmt.Sprintf("public export returned %s", resp.Status), nil).
			WithStatus(resp.StatusCode)
	}

	text := string(body)
	if looksLikeHTML(text) {
		msg := "public export returned an HTML page instead of CSV"
		if title := htmlTitle(text); title != "" {
			msg += fmt.Sprintf(" (%q)", title)
		}
		return nil, errors.NewAccessError(msg, nil).
			WithStatus(resp.StatusCode).
			WithRemedy("make the sheet viewable by anyone with the link, or configure an API key")
	}

	rows := tabular.ParseCSV(text)
	f.logger.InfoContext(ctx, "public export fetched",
		slog.Int("rows", len(rows)),
		slog.Int("bytes", len(body)),
	)

	return &Result{
		Mode: ModePublic,
		Tabs: []Tab{{Name: f.cfg.PublicLabel, Rows: rows, Branch: normalize.BranchFromHeader}},
	}, nil
}

func looksLikeHTML(body string) bool {
	lower := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(lower, "<!doctype html") || strings.Contains(lower, "<html")
}

func htmlTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
