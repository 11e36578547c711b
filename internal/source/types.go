package source

import (
	"net/http"
	"strings"
	"time"

	"invsync/internal/errors"
	"invsync/internal/normalize"
)

// Mode identifies the transport a sync used.
type Mode string

const (
	ModeAPI      Mode = "api"
	ModePublic   Mode = "public"
	ModeWorkbook Mode = "workbook"
)

// Tab is one fetched sheet ready for normalization.
type Tab = normalize.Tab

// SkippedTab records a tab that could not be fetched during a best-effort sync.
type SkippedTab struct {
	Name   string           `json:"name"`
	Reason string           `json:"reason"`
	Type   errors.ErrorType `json:"type"`
}

// Result is the outcome of one fetch.
type Result struct {
	Mode    Mode
	Tabs    []Tab
	Skipped []SkippedTab
}

// Credentials are supplied per call and take precedence over the configured
// fallback key.
type Credentials struct {
	APIKey      string
	AccessToken string
}

func (c Credentials) empty() bool {
	return strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.AccessToken) == ""
}

// Config holds everything the transports need. It is passed in explicitly;
// nothing in this package reads the environment.
type Config struct {
	SpreadsheetID string
	// PublicGID selects the tab served by the anonymous CSV export.
	PublicGID string
	// PublicLabel names the single tab of a public fetch.
	PublicLabel string
	// APIKey is the fallback key used when the caller supplies none.
	APIKey string

	// APIEndpoint overrides the Sheets API base URL.
	APIEndpoint string
	// PublicBaseURL is the host serving /spreadsheets/d/{id}/export.
	PublicBaseURL string

	MaxConcurrentTabs int
	RequestsPerSecond float64
	Timeout           time.Duration

	// HTTPClient is used by the public transport. The API transport builds
	// its own authenticated client.
	HTTPClient *http.Client
}

// Default configuration values.
const (
	DefaultPublicBaseURL     = "https://docs.google.com"
	DefaultMaxConcurrentTabs = 4
	DefaultRequestsPerSecond = 5
	DefaultTimeout           = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.PublicLabel == "" {
		c.PublicLabel = "Main Hub"
	}
	if c.PublicGID == "" {
		c.PublicGID = "0"
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = DefaultPublicBaseURL
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
	if c.MaxConcurrentTabs <= 0 {
		c.MaxConcurrentTabs = DefaultMaxConcurrentTabs
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c
}
