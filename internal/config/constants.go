package config

import "time"

// Application constants
const (
	AppName    = "invsync"
	AppVersion = "1.0.0"

	MainHubLabel          = "Main Hub"
	DefaultCompanyName    = "Inventory Hub"
	DefaultCurrencySymbol = "₦"
	DefaultUnitValue      = 250000

	DefaultPublicBaseURL     = "https://docs.google.com"
	DefaultMaxConcurrentTabs = 4
	DefaultSheetsRPS         = 5
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultSyncTimeout       = 2 * time.Minute

	// Sync triggers per second accepted by the HTTP API.
	DefaultSyncRateLimit = 0.2
	DefaultSyncBurst     = 3

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)
