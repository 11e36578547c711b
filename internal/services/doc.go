// Package services implements the business logic between the HTTP handlers
// and the spreadsheet sources.
//
// InventoryService owns the current inventory snapshot. A sync selects a
// transport, fetches every data tab, normalizes and consolidates the rows and
// replaces the snapshot in one step. Identical concurrent sync requests share
// a single run; distinct ones queue behind it.
//
// Failure policy:
//
//	- a failed non-silent sync clears the snapshot
//	- a failed silent (background) sync keeps the previous snapshot
//
// In both cases the status reports the error type and its remedy.
//
// HealthService reports liveness and readiness for the snapshot store and the
// websocket hub.
package services
