// Package app wires configuration, logging, telemetry, the snapshot store,
// the sheet transports, the websocket hub and the HTTP API into one
// Application and manages its lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, YAML file, INV_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Open the snapshot store (memory or postgres)
//	4. Start the websocket hub and build the inventory service
//	5. Mount the API, health and metrics routes
//
// Start restores the last persisted snapshot, optionally runs a silent sync,
// starts the poller and serves HTTP. Stop shuts the listener down, then the
// hub, the store and the telemetry providers.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
