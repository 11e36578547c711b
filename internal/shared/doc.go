// Package shared holds helpers used across invsync packages that belong to no
// single layer.
//
// The testutil subpackage provides a capturing slog handler for asserting on
// structured log output:
//
//	logger, logs := testutil.NewTestLogger(t)
//	svc := services.NewInventoryService(fetcher, nil, store, opts, logger)
//	...
//	assert.True(t, logs.ContainsMessage("sync completed"))
package shared
