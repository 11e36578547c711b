// Package inventory holds the normalized stock movement record produced by the
// ingestion pipeline and the derived views dashboards build from it.
//
// # Records
//
// A Record is one (date, branch, device) fact carrying inbound, outbound and
// balance quantities. Records are rebuilt on every sync; nothing in this package
// keeps state between calls.
//
// # Views
//
// BranchSummaries, DailyTrend, BranchMetricsFor and Summarize aggregate a record
// list for presentation consumers:
//
//	branches := inventory.BranchSummaries(records, "lagos")
//	trend := inventory.DailyTrend(records).Window(7)
//	summary := inventory.Summarize(records, 800)
package inventory
