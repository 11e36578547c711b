// Package normalize turns raw tab matrices into consolidated inventory records.
//
// The work happens in four steps, each usable on its own:
//
//	schema, ok := normalize.InferSchema(rows)        // header row, product and remarks columns
//	c := normalize.Classify("1/5 Inbound")           // header text -> kind + date
//	candidates := normalize.NormalizeTab(tab)        // one candidate per qualifying cell
//	records := normalize.Consolidate(candidates)     // one record per (date, branch, device)
//
// Records wraps the steps for every tab of a sync.
//
// A tab without a recognizable product column contributes nothing. That is not
// an error, the tab simply is not data shaped. Cell level anomalies degrade to a
// zero quantity or the Recent date instead of dropping the row.
package normalize
