// Package source fetches raw spreadsheet tabs for ingestion.
//
// Three transports produce the same []Tab shape:
//
//   - Mode A (api): the authenticated Sheets v4 API, used when an API key or
//     access token is available. Every data tab is fetched concurrently and
//     a failing tab is skipped rather than failing the sync.
//   - Mode B (public): the anonymous CSV export of one published tab.
//   - Mode W (workbook): a local .xlsx file, chosen explicitly by the caller.
//
// The Selector picks between A and B from the credentials alone. It never
// falls back from one mode to the other.
package source
