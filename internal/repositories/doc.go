// Package repositories implements SQLite persistence for the video ledger.
//
// [LedgerRepository] is the single writer-facing API. Every method that reads and then writes
// runs inside a [CriticalSection] keyed on the ledger file, and inside one transaction, so
// concurrent pipeline stages (and a second process) never interleave a check with its write.
//
// Rows are keyed by reference URL once it is known; a partial unique index enforces it.
// Rows without a URL (a failed extraction or an abandoned upload) are keyed by title, and
// recording the URL for that title replaces them. A title therefore has at most one url-less row.
//
// Sequence numbers preserve insertion order for listings and exports.
// The [NextSequence] function increments the per-table counter in its sequence table.
package repositories
