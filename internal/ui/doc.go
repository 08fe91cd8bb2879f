// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The screen shows two panes:
//  1. the staging listing: files waiting for upload, which can be renamed before upload
//  2. the ledger results: title, link and embed status of every recorded video
//
// Pipeline operations run on worker goroutines owned by the controller. The [Model] never
// blocks on them: it drains the shared [events.Channel] on a fixed 100ms tick and folds each
// event into its state, so the interface stays responsive while uploads are in flight.
//
// Keys: d fetch, u upload, a fetch+upload, p pause, e embeds (E includes failed rows), s sync,
// r rename, o open link, f folder, tab switch pane, q quit.
package ui
