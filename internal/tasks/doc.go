// Package tasks runs the upload pipeline with real-time progress reporting.
//
// # Stages
//
//  1. [Fetcher] : lists a storage folder and downloads its videos into the staging directory
//  2. [Uploader] : moves every staged file through the upload state machine
//     - a fresh browser session per attempt, at most [UploadOpts.MaxAttempts] attempts per file
//     - a progress heartbeat aborts an attempt that shows no change for [UploadOpts.StuckThreshold]
//     - the [PauseToken] is checked before every file and at every poll
//  3. [EmbedExtractor] : backfills embed snippets for ledger rows that lack one
//  4. [Reconciler] : crawls the workspace listing and appends videos missing from the ledger
//
// # Controller
//
// [Controller] validates preconditions synchronously, then runs each operation on its own
// goroutine. Every worker ends by publishing [events.Complete], preceded by an error notice
// when it failed.
//
// # Progress Reporting
//
// Stages publish to an [events.Publisher], which never blocks. Time is read through [Clock] so
// tests drive the monitoring loop without sleeping.
package tasks
