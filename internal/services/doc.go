// Package services talks to the systems the pipeline depends on.
//
// # Storage
//
// [StorageLister] lists and downloads files of a storage folder. [DriveService] implements it
// against the Google Drive v3 REST API with a service-account client from [golang.org/x/oauth2/google].
// Requests pass through a [rate.Limiter].
//
// # Browser
//
// [Browser] opens a [Session] on the video platform. A session is split into the small
// interfaces the pipeline stages consume:
//   - [Workspace] : navigation and the upload dialog
//   - [TransferMonitor] : the current upload status, parsed by [ParseTransferStatus]
//   - [EmbedReader] : the published link and its embed snippet
//   - [Crawler] : scrolling and reading the video listing
//
// [LoomBrowser] implements [Browser] with chromedp, restoring cookies saved by [LoomBrowser.Login].
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrNoSession] : no saved cookies
//   - [shared.ErrMissingCredentials] : no service account file
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrElementTimeout] : a page element never appeared
//   - [shared.ErrReferenceMissing] / [shared.ErrEmbedMissing] : extraction produced nothing
package services
