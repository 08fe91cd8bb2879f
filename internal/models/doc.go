// Package models defines the domain entities of the upload pipeline.
//
// The package contains two categories of types:
//
// 1. Persistent Entities: rows of the ledger
//   - [VideoRecord] : one published (or failed) video with its reference URL and embed snippet
//   - [RecordStatus] : where a record sits in the embed and upload lifecycle
//
// 2. Transient Values: state owned by a single pipeline run
//   - [PendingItem] : one staged file waiting for upload
//   - [RemoteFile] : one file listed in the storage folder
//   - [ListedVideo] : one video discovered in the workspace listing
//   - [UploadAttempt] : bookkeeping for the item currently being uploaded
//
// [VideoRecord] implements the [Model] interface providing ID, timestamps, and validation.
package models
