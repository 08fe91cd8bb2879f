package events

import (
	"github.com/omarmustafa130/LoomAutomation/internal/models"
)

// Kind identifies an event for display and logging.
type Kind int

const (
	KindDownload Kind = iota
	KindUpload
	KindPendingList
	KindVideoAdded
	KindFileRemoved
	KindComplete
	KindEmbedTotals
	KindEmbedCurrent
	KindClearResults
	KindEmbedSucceeded
	KindEmbedError
	KindError
	KindWarning
	KindInfo
	KindStatus
	KindPausing
)

func (k Kind) String() string {
	switch k {
	case KindDownload:
		return "download"
	case KindUpload:
		return "upload"
	case KindPendingList:
		return "populate_listbox"
	case KindVideoAdded:
		return "add_video"
	case KindFileRemoved:
		return "remove_file"
	case KindComplete:
		return "complete"
	case KindEmbedTotals:
		return "total_embeds"
	case KindEmbedCurrent:
		return "current_embed"
	case KindClearResults:
		return "clear_tree"
	case KindEmbedSucceeded:
		return "embed_success"
	case KindEmbedError:
		return "embed_error"
	case KindError:
		return "error"
	case KindWarning:
		return "warning"
	case KindInfo:
		return "info"
	case KindStatus:
		return "status"
	case KindPausing:
		return "pausing"
	default:
		return ""
	}
}

// Event is the closed set of messages a worker may publish.
type Event interface {
	Kind() Kind
	event()
}

// Progress reports transfer progress of a single file.
//
// Kind is [KindDownload] or [KindUpload]. Percent is 0..100; BytesPerSecond is zero when unknown.
type Progress struct {
	Stage          Kind
	Text           string
	Percent        int
	BytesPerSecond float64
}

// PendingList replaces the displayed staging listing.
type PendingList struct {
	Files []string
}

// VideoAdded reports a row appended to (or completed in) the ledger.
type VideoAdded struct {
	Record models.VideoRecord
}

// FileRemoved reports a staged file that was consumed.
type FileRemoved struct {
	Name string
}

// Complete is the last event published by every worker.
type Complete struct {
	Message string
}

// EmbedTotals announces how many rows an embed run will visit.
type EmbedTotals struct {
	Total int
}

// EmbedCurrent reports the 1-based index of the row being processed.
type EmbedCurrent struct {
	Current int
}

// ClearResults empties the displayed results.
type ClearResults struct{}

// EmbedSucceeded reports a row whose snippet was stored.
type EmbedSucceeded struct {
	Record models.VideoRecord
}

// Notice is a textual message. Level is one of [KindEmbedError], [KindError],
// [KindWarning], [KindInfo], [KindStatus] or [KindPausing].
type Notice struct {
	Level Kind
	Text  string
}

func (e Progress) Kind() Kind     { return e.Stage }
func (PendingList) Kind() Kind    { return KindPendingList }
func (VideoAdded) Kind() Kind     { return KindVideoAdded }
func (FileRemoved) Kind() Kind    { return KindFileRemoved }
func (Complete) Kind() Kind       { return KindComplete }
func (EmbedTotals) Kind() Kind    { return KindEmbedTotals }
func (EmbedCurrent) Kind() Kind   { return KindEmbedCurrent }
func (ClearResults) Kind() Kind   { return KindClearResults }
func (EmbedSucceeded) Kind() Kind { return KindEmbedSucceeded }
func (e Notice) Kind() Kind       { return e.Level }

func (Progress) event()       {}
func (PendingList) event()    {}
func (VideoAdded) event()     {}
func (FileRemoved) event()    {}
func (Complete) event()       {}
func (EmbedTotals) event()    {}
func (EmbedCurrent) event()   {}
func (ClearResults) event()   {}
func (EmbedSucceeded) event() {}
func (Notice) event()         {}

func Info(text string) Notice       { return Notice{Level: KindInfo, Text: text} }
func Warning(text string) Notice    { return Notice{Level: KindWarning, Text: text} }
func Error(text string) Notice      { return Notice{Level: KindError, Text: text} }
func Status(text string) Notice     { return Notice{Level: KindStatus, Text: text} }
func Pausing(text string) Notice    { return Notice{Level: KindPausing, Text: text} }
func EmbedError(text string) Notice { return Notice{Level: KindEmbedError, Text: text} }
