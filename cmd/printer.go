package main

import (
	"fmt"
	"io"

	"github.com/omarmustafa130/LoomAutomation/internal/events"
)

// eventPrinter renders worker events as log lines for the headless commands.
//
// Progress lines are printed at most once per ten-percent step of a file.
type eventPrinter struct {
	out      io.Writer
	lastText string
	lastStep int
}

func (p *eventPrinter) print(e events.Event) {
	switch e := e.(type) {
	case events.Progress:
		step := e.Percent / 10
		if e.Text == p.lastText && step == p.lastStep {
			return
		}
		p.lastText, p.lastStep = e.Text, step
		if e.BytesPerSecond > 0 {
			p.line("%s %3d%% %s (%s/s)", e.Stage, e.Percent, e.Text, formatBytes(int64(e.BytesPerSecond)))
		} else {
			p.line("%s %3d%% %s", e.Stage, e.Percent, e.Text)
		}
	case events.VideoAdded:
		p.line("✓ %s %s", e.Record.Title, e.Record.DisplayURL())
	case events.EmbedSucceeded:
		p.line("✓ embed stored for %s", e.Record.Title)
	case events.FileRemoved:
		p.line("  removed %s", e.Name)
	case events.EmbedTotals:
		p.line("%d videos need an embed code", e.Total)
	case events.EmbedCurrent:
		p.line("embed %d", e.Current)
	case events.Notice:
		switch e.Level {
		case events.KindError, events.KindEmbedError:
			p.line("✗ %s", e.Text)
		case events.KindWarning, events.KindPausing:
			p.line("! %s", e.Text)
		default:
			p.line("  %s", e.Text)
		}
	case events.Complete:
		p.line("%s", e.Message)
	}
}

func (p *eventPrinter) line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
