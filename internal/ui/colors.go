package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/omarmustafa130/LoomAutomation/internal/events"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	pane  lipgloss.Style
	focus lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		pane:  border.BorderForeground(lipgloss.Color(h)),
		focus: border.BorderForeground(lipgloss.Color(t)),
	}
}

// notice styles a log line by its level.
func (p *Palette) notice(level events.Kind, text string) string {
	switch level {
	case events.KindError, events.KindEmbedError:
		return p.err.Render(text)
	case events.KindWarning, events.KindPausing:
		return p.warn.Render(text)
	case events.KindComplete:
		return p.ok.Render(text)
	default:
		return text
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
