package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgOpened
)

// TickInterval is how often the event channel is drained.
const TickInterval = 100 * time.Millisecond

// tickMsg is the constructor for [MsgTick]
func tickMsg(at time.Time) Msg {
	return Msg{kind: MsgTick, data: at}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(url string, err error) Msg {
	return Msg{
		kind: MsgOpened,
		data: struct {
			url string
			err error
		}{url, err},
	}
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(at time.Time) tea.Msg { return tickMsg(at) })
}
