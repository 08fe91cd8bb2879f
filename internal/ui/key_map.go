package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	fetch     key.Binding
	upload    key.Binding
	auto      key.Binding
	pause     key.Binding
	embeds    key.Binding
	retry     key.Binding
	sync      key.Binding
	rename    key.Binding
	open      key.Binding
	folder    key.Binding
	switchTab key.Binding
	enter     key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		fetch:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		auto:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "download+upload")),
		pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		embeds:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "embeds")),
		retry:     key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "retry failed embeds")),
		sync:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		rename:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open link")),
		folder:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "folder")),
		switchTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.fetch, k.upload, k.auto, k.pause, k.embeds, k.sync, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.fetch, k.upload, k.auto, k.pause},
		{k.embeds, k.retry, k.sync},
		{k.rename, k.open, k.folder, k.switchTab},
		{k.quit},
	}
}
