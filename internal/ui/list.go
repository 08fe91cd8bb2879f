package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"

	"github.com/omarmustafa130/LoomAutomation/internal/models"
)

var (
	_ list.Item = pendingItem{}
)

// pendingItem wraps a staged file name to implement [list.Item].
type pendingItem struct {
	name string
}

func (i pendingItem) FilterValue() string { return i.name }
func (i pendingItem) Title() string       { return i.name }
func (i pendingItem) Description() string { return "waiting for upload" }

func pendingItems(names []string) []list.Item {
	items := make([]list.Item, len(names))
	for i, name := range names {
		items[i] = pendingItem{name: name}
	}
	return items
}

func resultColumns(width int) []table.Column {
	w := max(width-12, 30)
	return []table.Column{
		{Title: "Video Title", Width: w * 3 / 10},
		{Title: "URL", Width: w * 4 / 10},
		{Title: "Embed", Width: w * 3 / 10},
	}
}

func resultRow(rec models.VideoRecord) table.Row {
	embed := rec.DisplayEmbed()
	if rec.HasEmbed() {
		embed = "✓ " + embed
	}
	return table.Row{rec.Title, rec.DisplayURL(), embed}
}
