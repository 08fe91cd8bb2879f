package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/omarmustafa130/LoomAutomation/internal/events"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

// Controller starts pipeline operations. [tasks.Controller] implements it.
type Controller interface {
	Fetch(ctx context.Context, folderID, credentialsFile string) error
	Upload(ctx context.Context) error
	FetchThenUpload(ctx context.Context, folderID, credentialsFile string) error
	GenerateEmbeds(ctx context.Context, includeTerminal bool) error
	Sync(ctx context.Context) error
	Pause()
	Rename(oldName, newName string) (string, error)
	Refresh()
	Config() shared.Config
}

// Source is the drained side of the event bridge.
type Source interface {
	Drain() []events.Event
}

// InputMode selects what keystrokes edit.
type InputMode int

const (
	NormalMode InputMode = iota
	RenameMode
	FolderMode
)

// Pane is the focused half of the screen.
type Pane int

const (
	PendingPane Pane = iota
	ResultsPane
)

const maxLogLines = 6

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	controller Controller
	source     Source
	openURL    func(string) error

	width  int
	height int
	mode   InputMode
	pane   Pane
	busy   bool

	folderID    string
	credentials string
	renaming    string
	afterFolder func() tea.Cmd

	pending  list.Model
	results  table.Model
	records  []models.VideoRecord
	progress progress.Model
	percent  float64
	input    textinput.Model
	status   string
	logs     []string

	embedTotal   int
	embedCurrent int

	help help.Model
	keys keyMap
}

// ModelOpts contains the dependencies of a [Model].
type ModelOpts struct {
	Controller Controller
	Source     Source
	Records    []models.VideoRecord    // ledger rows shown at start
	OpenURL    func(link string) error // defaults to [shared.OpenInSystemBrowser]
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenInSystemBrowser
	}

	cfg := opts.Controller.Config()

	pending := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	pending.Title = "Staged videos"
	pending.SetShowHelp(false)
	pending.SetFilteringEnabled(false)

	results := table.New(table.WithColumns(resultColumns(80)), table.WithHeight(10))

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 256
	input.Width = 40

	m := &Model{
		ctx:         ctx,
		controller:  opts.Controller,
		source:      opts.Source,
		openURL:     opts.OpenURL,
		folderID:    cfg.FolderID,
		credentials: cfg.CredentialsFile,
		pending:     pending,
		results:     results,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		input:       input,
		status:      "Ready",
		help:        help.New(),
		keys:        newKeyMap(),
	}
	for _, rec := range opts.Records {
		m.upsertRecord(rec)
	}
	m.setPane(PendingPane)
	return m
}

// Init starts the drain tick and asks for the current staging listing.
func (m *Model) Init() tea.Cmd {
	m.controller.Refresh()
	return tick()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgTick:
			for _, e := range m.source.Drain() {
				m.apply(e)
			}
			return m, tick()
		case MsgOpened:
			data := msg.data.(struct {
				url string
				err error
			})
			if data.err != nil {
				m.log(events.KindError, fmt.Sprintf("Couldn't open %s: %v", data.url, data.err))
			}
			return m, nil
		}

	case tea.KeyMsg:
		switch m.mode {
		case RenameMode, FolderMode:
			return m.handleInputKeys(msg)
		default:
			return m.handleKeys(msg)
		}
	}

	return m, nil
}

// apply folds one worker event into the model.
func (m *Model) apply(e events.Event) {
	switch e := e.(type) {
	case events.Progress:
		m.percent = float64(e.Percent) / 100
		m.status = e.Text
		if e.BytesPerSecond > 0 {
			m.status = fmt.Sprintf("%s (%s/s)", e.Text, formatBytes(e.BytesPerSecond))
		}
	case events.PendingList:
		m.pending.SetItems(pendingItems(e.Files))
	case events.VideoAdded:
		m.upsertRecord(e.Record)
	case events.FileRemoved:
		m.removePending(e.Name)
	case events.Complete:
		m.busy = false
		m.status = e.Message
		m.log(events.KindComplete, e.Message)
	case events.EmbedTotals:
		m.embedTotal, m.embedCurrent, m.percent = e.Total, 0, 0
		m.status = fmt.Sprintf("Generating embeds for %d videos", e.Total)
	case events.EmbedCurrent:
		m.embedCurrent = e.Current
		if m.embedTotal > 0 {
			m.percent = float64(e.Current) / float64(m.embedTotal)
		}
		m.status = fmt.Sprintf("Embed %d of %d", e.Current, m.embedTotal)
	case events.ClearResults:
		m.records = nil
		m.results.SetRows(nil)
	case events.EmbedSucceeded:
		m.upsertRecord(e.Record)
	case events.Notice:
		switch e.Level {
		case events.KindStatus:
			m.status = e.Text
		case events.KindPausing:
			m.status = e.Text
			m.log(e.Level, e.Text)
		default:
			m.log(e.Level, e.Text)
		}
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.busy {
			m.controller.Pause()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.switchTab):
		if m.pane == PendingPane {
			m.setPane(ResultsPane)
		} else {
			m.setPane(PendingPane)
		}
		return m, nil
	case key.Matches(msg, m.keys.fetch):
		return m, m.withFolder(func() tea.Cmd {
			return m.start("download", func() error { return m.controller.Fetch(m.ctx, m.folderID, m.credentials) })
		})
	case key.Matches(msg, m.keys.auto):
		return m, m.withFolder(func() tea.Cmd {
			return m.start("download+upload", func() error { return m.controller.FetchThenUpload(m.ctx, m.folderID, m.credentials) })
		})
	case key.Matches(msg, m.keys.upload):
		return m, m.start("upload", func() error { return m.controller.Upload(m.ctx) })
	case key.Matches(msg, m.keys.embeds):
		return m, m.start("embeds", func() error { return m.controller.GenerateEmbeds(m.ctx, false) })
	case key.Matches(msg, m.keys.retry):
		return m, m.start("embeds", func() error { return m.controller.GenerateEmbeds(m.ctx, true) })
	case key.Matches(msg, m.keys.sync):
		return m, m.start("sync", func() error { return m.controller.Sync(m.ctx) })
	case key.Matches(msg, m.keys.pause):
		if m.busy {
			m.controller.Pause()
			m.status = "Pausing after the current step..."
		}
		return m, nil
	case key.Matches(msg, m.keys.folder):
		m.afterFolder = nil
		return m, m.prompt(FolderMode, m.folderID)
	case key.Matches(msg, m.keys.rename):
		item, ok := m.pending.SelectedItem().(pendingItem)
		if !ok {
			return m, nil
		}
		m.renaming = item.name
		return m, m.prompt(RenameMode, strings.TrimSuffix(item.name, filepath.Ext(item.name)))
	case key.Matches(msg, m.keys.open):
		return m, m.openSelected()
	}

	var cmd tea.Cmd
	if m.pane == PendingPane {
		m.pending, cmd = m.pending.Update(msg)
	} else {
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.closePrompt()
		return m, nil
	case key.Matches(msg, m.keys.enter):
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.closePrompt()
		return m, m.submit(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(mode InputMode, value string) tea.Cmd {
	switch mode {
	case FolderMode:
		if value == "" {
			return nil
		}
		m.folderID = value
		m.log(events.KindInfo, "Folder set to "+value)
		if next := m.afterFolder; next != nil {
			m.afterFolder = nil
			return next()
		}
	case RenameMode:
		renamed, err := m.controller.Rename(m.renaming, value)
		if err != nil {
			m.log(events.KindError, fmt.Sprintf("Rename failed: %v", err))
			return nil
		}
		m.log(events.KindInfo, fmt.Sprintf("Renamed %s to %s", m.renaming, renamed))
	}
	return nil
}

// withFolder runs next now, or after prompting when no folder is set.
func (m *Model) withFolder(next func() tea.Cmd) tea.Cmd {
	if m.folderID != "" {
		return next()
	}
	m.afterFolder = next
	return m.prompt(FolderMode, "")
}

// start launches an operation unless one is running. Precondition errors are shown in the log.
func (m *Model) start(name string, op func() error) tea.Cmd {
	if m.busy {
		m.log(events.KindWarning, "An operation is already running")
		return nil
	}
	if err := op(); err != nil {
		m.log(events.KindError, fmt.Sprintf("Couldn't start %s: %v", name, err))
		return nil
	}
	m.busy = true
	m.percent = 0
	m.status = fmt.Sprintf("Starting %s...", name)
	return nil
}

func (m *Model) openSelected() tea.Cmd {
	var url string
	if m.pane == ResultsPane {
		if row := m.results.SelectedRow(); len(row) > 1 {
			url = row[1]
		}
	}
	if !strings.HasPrefix(url, "http") {
		return nil
	}
	open := m.openURL
	return func() tea.Msg {
		return openedMsg(url, open(url))
	}
}

func (m *Model) prompt(mode InputMode, value string) tea.Cmd {
	m.mode = mode
	m.input.SetValue(value)
	m.input.CursorEnd()
	switch mode {
	case FolderMode:
		m.input.Placeholder = "Drive folder ID"
	case RenameMode:
		m.input.Placeholder = "new name (extension is kept)"
	}
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.mode = NormalMode
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) setPane(p Pane) {
	m.pane = p
	if p == ResultsPane {
		m.results.Focus()
	} else {
		m.results.Blur()
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	half := max(width/2-4, 20)
	body := max(height-14, 5)
	m.pending.SetSize(half, body)
	m.results.SetColumns(resultColumns(half))
	m.results.SetHeight(body - 2)
	m.progress.Width = max(width-10, 20)
}

func (m *Model) upsertRecord(rec models.VideoRecord) {
	key := func(r models.VideoRecord) string {
		if r.ReferenceURL != "" {
			return r.ReferenceURL
		}
		return "title:" + r.Title
	}

	found := false
	for i := range m.records {
		if key(m.records[i]) == key(rec) {
			m.records[i] = rec
			found = true
			break
		}
	}
	if !found {
		m.records = append(m.records, rec)
	}

	rows := make([]table.Row, len(m.records))
	for i, r := range m.records {
		rows[i] = resultRow(r)
	}
	m.results.SetRows(rows)
}

func (m *Model) removePending(name string) {
	for i, item := range m.pending.Items() {
		if p, ok := item.(pendingItem); ok && p.name == name {
			m.pending.RemoveItem(i)
			return
		}
	}
}

func (m *Model) log(level events.Kind, text string) {
	m.logs = append(m.logs, styles.notice(level, text))
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
}

// View renders the UI based on the current state.
func (m *Model) View() string {
	title := styles.title.Render("Loom Upload Pipeline")

	folder := m.folderID
	if folder == "" {
		folder = "(not set, press f)"
	}
	header := fmt.Sprintf("%s\nFolder: %s", title, folder)

	left, right := styles.pane, styles.pane
	if m.pane == PendingPane {
		left = styles.focus
	} else {
		right = styles.focus
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(m.pending.View()),
		right.Render(m.results.View()),
	)

	state := m.status
	if m.busy {
		state = styles.ok.Render("● ") + state
	}
	bar := fmt.Sprintf("%s\n%s", m.progress.ViewAs(m.percent), state)

	var prompt string
	switch m.mode {
	case FolderMode:
		prompt = "\nFolder ID:\n" + m.input.View()
	case RenameMode:
		prompt = fmt.Sprintf("\nRename %s:\n%s", m.renaming, m.input.View())
	}

	logs := strings.Join(m.logs, "\n")
	helpView := styles.help.Render(m.help.View(m.keys))

	return strings.Join([]string{header, body, bar, prompt, logs, helpView}, "\n")
}

func formatBytes(n float64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%.0f B", n)
	}
	div, exp := float64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", n/div, "KMGT"[exp])
}
