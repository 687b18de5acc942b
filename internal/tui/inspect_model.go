package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/storecache/internal/cache"
)

// Default dimensions for the inspect model.
const (
	defaultWidth  = 80
	defaultHeight = 20

	// chromeHeight is the number of rows taken by the title and help line.
	chromeHeight = 4
)

// ViewState is the current screen of the inspect model.
type ViewState int

const (
	// ViewStateList shows the entry table.
	ViewStateList ViewState = iota
	// ViewStateDetail shows one entry's payload.
	ViewStateDetail
	// ViewStateQuitting indicates the program is exiting.
	ViewStateQuitting
)

// EntrySource is the part of the cache the inspect model needs.
type EntrySource interface {
	Entries() []cache.Entry
	Delete(key string)
	Now() time.Time
}

// InspectModel is the Bubble Tea model for browsing live cache entries.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type InspectModel struct {
	source  EntrySource
	entries []cache.Entry
	table   table.Model

	state  ViewState
	status string

	width  int
	height int
}

// NewInspectModel creates an inspect model over source.
func NewInspectModel(source EntrySource) InspectModel {
	m := InspectModel{
		source: source,
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.reload()
	return m
}

// Init initializes the model (Bubble Tea interface).
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(m.tableHeight())
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m InspectModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.state = ViewStateQuitting
		return m, tea.Quit
	}

	if m.state == ViewStateDetail {
		if msg.String() == "esc" || msg.String() == "enter" || msg.String() == "backspace" {
			m.state = ViewStateList
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		if _, ok := m.Selected(); ok {
			m.state = ViewStateDetail
		}
		return m, nil
	case "r":
		m.reload()
		m.status = fmt.Sprintf("refreshed: %d entries", len(m.entries))
		return m, nil
	case "d":
		if e, ok := m.Selected(); ok {
			m.source.Delete(e.Key)
			m.reload()
			m.status = "deleted " + e.Key
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the current screen (Bubble Tea interface).
func (m InspectModel) View() string {
	if m.state == ViewStateQuitting {
		return ""
	}

	if m.state == ViewStateDetail {
		if e, ok := m.Selected(); ok {
			return RenderEntryDetail(e, m.source.Now(), m.width) + "\n" +
				MutedStyle.Render("enter/esc: back • q: quit")
		}
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("storecache: %d live entries", len(m.entries))))
	sb.WriteString("\n\n")
	if len(m.entries) == 0 {
		sb.WriteString(MutedStyle.Render("cache is empty"))
	} else {
		sb.WriteString(m.table.View())
	}
	sb.WriteString("\n")
	if m.status != "" {
		sb.WriteString(WarningStyle.Render(m.status))
		sb.WriteString("\n")
	}
	sb.WriteString(MutedStyle.Render("↑/↓: move • enter: details • d: delete • r: refresh • q: quit"))
	return sb.String()
}

// Selected returns the entry under the cursor.
func (m InspectModel) Selected() (cache.Entry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return cache.Entry{}, false
	}
	return m.entries[i], true
}

// State returns the current view state.
func (m InspectModel) State() ViewState {
	return m.state
}

func (m *InspectModel) reload() {
	m.entries = m.source.Entries()
	cursor := m.table.Cursor()
	m.table = NewEntryTable(m.entries, m.source.Now(), m.tableHeight())
	if cursor >= len(m.entries) {
		cursor = len(m.entries) - 1
	}
	if cursor > 0 {
		m.table.SetCursor(cursor)
	}
}

func (m InspectModel) tableHeight() int {
	return max(m.height-chromeHeight, 1)
}
