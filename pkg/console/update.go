package console

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.screen != ScreenConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectDoneMsg:
		m.snapshot = m.session.Snapshot()
		if msg.err != nil {
			m.screen = ScreenFailed
			m.err = msg.err
			m.host.Focus()
			return m, nil
		}
		return m.enterBrowse()

	case searchTickMsg:
		if msg.seq != m.searchSeq {
			return m, nil
		}
		return m, fetchTopicsCmd(m.ctx, m.session, m.search.Value())

	case topicsMsg:
		if msg.search != m.search.Value() {
			return m, nil
		}
		m.err = msg.err
		if msg.err == nil {
			m.lastSearch = msg.search
			m.topics = msg.topics
			rows := make([]table.Row, 0, len(msg.topics))
			for _, t := range msg.topics {
				rows = append(rows, table.Row{clean(t)})
			}
			m.results.SetRows(rows)
			m.results.SetCursor(0)
		}
		return m, nil

	case membersMsg:
		if msg.topic != m.openTopic {
			return m, nil
		}
		m.err = msg.err
		rows := make([]table.Row, 0, len(msg.hosts))
		for _, h := range msg.hosts {
			rows = append(rows, table.Row{clean(topology.Truncate(h))})
		}
		m.members.SetRows(rows)
		m.members.SetCursor(0)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case ScreenConnect, ScreenFailed:
		switch msg.Type {
		case tea.KeyEnter:
			return m.startConnect()
		case tea.KeyEsc:
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.host, cmd = m.host.Update(msg)
		return m, cmd

	case ScreenConnecting:
		return m, nil

	case ScreenBrowse:
		return m.handleBrowseKey(msg)

	case ScreenTopic:
		switch msg.Type {
		case tea.KeyEsc:
			m.screen = ScreenBrowse
			m.openTopic = ""
			m.err = nil
			return m, nil
		}
		var cmd tea.Cmd
		m.members, cmd = m.members.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.backToConnect(), nil
	case tea.KeyTab, tea.KeyDown:
		if m.focus == focusSearch && len(m.results.Rows()) > 0 {
			m.focus = focusResults
			m.search.Blur()
			m.results.Focus()
			return m, nil
		}
		if msg.Type == tea.KeyTab {
			m.focus = focusSearch
			m.results.Blur()
			m.search.Focus()
			return m, nil
		}
	case tea.KeyEnter:
		if m.focus == focusResults {
			i := m.results.Cursor()
			if i < 0 || i >= len(m.topics) {
				return m, nil
			}
			m.screen = ScreenTopic
			m.openTopic = m.topics[i]
			m.members.SetRows(nil)
			m.err = nil
			return m, fetchMembersCmd(m.ctx, m.session, m.openTopic)
		}
		return m, nil
	}

	if m.focus == focusResults {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		m.searchSeq++
		return m, tea.Batch(cmd, debounceCmd(m.searchSeq))
	}
	return m, cmd
}
