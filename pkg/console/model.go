package console

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DeBrosOfficial/hdsview/pkg/session"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

// SearchDebounce is how long the search box must be idle before topics are
// fetched.
const SearchDebounce = 500 * time.Millisecond

// Screen is the panel currently shown.
type Screen int

const (
	ScreenConnect Screen = iota
	ScreenConnecting
	ScreenFailed
	ScreenBrowse
	ScreenTopic
)

type focus int

const (
	focusSearch focus = iota
	focusResults
)

// connectDoneMsg reports a finished Connect.
type connectDoneMsg struct {
	err error
}

// topicsMsg carries a filtered topic list for a search.
type topicsMsg struct {
	search string
	topics []string
	err    error
}

// searchTickMsg fires after the debounce interval. seq identifies the
// keystroke that scheduled it.
type searchTickMsg struct {
	seq int
}

// membersMsg carries the hosts of one topic.
type membersMsg struct {
	topic string
	hosts []string
	err   error
}

// Model is the bubbletea model for the directory console.
type Model struct {
	ctx     context.Context
	session *session.Session

	screen  Screen
	focus   focus
	host    textinput.Model
	search  textinput.Model
	results table.Model
	members table.Model
	spinner spinner.Model

	snapshot    session.Snapshot
	searchSeq   int
	lastSearch  string
	topics      []string
	openTopic   string
	err         error
	width       int
	height      int
	initialHost string
}

// NewModel creates a console model. A non-empty initialHost is connected to
// as soon as the program starts.
func NewModel(ctx context.Context, sess *session.Session, initialHost string) Model {
	host := textinput.New()
	host.Placeholder = "directory host, e.g. hds.example.org"
	host.CharLimit = 256
	host.Width = 50
	host.SetValue(initialHost)
	host.Focus()

	search := textinput.New()
	search.Placeholder = "search topics"
	search.CharLimit = 256
	search.Width = 40

	results := table.New(
		table.WithColumns([]table.Column{{Title: "Topic", Width: 60}}),
		table.WithHeight(12),
	)
	members := table.New(
		table.WithColumns([]table.Column{{Title: "Host", Width: topology.LabelLimit + 2}}),
		table.WithHeight(12),
		table.WithFocused(true),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	screen := ScreenConnect
	if initialHost != "" {
		screen = ScreenConnecting
		host.Blur()
	}

	return Model{
		ctx:         ctx,
		session:     sess,
		screen:      screen,
		host:        host,
		search:      search,
		results:     results,
		members:     members,
		spinner:     sp,
		snapshot:    sess.Snapshot(),
		initialHost: initialHost,
	}
}

// Init starts the cursor blink and, when a host was given, the first connect.
func (m Model) Init() tea.Cmd {
	if m.initialHost == "" {
		return textinput.Blink
	}
	return tea.Batch(m.spinner.Tick, connectCmd(m.ctx, m.session, m.initialHost))
}

// Screen returns the panel currently shown.
func (m Model) Screen() Screen {
	return m.screen
}

// Results returns the topics currently listed.
func (m Model) Results() []string {
	rows := m.results.Rows()
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r[0])
	}
	return out
}

func (m Model) startConnect() (Model, tea.Cmd) {
	host := m.host.Value()
	if host == "" {
		return m, nil
	}
	m.screen = ScreenConnecting
	m.err = nil
	m.host.Blur()
	return m, tea.Batch(m.spinner.Tick, connectCmd(m.ctx, m.session, host))
}

func (m Model) enterBrowse() (Model, tea.Cmd) {
	m.screen = ScreenBrowse
	m.focus = focusSearch
	m.search.Focus()
	m.results.Blur()
	return m, fetchTopicsCmd(m.ctx, m.session, m.search.Value())
}

func (m Model) backToConnect() Model {
	m.screen = ScreenConnect
	m.search.Blur()
	m.host.Focus()
	return m
}
