package console

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DeBrosOfficial/hdsview/pkg/session"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

func connectCmd(ctx context.Context, sess *session.Session, host string) tea.Cmd {
	return func() tea.Msg {
		return connectDoneMsg{err: sess.Connect(ctx, host)}
	}
}

func debounceCmd(seq int) tea.Cmd {
	return tea.Tick(SearchDebounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq}
	})
}

// fetchTopicsCmd lists topics from the directory and filters them by
// substring.
func fetchTopicsCmd(ctx context.Context, sess *session.Session, search string) tea.Cmd {
	return func() tea.Msg {
		client, err := sess.Client()
		if err != nil {
			return topicsMsg{search: search, err: err}
		}
		topics, err := client.ListTopics(ctx)
		if err != nil {
			return topicsMsg{search: search, err: err}
		}
		return topicsMsg{search: search, topics: topology.Filter(topics, search)}
	}
}

func fetchMembersCmd(ctx context.Context, sess *session.Session, topic string) tea.Cmd {
	return func() tea.Msg {
		client, err := sess.Client()
		if err != nil {
			return membersMsg{topic: topic, err: err}
		}
		m, err := client.GetTopicMembership(ctx, topic)
		if err != nil {
			return membersMsg{topic: topic, err: err}
		}
		return membersMsg{topic: topic, hosts: m.Hosts()}
	}
}
