package console

import (
	"fmt"
	"strings"

	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

// View renders the model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("HDS Directory Viewer"))
	b.WriteString("\n")

	switch m.screen {
	case ScreenConnect:
		b.WriteString(subtitleStyle.Render("Enter the address of a directory host"))
		b.WriteString("\n\n")
		b.WriteString(m.host.View())
		b.WriteString(helpStyle.Render("\nenter: connect • esc: quit"))

	case ScreenConnecting:
		fmt.Fprintf(&b, "%s Connecting to %s…", m.spinner.View(), clean(m.host.Value()))

	case ScreenFailed:
		b.WriteString(errorStyle.Render("Connection failed"))
		b.WriteString("\n")
		b.WriteString(clean(m.snapshot.Reason))
		b.WriteString("\n\n")
		b.WriteString(m.host.View())
		b.WriteString(helpStyle.Render("\nenter: retry • esc: quit"))

	case ScreenBrowse:
		b.WriteString(m.connectedPanel())
		b.WriteString("\n\n")
		b.WriteString(m.search.View())
		b.WriteString("\n")
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(clean(m.err.Error())))
		case len(m.topics) == 0 && m.lastSearch != "":
			fmt.Fprintf(&b, "No topics match %q", clean(m.lastSearch))
		case len(m.topics) == 0:
			b.WriteString("The directory has no topics")
		default:
			b.WriteString(m.results.View())
			fmt.Fprintf(&b, "\n%d topic(s)", len(m.topics))
		}
		b.WriteString(helpStyle.Render("\ntab: switch focus • enter: open topic • esc: disconnect view"))

	case ScreenTopic:
		b.WriteString(m.connectedPanel())
		b.WriteString("\n\n")
		b.WriteString(successStyle.Render("Topic " + clean(m.openTopic)))
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(clean(m.err.Error())))
		} else {
			b.WriteString(m.members.View())
		}
		b.WriteString(helpStyle.Render("\nesc: back"))
	}

	b.WriteString("\n")
	return b.String()
}

func (m Model) connectedPanel() string {
	snap := m.snapshot
	lines := []string{
		successStyle.Render("Connected"),
		"Server:  " + clean(topology.Truncate(snap.ServerName)),
	}
	if snap.DisplayName != "" && snap.DisplayName != snap.ServerName {
		lines = append(lines, "Name:    "+clean(snap.DisplayName))
	}
	if c := snap.Contact; c != nil {
		contact := clean(c.Name)
		if c.Email != "" {
			contact = strings.TrimSpace(contact + " <" + clean(c.Email) + ">")
		}
		lines = append(lines, "Contact: "+contact)
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
