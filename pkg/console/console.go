// Package console is an interactive terminal browser for a directory.
package console

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DeBrosOfficial/hdsview/pkg/session"
)

// Run starts the console and blocks until the user quits or ctx ends.
func Run(ctx context.Context, sess *session.Session, initialHost string) error {
	p := tea.NewProgram(NewModel(ctx, sess, initialHost), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
