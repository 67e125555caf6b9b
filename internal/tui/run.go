package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/austinkregel/local-media/playerd/internal/ipc"
	"github.com/austinkregel/local-media/playerd/internal/waveform"
)

const dialTimeout = 3 * time.Second

// Run connects to the daemon at socketPath and runs the full-screen UI until
// the user quits or the daemon goes away
func Run(ctx context.Context, socketPath string, style waveform.Style) error {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ipc.Dial(dialCtx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	p := tea.NewProgram(
		NewModel(client, style),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("failed to run tui: %w", err)
	}
	if m, ok := final.(Model); ok && m.disconnected {
		return fmt.Errorf("daemon at %s closed the connection", socketPath)
	}
	return nil
}
