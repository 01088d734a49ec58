package cmd

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bnema/pinnacle/internal/config"
	"github.com/bnema/pinnacle/internal/controlplane"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var debugTUICmd = &cobra.Command{
	Use:   "debug-tui",
	Short: "Connect to a running compositor's control socket and render live state",
	Long: `debug-tui is the one first-party control-plane client shipped in
this repo: it dials the control socket, performs the token handshake if a
sibling .token file exists, then polls Output.List on an interval and
renders the result, exercising the same unary RPC shape a
configuration process would use.`,
	RunE: runDebugTUI,
}

func runDebugTUI(cmd *cobra.Command, args []string) error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dir := controlplane.ResolveSocketDir(config.Get().Socket.Dir)
	path := controlplane.ResolveSocketPath(dir)

	p := tea.NewProgram(newDebugTUIModel(path))
	_, err := p.Run()
	return err
}

type debugTickMsg time.Time

type debugSnapshotMsg struct {
	outputs []outputView
	err     error
}

// outputView is a minimal local projection of controlplane.OutputService's
// wire response, kept here instead of importing internal/core directly so
// this command only depends on the wire-facing controlplane package, the
// same way a real external config process would.
type outputView struct {
	Name    string
	Enabled bool
}

type debugTUIModel struct {
	socketPath string
	requestId  uint64

	outputs []outputView
	status  string
	err     error
}

func newDebugTUIModel(socketPath string) *debugTUIModel {
	return &debugTUIModel{socketPath: socketPath, status: "connecting..."}
}

func (m *debugTUIModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), tea.Every(time.Second, func(t time.Time) tea.Msg { return debugTickMsg(t) }))
}

func (m *debugTUIModel) poll() tea.Cmd {
	return func() tea.Msg {
		outs, err := fetchOutputs(m.socketPath)
		return debugSnapshotMsg{outputs: outs, err: err}
	}
}

func (m *debugTUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case debugTickMsg:
		return m, m.poll()
	case debugSnapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "disconnected"
		} else {
			m.err = nil
			m.status = "connected"
			m.outputs = msg.outputs
		}
	}
	return m, nil
}

func (m *debugTUIModel) View() string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("62")).
		Foreground(lipgloss.Color("230")).Padding(0, 1).
		Render(fmt.Sprintf("PINNACLE DEBUG — %s", m.status))
	b.WriteString(header)
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(m.err.Error()))
		b.WriteString("\n")
	} else if len(m.outputs) == 0 {
		b.WriteString("no outputs reported\n")
	} else {
		for _, o := range m.outputs {
			state := "disabled"
			if o.Enabled {
				state = "enabled"
			}
			b.WriteString(fmt.Sprintf("  %-12s %s\n", o.Name, state))
		}
	}

	b.WriteString("\npress q to quit\n")
	return b.String()
}

func fetchOutputs(socketPath string) ([]outputView, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tokenPath := controlplane.TokenPath(socketPath)
	if token, err := controlplane.ReadTokenFile(tokenPath); err == nil {
		if err := controlplane.SendHandshake(conn, token); err != nil {
			return nil, fmt.Errorf("handshake: %w", err)
		}
	}

	req := controlplane.Envelope{Service: "Output", Method: "List", Shape: controlplane.Unary}
	if err := controlplane.WriteEnvelope(conn, req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := controlplane.ReadEnvelope(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var outs []outputView
	if err := controlplane.DecodePayload(resp.Payload, &outs); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return outs, nil
}
