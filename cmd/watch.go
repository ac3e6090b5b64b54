package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/simnet-io/interop/interop"
)

var (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#F4A956")
	colorText      = lipgloss.Color("#FAFAFA")
	colorSubtext   = lipgloss.Color("#777777")
	colorSuccess   = lipgloss.Color("#43BF6D")
	colorError     = lipgloss.Color("#FF5F5F")

	styleTitle = lipgloss.NewStyle().
			Background(colorPrimary).
			Foreground(colorText).
			Padding(0, 1).
			Bold(true)

	styleNetwork = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	styleHeader = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Underline(true)

	styleHelp = lipgloss.NewStyle().
			Foreground(colorSubtext)
)

const (
	headerHeight = 2
	footerHeight = 1
)

type frameMsg time.Time

func tickFrame(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// watchModel steps the station on every tick and shows the NIB tables of
// each network in a scrollable viewport.
type watchModel struct {
	st     *station
	period time.Duration

	viewport viewport.Model
	ready    bool
	paused   bool
	frames   int
}

func newWatchModel(st *station) watchModel {
	return watchModel{
		st:       st,
		period:   time.Duration(float64(time.Second) / st.cfg.frameRate()),
		viewport: viewport.New(80, 20),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tickFrame(m.period)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", " ":
			m.paused = !m.paused
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.ready = true
		m.viewport.SetContent(renderNetworks(m.st.nets.Networks()))
		return m, nil
	case frameMsg:
		if !m.paused {
			m.st.frame(m.period.Seconds())
			m.frames++
			m.viewport.SetContent(renderNetworks(m.st.nets.Networks()))
		}
		return m, tickFrame(m.period)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	if !m.ready {
		return "starting..."
	}
	status := lipgloss.NewStyle().Foreground(colorSuccess).Render("running")
	if m.paused {
		status = lipgloss.NewStyle().Foreground(colorSecondary).Render("paused")
	}
	header := fmt.Sprintf("%s  frame %d  %s", styleTitle.Render("interop watch"), m.frames, status)
	footer := styleHelp.Render("p pause  arrows/pgup/pgdn scroll  q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.viewport.View(), footer)
}

// renderNetworks draws one section per network: its state line followed by
// the output and input NIBs.
func renderNetworks(nets []*interop.NetIO) string {
	var b strings.Builder
	for i, n := range nets {
		if i > 0 {
			b.WriteString("\n")
		}
		state := n.State().String()
		if n.DidInitializationFail() {
			state = lipgloss.NewStyle().Foreground(colorError).Render(state)
		}
		fmt.Fprintf(&b, "%s  %s/%s  %s  out=%d in=%d\n",
			styleNetwork.Render(fmt.Sprintf("network %d", n.NetworkID())),
			n.FederationName(), n.FederateName(), state,
			n.NumOutputNibs(), n.NumInputNibs())
		now := n.CurrentTime()
		writeNibTable(&b, n.OutputNibs(), now)
		writeNibTable(&b, n.InputNibs(), now)
	}
	return b.String()
}

func writeNibTable(b *strings.Builder, nibs []interop.NibStatus, now float64) {
	if len(nibs) == 0 {
		return
	}
	slices.SortFunc(nibs, func(x, y interop.NibStatus) int {
		return interop.CompareNibKeys(x.Key, y.Key)
	})
	b.WriteString(styleHeader.Render(fmt.Sprintf("%-6s %-12s %6s %-20s %28s %7s %7s %5s",
		"dir", "federate", "player", "entity type", "position", "age", "updates", "corr")))
	b.WriteString("\n")
	for _, s := range nibs {
		p := s.DRState.Position
		fmt.Fprintf(b, "%-6s %-12s %6d %-20s %28s %7.1f %7d %5d\n",
			s.IoType, truncate(s.Key.FederateName, 12), s.Key.PlayerID, s.EntityType,
			fmt.Sprintf("(%.0f, %.0f, %.0f)", p.X, p.Y, p.Z),
			now-s.LastUpdate, s.Updates, s.Corrections)
	}
}

// truncate shortens s to n runes, marking the cut with "~".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
