package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scribe/engine"
	"scribe/finalize"
)

// TUI message types
type ViewMsg struct{ View finalize.View }
type StateMsg struct{ State engine.State }
type LevelMsg struct{ Level float64 }
type StatusMsg struct {
	Text string
	Err  bool
}
type CopiedMsg struct {
	Chars int
	Err   error
}
type tickMsg time.Time

var (
	sentenceStyles = map[finalize.Style]lipgloss.Style{
		finalize.StyleA:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		finalize.StyleB:       lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		finalize.StylePending: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
	}
	liveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("2")).
			Padding(0, 1)
	waitBorder = liveBorder.BorderForeground(lipgloss.Color("3"))
	liveTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	waitTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	waitText   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type tuiModel struct {
	view     finalize.View
	rendered bool
	state    engine.State
	level    float64
	status   string
	statusOK bool
	statusAt time.Time
	width    int
	infoLine string

	copyFn func() (int, error)
}

func newTUIModel(infoLine string, copyFn func() (int, error)) tuiModel {
	return tuiModel{infoLine: infoLine, copyFn: copyFn}
}

func NewTUIProgram(infoLine string, copyFn func() (int, error)) *tea.Program {
	return tea.NewProgram(newTUIModel(infoLine, copyFn))
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+y":
			if m.copyFn == nil {
				return m, nil
			}
			copyFn := m.copyFn
			return m, func() tea.Msg {
				n, err := copyFn()
				return CopiedMsg{Chars: n, Err: err}
			}
		}

	case tickMsg:
		m.level *= 0.7
		if !m.statusAt.IsZero() && m.statusOK && time.Since(m.statusAt) > 3*time.Second {
			m.status = ""
			m.statusAt = time.Time{}
		}
		return m, tuiTick()

	case ViewMsg:
		m.view = msg.View
		m.rendered = true

	case StateMsg:
		m.state = msg.State
		if msg.State != engine.StateRecording {
			m.level = 0
		}

	case LevelMsg:
		if m.state == engine.StateRecording {
			m.level = m.level*0.6 + msg.Level*0.4
		}

	case StatusMsg:
		m.status = msg.Text
		m.statusOK = !msg.Err
		m.statusAt = time.Now()

	case CopiedMsg:
		if msg.Err != nil {
			m.status = "copy failed: " + msg.Err.Error()
			m.statusOK = false
		} else {
			m.status = fmt.Sprintf("copied %d characters", msg.Chars)
			m.statusOK = true
		}
		m.statusAt = time.Now()
	}
	return m, nil
}

func (m tuiModel) panelWidth() int {
	if m.width <= 4 {
		return 76
	}
	return m.width - 2
}

func renderSegments(v finalize.View) string {
	parts := make([]string, 0, len(v))
	for _, seg := range v {
		parts = append(parts, sentenceStyles[seg.Style].Render(seg.Text))
	}
	return strings.Join(parts, " ")
}

func (m tuiModel) statusLine() string {
	var b strings.Builder
	switch m.state {
	case engine.StateRecording:
		b.WriteString(errStyle.Render("● REC ") + levelBar(m.level))
	case engine.StateTranscribing:
		b.WriteString(dimStyle.Render("◌ transcribing"))
	default:
		b.WriteString(dimStyle.Render("○ listening"))
	}
	if m.status != "" {
		style := errStyle
		if m.statusOK {
			style = okStyle
		}
		b.WriteString("  " + style.Render(m.status))
	}
	return b.String()
}

func levelBar(level float64) string {
	const width = 10
	n := min(int(level*width*5), width)
	return okStyle.Render(strings.Repeat("▮", n)) + dimStyle.Render(strings.Repeat("▯", width-n))
}

func (m tuiModel) View() string {
	var title, body string
	border := liveBorder
	if m.rendered {
		title = liveTitle.Render("Live Transcription")
		body = renderSegments(m.view)
	} else {
		title = waitTitle.Render("Waiting for Input")
		body = waitText.Render("Say something...")
		border = waitBorder
	}

	w := m.panelWidth()
	panel := border.Width(w - 2).Render(body)

	var b strings.Builder
	b.WriteString(" " + title + "\n")
	b.WriteString(panel + "\n")
	b.WriteString(m.statusLine() + "\n")
	help := "ctrl+y copy transcript · ctrl+c quit"
	if m.infoLine != "" {
		help = m.infoLine + " · " + help
	}
	b.WriteString(dimStyle.Render(help) + "\n")
	return b.String()
}
