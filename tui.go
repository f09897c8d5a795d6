package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dictate/hotkey"
	"dictate/log"
	"dictate/tray"
	"dictate/workflow"
)

// TUI message types
type StatusMsg struct{ Status workflow.Status }
type TranscriptMsg struct{ Text string }
type AudioLevelMsg struct{ Level float64 }
type JobMsg struct{ Metrics log.JobMetrics }
type DeviceLineMsg struct{ Text string }
type SettingsMsg struct {
	Language  string
	AutoPaste bool
}
type tickMsg time.Time

// tuiActions are the keys' effects. They may block briefly, so the model
// runs them as commands.
type tuiActions struct {
	toggle    func()
	cancel    func()
	autoPaste func(on bool)
	language  func(code string)
}

type tuiModel struct {
	actions tuiActions
	stats   *jobStats

	status        workflow.Status
	recStart      time.Time
	recDuration   float64
	audioLevel    float64
	peakLevel     float64
	width, height int
	deviceLine    string
	language      string
	autoPaste     bool
	configured    bool
	msgCount      int
	lastText      string
	lastMetrics   []string
}

func newTUIModel(actions tuiActions, stats *jobStats, configured bool) tuiModel {
	return tuiModel{
		actions:    actions,
		stats:      stats,
		status:     workflow.Status{Phase: workflow.Idle, Text: workflow.StatusReady},
		configured: configured,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// tuiSink forwards workflow events to a running program.
type tuiSink struct{ p *tea.Program }

func (s tuiSink) Status(st workflow.Status) { s.p.Send(StatusMsg{Status: st}) }
func (s tuiSink) Transcript(text string)    { s.p.Send(TranscriptMsg{Text: text}) }
func (s tuiSink) Level(level float64)       { s.p.Send(AudioLevelMsg{Level: level}) }
func (s tuiSink) Job(m log.JobMetrics)      { s.p.Send(JobMsg{Metrics: m}) }
func (s tuiSink) Device(name string)        { s.p.Send(DeviceLineMsg{Text: "mic: " + name}) }

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func runCmd(fn func()) tea.Cmd {
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "space", "enter":
			return m, runCmd(m.actions.toggle)
		case "c":
			return m, runCmd(m.actions.cancel)
		case "a":
			m.autoPaste = !m.autoPaste
			on := m.autoPaste
			if fn := m.actions.autoPaste; fn != nil {
				return m, runCmd(func() { fn(on) })
			}
		case "l":
			m.language = nextLanguage(m.language)
			code := m.language
			if fn := m.actions.language; fn != nil {
				return m, runCmd(func() { fn(code) })
			}
		}

	case tickMsg:
		if m.status.Phase == workflow.Listening {
			m.recDuration = time.Since(m.recStart).Seconds()
		}
		return m, tuiTick()

	case StatusMsg:
		prev := m.status.Phase
		m.status = msg.Status
		if msg.Status.Phase == workflow.Listening && prev != workflow.Listening {
			m.recStart = time.Now()
			m.recDuration = 0
			m.audioLevel = 0
			m.peakLevel = 0
		}
		if msg.Status.Phase != workflow.Listening {
			m.audioLevel = 0
		}

	case AudioLevelMsg:
		if m.status.Phase == workflow.Listening {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			m.peakLevel = max(m.peakLevel, msg.Level)
		}

	case TranscriptMsg:
		m.msgCount++
		m.lastText = msg.Text
		m.lastMetrics = nil

	case JobMsg:
		m.lastMetrics = metricLines(msg.Metrics)

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case SettingsMsg:
		m.language = msg.Language
		m.autoPaste = msg.AutoPaste
	}
	return m, nil
}

var (
	styleListening  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleProcessing = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleIdle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleError      = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleDim        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleHelp       = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleText       = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleCopied     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleMetrics    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

const leftWidth = 44

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var left []string
	left = append(left, m.statusLine(), "")

	if m.status.Phase == workflow.Listening {
		left = append(left, levelMeter(m.audioLevel, leftWidth-8))
		// no voice after a second of recording
		if m.recDuration > 1.0 && m.peakLevel < 0.02 {
			left = append(left, styleError.Render("⚠ no voice detected"))
		}
		left = append(left, "")
	}

	if m.deviceLine != "" {
		left = append(left, styleDim.Render(m.deviceLine))
	}
	paste := "off"
	if m.autoPaste {
		paste = "on"
	}
	left = append(left, styleDim.Render(fmt.Sprintf("lang: %s | auto-paste: %s", languageLabel(m.language), paste)))

	if m.stats != nil {
		if table := m.stats.table(); table != "" {
			left = append(left, "")
			for _, line := range strings.Split(table, "\n") {
				left = append(left, styleDim.Render(line))
			}
		}
	}

	left = append(left, "", m.helpLine(), styleHelp.Render("dictate "+version))

	leftPanel := lipgloss.NewStyle().
		Width(leftWidth).
		Height(m.height).
		Render(strings.Join(left, "\n"))

	rightWidth := max(m.width-leftWidth-1, 20)
	rightPanel := lipgloss.NewStyle().
		Width(rightWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(m.transcriptPanel(rightWidth - 2))

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) statusLine() string {
	switch m.status.Phase {
	case workflow.Listening:
		return styleListening.Render(fmt.Sprintf("● REC %.1fs", m.recDuration))
	case workflow.Processing:
		return styleProcessing.Render("◐ " + m.status.Text)
	}
	if strings.HasPrefix(m.status.Text, "Error") || strings.HasPrefix(m.status.Text, "Microphone error") {
		return styleError.Render("○ " + m.status.Text)
	}
	return styleIdle.Render("○ " + m.status.Text)
}

func (m tuiModel) helpLine() string {
	if !m.configured {
		return styleError.Render("recording disabled: no API key")
	}
	action := "record"
	if m.status.Phase == workflow.Listening {
		action = "stop"
	}
	var b strings.Builder
	b.WriteString(styleHelpKey.Render("space"))
	b.WriteString(styleHelp.Render(" " + action + "  "))
	b.WriteString(styleHelpKey.Render(hotkey.Combo))
	b.WriteString(styleHelp.Render(" hold/tap\n"))
	b.WriteString(styleHelpKey.Render("c"))
	b.WriteString(styleHelp.Render(" cancel  "))
	b.WriteString(styleHelpKey.Render("a"))
	b.WriteString(styleHelp.Render(" auto-paste  "))
	b.WriteString(styleHelpKey.Render("l"))
	b.WriteString(styleHelp.Render(" language  "))
	b.WriteString(styleHelpKey.Render("q"))
	b.WriteString(styleHelp.Render(" quit"))
	return b.String()
}

func (m tuiModel) transcriptPanel(wrapWidth int) string {
	if m.lastText == "" && m.msgCount == 0 {
		return styleDim.Render("No transcriptions yet")
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(lipgloss.Color("246")).
		Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
	b.WriteString("\n\n")

	if m.lastText == "" {
		b.WriteString(styleError.Render("(no speech detected)"))
		b.WriteString("\n")
	} else {
		copied := m.status.Text == workflow.StatusCopied
		lines := wrapText(m.lastText, max(wrapWidth, 10))
		for i, line := range lines {
			b.WriteString(styleText.Render(line))
			if i == len(lines)-1 && copied {
				b.WriteString(" " + styleCopied.Render("[✓ copied]"))
			}
			b.WriteString("\n")
		}
	}

	if len(m.lastMetrics) > 0 {
		b.WriteString("\n")
		for _, line := range m.lastMetrics {
			b.WriteString(styleMetrics.Render(line) + "\n")
		}
	}
	return b.String()
}

func levelMeter(level float64, width int) string {
	filled := min(int(level*4*float64(width)), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return styleListening.Render("mic ") + styleDim.Render(bar)
}

func nextLanguage(code string) string {
	langs := tray.Languages
	for i, l := range langs {
		if l.Code == code {
			return langs[(i+1)%len(langs)].Code
		}
	}
	return ""
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
