package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model is the BubbleTea model for the watch TUI.
type Model struct {
	baseURL string

	width  int
	height int

	health    healthMsg
	connected bool
	logs      string
	lastPoll  time.Time
	lastError string

	spinner spinner.Model
	theme   Theme
}

// New creates a watch model polling the given pushgate base URL.
func New(baseURL string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		spinner: sp,
		theme:   NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchHealth(m.baseURL),
		fetchLogs(m.baseURL),
		tick(),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, tea.Batch(fetchHealth(m.baseURL), fetchLogs(m.baseURL))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(fetchHealth(m.baseURL), fetchLogs(m.baseURL), tick())

	case healthMsg:
		m.health = msg
		m.connected = true
		m.lastPoll = time.Now()
		m.lastError = ""

	case logsMsg:
		m.logs = string(msg)

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("pushgate watch"))
	b.WriteString("  " + m.theme.Dim.Render(m.baseURL) + "\n\n")

	if m.connected {
		b.WriteString(m.theme.Healthy.Render("● "+m.health.Status) + "  ")
		b.WriteString(fmt.Sprintf("%s %d   %s %d   %s %s\n",
			m.theme.Label.Render("hooks:"), m.health.HooksLoaded,
			m.theme.Label.Render("ranges:"), m.health.AllowlistRanges,
			m.theme.Label.Render("uptime:"), (time.Duration(m.health.UptimeSeconds) * time.Second).String(),
		))
	} else {
		b.WriteString(m.theme.Degraded.Render("● unreachable") + " " + m.spinner.View() + "\n")
		if m.lastError != "" {
			b.WriteString(m.theme.ErrText.Render(m.lastError) + "\n")
		}
	}

	b.WriteString("\n" + m.theme.Section.Render("last dispatch output") + "\n\n")
	if m.logs == "" {
		b.WriteString(m.theme.Dim.Render("(no dispatch recorded yet)") + "\n")
	} else {
		b.WriteString(m.clip(m.logs))
	}

	b.WriteString("\n" + m.theme.Dim.Render("q quit · r refresh"))
	return b.String()
}

// clip bounds the log body to the window height.
func (m Model) clip(s string) string {
	if m.height == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	max := m.height - 8
	if max > 0 && len(lines) > max {
		lines = lines[:max]
		lines = append(lines, m.theme.Dim.Render("...[clipped]"))
	}
	return strings.Join(lines, "\n")
}
