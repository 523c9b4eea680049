package progress

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 5

// itemState represents the state of a pipeline stage
type itemState struct {
	name      string
	active    bool
	completed bool
	failed    bool
	count     int
}

// logEntry is a timestamped log line
type logEntry struct {
	time    time.Time
	message string
}

// model is the Bubble Tea model of the progress box
type model struct {
	title      string
	items      map[string]itemState
	itemOrder  []string
	spinner    spinner.Model
	logs       []logEntry
	apiSuccess int
	apiWarning int
	apiErrors  int
	width      int
	interrupt  func()
}

func newModel(title string, itemOrder []string) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // Bright blue

	items := make(map[string]itemState, len(itemOrder))
	for _, name := range itemOrder {
		items[name] = itemState{name: name}
	}

	return model{
		title:     title,
		items:     items,
		itemOrder: itemOrder,
		spinner:   s,
		logs:      make([]logEntry, 0, maxLogLines),
		width:     80,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.interrupt != nil {
				m.interrupt()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case itemUpdateMsg:
		if state, ok := m.items[msg.item]; ok {
			state.count = msg.count
			m.items[msg.item] = state
		}
		return m, nil

	case setCurrentItemMsg:
		for name, state := range m.items {
			state.active = name == string(msg) && !state.completed && !state.failed
			m.items[name] = state
		}
		return m, nil

	case itemCompleteMsg:
		if state, ok := m.items[msg.item]; ok {
			state.completed = true
			state.active = false
			state.count = msg.count
			m.items[msg.item] = state
		}
		return m, nil

	case itemFailedMsg:
		if state, ok := m.items[msg.item]; ok {
			state.failed = true
			state.active = false
			m.items[msg.item] = state
		}
		m.addLog(fmt.Sprintf("❌ %s failed: %s", capitalize(msg.item), msg.message))
		return m, nil

	case logMsg:
		m.addLog(string(msg))
		return m, nil

	case apiStatusMsg:
		m.apiSuccess = msg.success
		m.apiWarning = msg.warning
		m.apiErrors = msg.errors
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) addLog(message string) {
	m.logs = append(m.logs, logEntry{time: time.Now(), message: message})
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[1:]
	}
}

func (m model) View() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	completeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))

	lines := []string{""}
	for _, name := range m.itemOrder {
		lines = append(lines, formatItemLine(m.items[name], m.spinner.View(), dimStyle, activeStyle, completeStyle, errorStyle))
	}
	lines = append(lines, "",
		headerStyle.Render("📊 API Status    ")+fmt.Sprintf("✅ %s   🟡 %s   ❌ %s",
			formatNumber(m.apiSuccess), formatNumber(m.apiWarning), formatNumber(m.apiErrors)),
		"",
		headerStyle.Render("💬 Activity"),
	)
	for i := 0; i < maxLogLines; i++ {
		if i < len(m.logs) {
			lines = append(lines, formatLogLine(m.logs[i], errorStyle))
		} else {
			lines = append(lines, "")
		}
	}

	width := m.width - 4
	if width < 76 {
		width = 76
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(0, 1).
		Width(width).
		MaxWidth(width + 4).
		Render(strings.Join(lines, "\n"))

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Render(m.title)
	return title + "\n" + box + "\n"
}

func formatItemLine(state itemState, spinnerView string, dimStyle, activeStyle, completeStyle, errorStyle lipgloss.Style) string {
	name := capitalize(state.name)
	text := name
	if state.count > 0 || state.completed {
		text = fmt.Sprintf("%s: %s", name, formatNumber(state.count))
	}

	switch {
	case state.failed:
		return errorStyle.Render("❌ " + text)
	case state.completed:
		return completeStyle.Render("✅ " + text)
	case state.active:
		return activeStyle.Render(spinnerView + " " + text)
	default:
		return dimStyle.Render("📋 " + text)
	}
}

func formatLogLine(entry logEntry, errorStyle lipgloss.Style) string {
	timestamp := entry.time.Format("15:04:05")
	if strings.Contains(entry.message, "❌") || strings.HasPrefix(entry.message, "Error:") {
		return "  " + timestamp + " " + errorStyle.Render(entry.message)
	}
	return "  " + timestamp + " " + entry.message
}

// capitalize turns "merge-requests" into "Merge requests".
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "-", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatNumber formats numbers with comma separators for better readability
func formatNumber(n int) string {
	str := strconv.Itoa(n)
	if n < 1000 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteString(",")
		}
		result.WriteRune(digit)
	}
	return result.String()
}
