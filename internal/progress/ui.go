package progress

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// UI implements Reporter using Bubble Tea for rendering
type UI struct {
	program *tea.Program
	done    chan struct{}
}

// NewUI creates a progress box titled title that lists items in order.
// interrupt is called when the user presses ctrl+c or q.
func NewUI(title string, items []string, interrupt func()) *UI {
	m := newModel(title, items)
	m.interrupt = interrupt
	return &UI{
		program: tea.NewProgram(m, tea.WithOutput(os.Stderr)),
		done:    make(chan struct{}),
	}
}

// Start runs the Bubble Tea program in the background
func (p *UI) Start() {
	go func() {
		defer close(p.done)
		if _, err := p.program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running Bubble Tea program: %v\n", err)
		}
	}()
}

// Stop quits the program and waits until the final frame is rendered
func (p *UI) Stop() {
	p.program.Quit()
	<-p.done
}

func (p *UI) SetCurrentItem(item string) {
	p.program.Send(setCurrentItemMsg(item))
}

func (p *UI) UpdateItemCount(item string, count int) {
	p.program.Send(itemUpdateMsg{item: item, count: count})
}

func (p *UI) MarkItemCompleted(item string, count int) {
	p.program.Send(itemCompleteMsg{item: item, count: count})
}

func (p *UI) MarkItemFailed(item string, message string) {
	p.program.Send(itemFailedMsg{item: item, message: message})
}

func (p *UI) UpdateAPIStatus(success, warning, errors int) {
	p.program.Send(apiStatusMsg{success: success, warning: warning, errors: errors})
}

func (p *UI) Log(format string, args ...any) {
	p.program.Send(logMsg(fmt.Sprintf(format, args...)))
}

// Handler returns a slog handler that shows records at or above level in the UI.
func (p *UI) Handler(level slog.Level) slog.Handler {
	return &uiHandler{ui: p, level: level}
}

// uiHandler is a slog handler that routes logs to the Bubble Tea UI
type uiHandler struct {
	ui    *UI
	level slog.Level
	attrs []slog.Attr
}

func (h *uiHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *uiHandler) Handle(_ context.Context, r slog.Record) error {
	h.ui.program.Send(logMsg(formatRecord(r, h.attrs)))
	return nil
}

func (h *uiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &uiHandler{ui: h.ui, level: h.level, attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)}
}

func (h *uiHandler) WithGroup(string) slog.Handler {
	return h // groups are not rendered
}

// formatRecord renders a record as "message key=value, key=value".
func formatRecord(r slog.Record, attrs []slog.Attr) string {
	var b strings.Builder
	b.WriteString(r.Message)
	if r.Level >= slog.LevelError {
		b.Reset()
		b.WriteString("Error: ")
		b.WriteString(r.Message)
	}

	first := true
	write := func(a slog.Attr) bool {
		if first {
			b.WriteString(" ")
			first = false
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range attrs {
		write(a)
	}
	r.Attrs(write)
	return b.String()
}

// Message types for Bubble Tea updates
type (
	itemUpdateMsg struct {
		item  string
		count int
	}
	itemCompleteMsg struct {
		item  string
		count int
	}
	itemFailedMsg struct {
		item    string
		message string
	}
	setCurrentItemMsg string
	logMsg            string
	apiStatusMsg      struct {
		success int
		warning int
		errors  int
	}
)
