package progress

import (
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(model)
		require.True(t, ok)
	}
	return m
}

func TestModel_ItemLifecycle(t *testing.T) {
	t.Parallel()
	m := newModel("test", []string{"projects", "issues"})

	m = update(t, m,
		setCurrentItemMsg("projects"),
		itemCompleteMsg{item: "projects", count: 3},
		setCurrentItemMsg("issues"),
		itemUpdateMsg{item: "issues", count: 12},
	)

	assert.True(t, m.items["projects"].completed)
	assert.False(t, m.items["projects"].active)
	assert.Equal(t, 3, m.items["projects"].count)
	assert.True(t, m.items["issues"].active)
	assert.Equal(t, 12, m.items["issues"].count)

	m = update(t, m, itemFailedMsg{item: "issues", message: "boom"})
	assert.True(t, m.items["issues"].failed)
	require.Len(t, m.logs, 1)
	assert.Equal(t, "❌ Issues failed: boom", m.logs[0].message)
}

func TestModel_KeepsLastLogs(t *testing.T) {
	t.Parallel()
	m := newModel("test", nil)
	for _, s := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		m = update(t, m, logMsg(s))
	}
	require.Len(t, m.logs, maxLogLines)
	assert.Equal(t, "3", m.logs[0].message)
	assert.Equal(t, "7", m.logs[maxLogLines-1].message)
}

func TestModel_InterruptOnCtrlC(t *testing.T) {
	t.Parallel()
	called := false
	m := newModel("test", nil)
	m.interrupt = func() { called = true }

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, called)
	assert.NotNil(t, cmd)
}

func TestModel_View(t *testing.T) {
	t.Parallel()
	m := newModel("GitLab time report", []string{"merge-requests"})
	m = update(t, m, itemCompleteMsg{item: "merge-requests", count: 1234}, apiStatusMsg{success: 5})

	view := m.View()
	assert.Contains(t, view, "GitLab time report")
	assert.Contains(t, view, "Merge requests: 1,234")
	assert.Contains(t, view, "API Status")
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestFormatRecord(t *testing.T) {
	t.Parallel()
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "Fetching project", 0)
	r.AddAttrs(slog.String("project", "Acme/Widgets"), slog.Int("index", 1))
	assert.Equal(t, "Fetching project group=Acme, project=Acme/Widgets, index=1",
		formatRecord(r, []slog.Attr{slog.String("group", "Acme")}))

	r = slog.NewRecord(time.Now(), slog.LevelError, "Run failed", 0)
	assert.Equal(t, "Error: Run failed", formatRecord(r, nil))
}

func TestDiscard(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		Discard.SetCurrentItem("x")
		Discard.UpdateItemCount("x", 1)
		Discard.MarkItemCompleted("x", 1)
		Discard.MarkItemFailed("x", "y")
		Discard.UpdateAPIStatus(1, 2, 3)
		Discard.Log("%d", 1)
	})
}
