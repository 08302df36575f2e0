package logview

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegis-sync/internal/backend"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func TestClassifyGlyphs(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		name    string
		level   string
		message string
		want    Classification
	}{
		{"success", "ERROR", "✅ Completed Threat Analysis", Classification{CategorySuccess, SeverityLow}},
		{"healthy", "INFO", "🟢 normal transfer", Classification{CategorySuccess, SeverityLow}},
		{"caution", "INFO", "🟡 unusual approval", Classification{CategoryCaution, SeverityMedium}},
		{"critical beats info level", "INFO", "🔴 drain detected", Classification{CategoryCritical, SeverityHigh}},
		{"alarm", "INFO", "🚨 emergency pause executed", Classification{CategoryCritical, SeverityHigh}},
		{"failure", "INFO", "❌ analysis crashed", Classification{CategoryFailure, SeverityHigh}},
		{"search", "ERROR", "🔍 Starting Threat Analysis", Classification{CategoryInfo, SeverityInfo}},
		{"tooling with selector", "INFO", "🛠️ tool output", Classification{CategoryTooling, SeverityInfo}},
		{"tooling bare", "INFO", "🛠 tool output", Classification{CategoryTooling, SeverityInfo}},
		{"plain warning", "WARNING", "slow rpc", Classification{CategoryWarning, SeverityMedium}},
		{"plain error", "error", "rpc down", Classification{CategoryError, SeverityHigh}},
		{"plain info", "INFO", "heartbeat", Classification{CategoryInfo, SeverityInfo}},
		{"unknown level", "DEBUG", "trace", Classification{CategoryInfo, SeverityInfo}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(backend.LogEntry{Level: tc.level, Message: tc.message})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifier(nil)

	// success precedes critical, so the healthy glyph softens an alarm.
	got := c.Classify(backend.LogEntry{Level: "ERROR", Message: "🚨 escalated then 🟢 resolved"})
	require.Equal(t, CategorySuccess, got.Category)

	got = c.Classify(backend.LogEntry{Level: "INFO", Message: "🔍 scan found 🟡 pattern"})
	require.Equal(t, CategoryCaution, got.Category)
}

func TestCustomRules(t *testing.T) {
	c := NewClassifier([]Rule{{Name: "paused", Match: ContainsAny("paused"), Class: Classification{CategoryCritical, SeverityHigh}}})

	require.Equal(t, SeverityHigh, c.Classify(backend.LogEntry{Level: "INFO", Message: "contract paused"}).Severity)
	require.Equal(t, CategoryInfo, c.Classify(backend.LogEntry{Level: "INFO", Message: "🔴 ignored by custom chain"}).Category)
}

func TestWrapWords(t *testing.T) {
	require.Empty(t, WrapWords("", 10))
	require.Equal(t, []string{"a b c"}, WrapWords("  a\tb\n c ", 10))

	lines := WrapWords(words(21), 10)
	require.Len(t, lines, 3)
	require.Len(t, strings.Fields(lines[2]), 1)

	require.Len(t, WrapWords(words(20), 10), 2)
	require.Len(t, WrapWords(words(5), 0), 1)
}

func TestDisclosureTwentyOneWords(t *testing.T) {
	d := NewDisclosure()
	c := NewClassifier(nil)
	entry := backend.LogEntry{ID: 7, Level: "INFO", Message: words(21)}

	view := d.View(entry, c.Classify(entry))
	require.True(t, view.Collapsible)
	require.False(t, view.Expanded)
	require.Len(t, view.Lines, 2)
	require.Equal(t, 1, view.HiddenLines)

	require.True(t, d.Toggle(7))
	view = d.View(entry, c.Classify(entry))
	require.True(t, view.Expanded)
	require.Len(t, view.Lines, 3)
	require.Zero(t, view.HiddenLines)

	require.False(t, d.Toggle(7))
	require.Len(t, d.View(entry, c.Classify(entry)).Lines, 2)
}

func TestDisclosureShortMessage(t *testing.T) {
	d := NewDisclosure()
	entry := backend.LogEntry{ID: 1, Message: words(15)}

	d.SetExpanded(1, true)
	view := d.View(entry, ByLevel(entry.Level))
	require.False(t, view.Collapsible)
	require.False(t, view.Expanded)
	require.Len(t, view.Lines, 2)
}

func TestDisclosureReset(t *testing.T) {
	d := NewDisclosure()
	d.Toggle(1)
	d.SetExpanded(2, true)
	require.True(t, d.Expanded(1))

	d.Reset()
	require.False(t, d.Expanded(1))
	require.False(t, d.Expanded(2))
}

func TestViewsKeepOrder(t *testing.T) {
	d := NewDisclosure()
	entries := []backend.LogEntry{
		{ID: 3, Level: "INFO", Message: "🔴 newest"},
		{ID: 2, Level: "WARNING", Message: "middle"},
		{ID: 1, Level: "INFO", Message: "oldest"},
	}

	views := d.Views(NewClassifier(nil), entries)
	require.Len(t, views, 3)
	require.EqualValues(t, 3, views[0].Entry.ID)
	require.Equal(t, SeverityHigh, views[0].Classification.Severity)
	require.Equal(t, CategoryWarning, views[1].Classification.Category)
}

func TestRender(t *testing.T) {
	d := NewDisclosure()
	entries := []backend.LogEntry{{ID: 5, Timestamp: "not a time", Level: "INFO", Source: "agent", Message: words(25)}}

	var buf bytes.Buffer
	Render(&buf, d.Views(NewClassifier(nil), entries))

	out := buf.String()
	require.Contains(t, out, "#5")
	require.Contains(t, out, "not a time")
	require.Contains(t, out, "1 more line")
	require.Contains(t, out, "--expand 5")
}
