package logview

import (
	"strings"
	"sync"

	"aegis-sync/internal/backend"
)

const (
	// WordsPerLine is the wrap width of a message, in words.
	WordsPerLine = 10
	// CollapsedLines is how many lines a collapsed entry shows.
	CollapsedLines = 2
)

// WrapWords splits message on whitespace into lines of at most perLine words.
func WrapWords(message string, perLine int) []string {
	if perLine <= 0 {
		perLine = WordsPerLine
	}
	words := strings.Fields(message)
	lines := make([]string, 0, (len(words)+perLine-1)/perLine)
	for start := 0; start < len(words); start += perLine {
		end := min(start+perLine, len(words))
		lines = append(lines, strings.Join(words[start:end], " "))
	}
	return lines
}

// EntryView is what a renderer needs to draw one entry.
type EntryView struct {
	Entry          backend.LogEntry `json:"entry"`
	Classification Classification   `json:"classification"`
	Lines          []string         `json:"lines"`
	Collapsible    bool             `json:"collapsible"`
	Expanded       bool             `json:"expanded"`
	HiddenLines    int              `json:"hiddenLines"`
}

// Disclosure holds per-entry expand flags. It is view state only: nothing is
// persisted and Reset drops everything.
type Disclosure struct {
	mu       sync.Mutex
	expanded map[int64]bool
}

// NewDisclosure returns an empty flag set; every entry starts collapsed.
func NewDisclosure() *Disclosure {
	return &Disclosure{expanded: make(map[int64]bool)}
}

// Toggle flips the expand flag of an entry and returns the new value.
func (d *Disclosure) Toggle(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expanded[id] = !d.expanded[id]
	if !d.expanded[id] {
		delete(d.expanded, id)
	}
	return d.expanded[id]
}

// SetExpanded forces the expand flag of an entry.
func (d *Disclosure) SetExpanded(id int64, expanded bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if expanded {
		d.expanded[id] = true
		return
	}
	delete(d.expanded, id)
}

// Expanded reports the expand flag of an entry.
func (d *Disclosure) Expanded(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.expanded[id]
}

// Reset collapses every entry.
func (d *Disclosure) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.expanded)
}

// View wraps the message and clips it unless the entry is expanded.
func (d *Disclosure) View(entry backend.LogEntry, class Classification) EntryView {
	lines := WrapWords(entry.Message, WordsPerLine)
	view := EntryView{
		Entry:          entry,
		Classification: class,
		Lines:          lines,
		Collapsible:    len(lines) > CollapsedLines,
	}
	if !view.Collapsible {
		return view
	}
	view.Expanded = d.Expanded(entry.ID)
	if !view.Expanded {
		view.Lines = lines[:CollapsedLines]
		view.HiddenLines = len(lines) - CollapsedLines
	}
	return view
}

// Views classifies and wraps a full snapshot, preserving order.
func (d *Disclosure) Views(c *Classifier, entries []backend.LogEntry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, d.View(entry, c.Classify(entry)))
	}
	return out
}
