package logview

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#A16207", Dark: "#FACC15"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorBlue   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	colorPurple = lipgloss.AdaptiveColor{Light: "#7E22CE", Dark: "#C084FC"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// Style returns the badge style of a category.
func Style(c Category) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch c {
	case CategorySuccess:
		return base.Foreground(colorGreen)
	case CategoryCaution, CategoryWarning:
		return base.Foreground(colorYellow)
	case CategoryCritical, CategoryFailure, CategoryError:
		return base.Foreground(colorRed)
	case CategoryTooling:
		return base.Foreground(colorPurple)
	default:
		return base.Foreground(colorBlue)
	}
}

// Render writes views as a plain terminal list.
func Render(w io.Writer, views []EntryView) {
	muted := lipgloss.NewStyle().Foreground(colorMuted)
	for _, v := range views {
		when := v.Entry.Timestamp
		if ts, ok := v.Entry.Time(); ok {
			when = ts.Local().Format(time.DateTime)
		}
		badge := Style(v.Classification.Category).Render(fmt.Sprintf("[%s/%s]", v.Classification.Category, v.Classification.Severity))
		fmt.Fprintf(w, "#%d %s %s %s\n", v.Entry.ID, muted.Render(when), badge, muted.Render(v.Entry.Source))
		for _, line := range v.Lines {
			fmt.Fprintf(w, "    %s\n", line)
		}
		if v.HiddenLines > 0 {
			fmt.Fprintln(w, muted.Render(fmt.Sprintf("    … %d more %s (expand with --expand %d)", v.HiddenLines, plural(v.HiddenLines, "line"), v.Entry.ID)))
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
