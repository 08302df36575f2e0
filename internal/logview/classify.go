// Package logview classifies monitoring log entries and tracks which long
// messages the operator has expanded.
package logview

import (
	"strings"

	"aegis-sync/internal/backend"
)

// Category is the visual bucket of a log entry.
type Category string

const (
	CategorySuccess  Category = "success"
	CategoryCaution  Category = "caution"
	CategoryCritical Category = "critical"
	CategoryFailure  Category = "failure"
	CategoryInfo     Category = "info"
	CategoryTooling  Category = "tooling"
	CategoryError    Category = "error"
	CategoryWarning  Category = "warning"
)

// Severity is the threat grade implied by a category.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
	SeverityInfo   Severity = "Info"
)

// Glyphs recognised in log messages.
const (
	GlyphSuccess  = "✅"
	GlyphHealthy  = "🟢"
	GlyphCaution  = "🟡"
	GlyphCritical = "🔴"
	GlyphAlarm    = "🚨"
	GlyphFailure  = "❌"
	GlyphSearch   = "🔍"
	// GlyphTooling omits the variation selector so "🛠" and "🛠️" both match.
	GlyphTooling = "🛠"
)

// Classification is the outcome of the rule chain.
type Classification struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
}

// Rule matches a message and assigns a classification.
type Rule struct {
	Name  string
	Match func(message string) bool
	Class Classification
}

// ContainsAny matches messages holding any of the glyphs.
func ContainsAny(glyphs ...string) func(string) bool {
	return func(message string) bool {
		for _, g := range glyphs {
			if strings.Contains(message, g) {
				return true
			}
		}
		return false
	}
}

// DefaultRules is the glyph rule chain, highest precedence first. Glyphs override
// the declared level in both directions.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "success", Match: ContainsAny(GlyphSuccess, GlyphHealthy), Class: Classification{CategorySuccess, SeverityLow}},
		{Name: "caution", Match: ContainsAny(GlyphCaution), Class: Classification{CategoryCaution, SeverityMedium}},
		{Name: "critical", Match: ContainsAny(GlyphCritical, GlyphAlarm), Class: Classification{CategoryCritical, SeverityHigh}},
		{Name: "failure", Match: ContainsAny(GlyphFailure), Class: Classification{CategoryFailure, SeverityHigh}},
		{Name: "search", Match: ContainsAny(GlyphSearch), Class: Classification{CategoryInfo, SeverityInfo}},
		{Name: "tooling", Match: ContainsAny(GlyphTooling), Class: Classification{CategoryTooling, SeverityInfo}},
	}
}

// Classifier evaluates rules first-match-wins and falls back to the declared level.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier; nil rules selects DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the classification of one entry.
func (c *Classifier) Classify(entry backend.LogEntry) Classification {
	for _, rule := range c.rules {
		if rule.Match(entry.Message) {
			return rule.Class
		}
	}
	return ByLevel(entry.Level)
}

// ByLevel maps a declared level to its classification.
func ByLevel(level string) Classification {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case backend.LevelError:
		return Classification{CategoryError, SeverityHigh}
	case backend.LevelWarning:
		return Classification{CategoryWarning, SeverityMedium}
	default:
		return Classification{CategoryInfo, SeverityInfo}
	}
}
