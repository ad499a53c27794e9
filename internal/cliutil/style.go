// Package cliutil renders EnsureStage progress to the terminal: colored
// status marks when attached to a TTY, plain lines otherwise. Error blocks
// are rendered by the errors package, not here.
package cliutil

import "github.com/fatih/color"

// Style holds the colored marks and text used across install progress and
// error rendering.
type Style struct {
	SuccessMark string
	FailMark    string
	SkipMark    string
	WarnMark    string
	Header      *color.Color
	Path        *color.Color
	Success     *color.Color
	Fail        *color.Color
}

// NewStyle creates a Style with the standard mark/color set.
func NewStyle() *Style {
	return &Style{
		SuccessMark: color.New(color.FgGreen).Sprint("✓"),
		FailMark:    color.New(color.FgRed).Sprint("✗"),
		SkipMark:    color.New(color.FgYellow).Sprint("-"),
		WarnMark:    color.New(color.FgYellow).Sprint("⚠"),
		Header:      color.New(color.FgCyan, color.Bold),
		Path:        color.New(color.FgCyan),
		Success:     color.New(color.FgGreen, color.Bold),
		Fail:        color.New(color.FgRed, color.Bold),
	}
}
