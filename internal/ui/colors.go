// Package ui styles terminal output for the CLI.
package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Rule is the separator printed under headings.
var Rule = Dim(strings.Repeat("━", 50))

func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Dim(s string) string {
	return ColorDim + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

func Info(s string) string {
	return ColorDim + ColorYellow + s + ColorReset
}

func Warn(s string) string {
	return ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}

// Field renders a "label: value" line with the label padded to width.
// Padding goes outside the bold span so the value column lines up.
func Field(label string, width int, value any) string {
	label += ":"
	pad := width - utf8.RuneCountInString(label)
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("  %s%s %s%v%s", Bold(label), strings.Repeat(" ", pad), ColorWhite, value, ColorReset)
}
