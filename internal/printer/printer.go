package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects printer output. It returns a function restoring the
// previous writers. Intended for tests.
func SetOutput(out, errOut io.Writer) (restore func()) {
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	return func() {
		stdout, stderr = prevOut, prevErr
	}
}

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Fprintf(stdout, "✓ %s", msg)
	} else {
		green.Fprint(stdout, msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Fprintf(stderr, "⚠️  %s", msg)
	} else {
		yellow.Fprint(stderr, msg)
	}
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Detail prints an indented, dimmed key/value line under the current step
func Detail(key, value string) {
	faint.Fprintf(stdout, "    %-10s %s\n", key+":", value)
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(stderr, "%s\n\n", title)
	fmt.Fprintf(stderr, "%s\n", explanation)
	printSuggestions(suggestions)

	// Return simple error for Cobra (won't be printed due to SilenceErrors)
	return fmt.Errorf("%s", title)
}

// ErrorWithContext creates a formatted error with context details
// Context keys are printed in sorted order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(stderr, "\n")
		for _, key := range keys {
			fmt.Fprintf(stderr, "  %s: %s\n", key, context[key])
		}
	}

	printSuggestions(suggestions)

	return fmt.Errorf("%s", title)
}

func printSuggestions(suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(stderr, "\n")
	if len(suggestions) == 1 {
		fmt.Fprintf(stderr, "%s\n", suggestions[0])
		return
	}
	fmt.Fprintf(stderr, "Either:\n")
	for i, suggestion := range suggestions {
		fmt.Fprintf(stderr, "  %d. %s\n", i+1, suggestion)
	}
}

// Println prints a plain message (for output that doesn't need coloring)
func Println(a ...any) {
	fmt.Fprintln(stdout, a...)
}

// Printf prints a plain formatted message (for output that doesn't need coloring)
func Printf(format string, a ...any) {
	fmt.Fprintf(stdout, format, a...)
}
