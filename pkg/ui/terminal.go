package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	colored           = true
	quiet             = false
)

// Configure sets where terminal output goes and how it looks. A nil writer keeps the current one.
func Configure(w io.Writer, color, silent bool) {
	mu.Lock()
	defer mu.Unlock()
	if w != nil {
		out = w
	}
	colored = color
	quiet = silent
}

// StdoutIsTerminal reports whether colors make sense on stdout
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		enabled := colored
		mu.Unlock()
		if !enabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func writeLine(s string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(out, s)
}

func isQuiet() bool {
	mu.Lock()
	defer mu.Unlock()
	return quiet
}

// PrintError prints an error message in red. Errors are printed even in quiet mode.
func PrintError(msg string, detail ...string) {
	if len(detail) > 0 && detail[0] != "" {
		msg += ": " + detail[0]
	}
	writeLine(Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	if isQuiet() {
		return
	}
	writeLine(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	if isQuiet() {
		return
	}
	writeLine(fmt.Sprintf("%s: %s", Cyan(label), Yellow(value)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, detail ...string) {
	if isQuiet() {
		return
	}
	if len(detail) > 0 && detail[0] != "" {
		msg += ": " + detail[0]
	}
	writeLine(Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	if isQuiet() {
		return
	}
	writeLine(Magenta(msg))
}
