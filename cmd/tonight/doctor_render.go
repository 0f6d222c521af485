package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type checkState int

const (
	checkInfo checkState = iota
	checkPassed
	checkFailed
)

const doctorLabelWidth = 18

type checkStyle struct {
	label  string
	colors text.Colors
}

var checkStyles = map[checkState]checkStyle{
	checkInfo:   {label: "INFO", colors: text.Colors{text.FgBlue}},
	checkPassed: {label: "OK", colors: text.Colors{text.FgGreen}},
	checkFailed: {label: "FAIL", colors: text.Colors{text.FgRed, text.Bold}},
}

// doctorLine formats one check as "  Label:  [OK] detail".
func doctorLine(label string, state checkState, detail string, colorize bool) string {
	style := checkStyles[state]
	status := "[" + style.label + "]"
	if detail = strings.TrimSpace(detail); detail != "" {
		status += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", doctorLabelWidth, label+":", status)
	if colorize {
		return style.colors.Sprint(line)
	}
	return line
}

func doctorHeader(household string, colorize bool) []string {
	title := "tonight doctor"
	if household != "" {
		title += " for " + household
	}
	rule := strings.Repeat("=", len(title))
	if colorize {
		title = text.Bold.Sprint(title)
	}
	return []string{title, rule}
}

// colorOutput reports whether w is a terminal that can take ANSI colors.
func colorOutput(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
