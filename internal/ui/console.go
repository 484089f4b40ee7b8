// Package ui renders user-facing messages. Diagnostics go to stderr so that
// stdout carries only results such as dry-run plans and image tables.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type ConsoleStyle int

const (
	StyleNormal ConsoleStyle = iota
	StyleError
	StyleWarning
	StyleSuccess
	StyleInfo
)

const colorReset = "\033[0m"

var styleColors = map[ConsoleStyle]string{
	StyleError:   "\033[31m\033[1m",
	StyleWarning: "\033[33m",
	StyleSuccess: "\033[32m",
	StyleInfo:    "\033[34m",
}

type Console struct {
	useColors bool
	out       io.Writer
	err       io.Writer
}

// NewConsole writes to the process's stdout and stderr, colored when stderr
// is a terminal and NO_COLOR is unset.
func NewConsole() *Console {
	return &Console{
		useColors: colorsEnabled(),
		out:       os.Stdout,
		err:       os.Stderr,
	}
}

// NewConsoleWithWriters returns an uncolored console writing to out and errOut.
func NewConsoleWithWriters(out, errOut io.Writer) *Console {
	return &Console{out: out, err: errOut}
}

// https://no-color.org/
func colorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (c *Console) formatMessage(style ConsoleStyle, message string) string {
	color, ok := styleColors[style]
	if !c.useColors || !ok {
		return message
	}
	return color + message + colorReset
}

func (c *Console) print(w io.Writer, style ConsoleStyle, message string) {
	fmt.Fprintln(w, c.formatMessage(style, message))
}

func (c *Console) PrintError(message string)   { c.print(c.err, StyleError, "Error: "+message) }
func (c *Console) PrintWarning(message string) { c.print(c.err, StyleWarning, "Warning: "+message) }
func (c *Console) PrintSuccess(message string) { c.print(c.out, StyleSuccess, message) }
func (c *Console) PrintInfo(message string)    { c.print(c.out, StyleInfo, message) }

// Println writes message to standard output without styling.
func (c *Console) Println(message string) { c.print(c.out, StyleNormal, message) }

// FormatErrorMessage joins the non-empty parts of an error report, one per line.
func (c *Console) FormatErrorMessage(context, cause, suggestion string) string {
	lines := make([]string, 0, 3)
	if context != "" {
		lines = append(lines, context)
	}
	if cause != "" {
		lines = append(lines, "Cause: "+cause)
	}
	if suggestion != "" {
		lines = append(lines, "Suggestion: "+suggestion)
	}
	return strings.Join(lines, "\n")
}
