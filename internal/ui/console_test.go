package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewConsole_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	console := NewConsole()
	if console.useColors {
		t.Error("NO_COLOR should disable colors")
	}
}

func TestConsole_formatMessage(t *testing.T) {
	colored := &Console{useColors: true}
	plain := &Console{useColors: false}

	for _, style := range []ConsoleStyle{StyleError, StyleWarning, StyleSuccess, StyleInfo} {
		got := colored.formatMessage(style, "message")
		if want := styleColors[style] + "message" + colorReset; got != want {
			t.Errorf("formatMessage(%v) = %q, want %q", style, got, want)
		}
		if got := plain.formatMessage(style, "message"); got != "message" {
			t.Errorf("uncolored formatMessage(%v) = %q, want the bare message", style, got)
		}
	}

	if got := colored.formatMessage(StyleNormal, "message"); got != "message" {
		t.Errorf("StyleNormal should never be colored, got %q", got)
	}
}

func TestConsole_PrintRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	console := NewConsoleWithWriters(&out, &errOut)

	console.PrintError("boom")
	console.PrintWarning("careful")
	console.PrintInfo("building")
	console.PrintSuccess("done")
	console.Println("plain")

	if got, want := errOut.String(), "Error: boom\nWarning: careful\n"; got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
	if got, want := out.String(), "building\ndone\nplain\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
}

func TestConsole_FormatErrorMessage(t *testing.T) {
	console := NewConsoleWithWriters(&bytes.Buffer{}, &bytes.Buffer{})

	tests := []struct {
		context    string
		cause      string
		suggestion string
		expected   []string // parts that should be present
	}{
		{
			context:    "Failed to build image rails-new-3.3.4",
			cause:      "process exited with status 1",
			suggestion: "Re-run with --rebuild",
			expected:   []string{"Failed to build image rails-new-3.3.4", "Cause: process exited with status 1", "Suggestion: Re-run with --rebuild"},
		},
		{
			context:  "Only context",
			expected: []string{"Only context"},
		},
		{
			cause:    "Only cause",
			expected: []string{"Cause: Only cause"},
		},
		{
			context:    "Context",
			suggestion: "Suggestion",
			expected:   []string{"Context", "Suggestion: Suggestion"},
		},
	}

	for _, test := range tests {
		result := console.FormatErrorMessage(test.context, test.cause, test.suggestion)

		lines := strings.Split(result, "\n")
		if len(lines) != len(test.expected) {
			t.Errorf("FormatErrorMessage(%q, %q, %q) returned %d lines, want %d",
				test.context, test.cause, test.suggestion, len(lines), len(test.expected))
			continue
		}
		for i, expected := range test.expected {
			if lines[i] != expected {
				t.Errorf("line %d = %q, want %q", i, lines[i], expected)
			}
		}
	}
}

func TestConsole_FormatErrorMessage_Empty(t *testing.T) {
	console := NewConsoleWithWriters(&bytes.Buffer{}, &bytes.Buffer{})

	if result := console.FormatErrorMessage("", "", ""); result != "" {
		t.Errorf("FormatErrorMessage with all empty strings should return empty string, got %q", result)
	}
}
