// Package ui renders the workspace CLI's terminal output: lifecycle
// progress, status reports, and workspace listings.
package ui

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// styleSet holds the precomputed lipgloss styles for one UI instance. They
// are built once in New so output calls never re-derive them.
type styleSet struct {
	header  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	errMark lipgloss.Style
	dim     lipgloss.Style
	label   lipgloss.Style
	good    lipgloss.Style
	idle    lipgloss.Style
	bad     lipgloss.Style
}

// UI writes styled output to out and diagnostics to errOut. With a non-TTY
// out every style degrades to plain text.
type UI struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader
	isTTY  bool
	styles styleSet
}

// New creates a UI for the given writers. TTY detection runs on out and
// decides whether styles apply at all.
func New(out, errOut io.Writer) *UI {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(f.Fd())
	}

	u := &UI{
		out:    out,
		errOut: errOut,
		in:     os.Stdin,
		isTTY:  tty,
	}
	if tty {
		r := lipgloss.NewRenderer(out)
		u.styles = styleSet{
			header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
			success: r.NewStyle().Foreground(lipgloss.Color("2")),
			warning: r.NewStyle().Foreground(lipgloss.Color("3")),
			errMark: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
			dim:     r.NewStyle().Faint(true),
			label:   r.NewStyle().Bold(true),
			good:    r.NewStyle().Foreground(lipgloss.Color("2")),
			idle:    r.NewStyle().Foreground(lipgloss.Color("3")),
			bad:     r.NewStyle().Foreground(lipgloss.Color("1")),
		}
	}
	return u
}

// IsTTY reports whether the output is a terminal.
func (u *UI) IsTTY() bool {
	return u.isTTY
}

// render applies a style only when styling is active.
func (u *UI) render(style lipgloss.Style, s string) string {
	if !u.isTTY {
		return s
	}
	return style.Render(s)
}

// Confirm prints a prompt and reads a y/N answer from stdin. Anything but
// an explicit yes declines.
func (u *UI) Confirm(prompt string) bool {
	u.printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(u.in).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
