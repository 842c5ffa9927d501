package ui

import (
	"fmt"
	"strings"
)

// keyvalWidth fits the longest label the commands print ("Runtime", "ssh
// port", "Config dir") with two columns of breathing room.
const keyvalWidth = 12

// Header opens a command's output section: ":: msg" in bold cyan.
func (u *UI) Header(msg string) {
	u.println(u.render(u.styles.header, ":: "+msg))
}

// Success reports a completed step. TTY output gets a green check; plain
// output spells it out.
func (u *UI) Success(msg string) {
	if u.isTTY {
		u.println("  " + u.render(u.styles.success, "✓") + " " + msg)
		return
	}
	u.println("  ok " + msg)
}

// Warn writes a yellow-tagged warning to errOut.
func (u *UI) Warn(msg string) {
	fmt.Fprintln(u.errOut, u.render(u.styles.warning, "warning:")+" "+msg)
}

// Error writes an error to errOut. The message body stays unstyled so
// multi-line command output survives intact.
func (u *UI) Error(msg string) {
	fmt.Fprintln(u.errOut, u.render(u.styles.errMark, "error:")+" "+msg)
}

// Keyval prints one field of a report: a bold fixed-width label followed by
// its value.
func (u *UI) Keyval(key, value string) {
	u.println("  " + u.render(u.styles.label, pad(key, keyvalWidth)) + value)
}

// Dim prints de-emphasized text, used for progress notes and hints.
func (u *UI) Dim(msg string) {
	u.println(u.render(u.styles.dim, msg))
}

// Println prints an unstyled line.
func (u *UI) Println(msg string) {
	u.println(msg)
}

// StatusColor maps a container status onto a traffic-light color: running
// is green, transitional states are yellow, dead ends are red.
func (u *UI) StatusColor(status string) string {
	switch strings.ToLower(status) {
	case "running":
		return u.render(u.styles.good, status)
	case "created", "restarting", "paused", "removing":
		return u.render(u.styles.idle, status)
	default:
		return u.render(u.styles.bad, status)
	}
}

// Table prints rows under a bold header line. Column widths come from the
// widest cell; columns are separated by two spaces and rows may be shorter
// than the header.
func (u *UI) Table(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	u.println(u.render(u.styles.label, joinColumns(headers, widths)))
	for _, row := range rows {
		u.println(joinColumns(row, widths))
	}
}

// joinColumns pads each cell to its column width and joins with a
// two-space gutter. The last cell is left unpadded.
func joinColumns(cells []string, widths []int) string {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
			continue
		}
		if i < len(widths) {
			b.WriteString(pad(cell, widths[i]))
		} else {
			b.WriteString(cell)
		}
	}
	return b.String()
}

// pad right-pads s with spaces to width.
func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func (u *UI) println(msg string) {
	_, _ = fmt.Fprintln(u.out, msg)
}

func (u *UI) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(u.out, format, args...)
}
