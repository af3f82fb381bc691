package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arnavsurve/minipas/internal/compiler/lib"
)

var (
	colorError  = lipgloss.Color("#EF4444") // Red
	colorMuted  = lipgloss.Color("#6B7280") // Gray
	colorAccent = lipgloss.Color("#F59E0B") // Amber
)

// Render writes d followed by the offending source line and a caret under
// its column. Color is used only when w is a terminal.
func Render(w io.Writer, d Diagnostic, src string) error {
	r := lipgloss.NewRenderer(w)
	errStyle := r.NewStyle().Foreground(colorError).Bold(true)
	gutterStyle := r.NewStyle().Foreground(colorMuted)
	caretStyle := r.NewStyle().Foreground(colorAccent).Bold(true)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(d.Error()))
	sb.WriteString("\n")

	pos := d.Position()
	lines := strings.Split(src, "\n")
	if pos.Line >= 1 && pos.Line <= len(lines) {
		text := strings.TrimRight(lines[pos.Line-1], "\r")
		width := lib.DigitWidth(pos.Line)
		blank := strings.Repeat(" ", width)

		sb.WriteString(gutterStyle.Render(fmt.Sprintf(" %*d | ", width, pos.Line)))
		sb.WriteString(text)
		sb.WriteString("\n")

		col := pos.Column
		if col < 1 {
			col = 1
		}
		// keep tabs so the caret lines up under the source
		var pad strings.Builder
		for i := 0; i < col-1 && i < len(text); i++ {
			if text[i] == '\t' {
				pad.WriteByte('\t')
			} else {
				pad.WriteByte(' ')
			}
		}
		sb.WriteString(gutterStyle.Render(" " + blank + " | "))
		sb.WriteString(pad.String())
		sb.WriteString(caretStyle.Render("^"))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
