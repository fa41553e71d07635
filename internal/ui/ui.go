// Package ui renders resolution results for the terminal. Styling is applied
// only when the output is a terminal; pipes and files get plain text.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"mediathek/internal/media"
)

// Renderer writes items and history to an output stream.
type Renderer struct {
	out   io.Writer
	width int

	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	faint lipgloss.Style
	text  lipgloss.Style
}

// NewRenderer creates a renderer for out. When out is a terminal its width
// is used to wrap descriptions.
func NewRenderer(out io.Writer) *Renderer {
	width := 0
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	lg := lipgloss.NewRenderer(out)
	r := &Renderer{
		out:   out,
		width: width,
		title: lg.NewStyle().Foreground(lipgloss.Color("#FFE66D")).Bold(true),
		label: lg.NewStyle().Foreground(lipgloss.Color("#A6ADC8")),
		value: lg.NewStyle().Foreground(lipgloss.Color("#F8F8F2")),
		faint: lg.NewStyle().Faint(true),
		text:  lg.NewStyle(),
	}
	if width > 4 {
		r.text = r.text.Width(width - 2)
	}
	return r
}

// Item prints a resolved video item.
func (r *Renderer) Item(item media.VideoItem) error {
	var b strings.Builder

	title := item.Title
	if title == "" {
		title = item.PageURL
	}
	b.WriteString(r.title.Render(title))
	b.WriteByte('\n')

	r.field(&b, "stream", item.StreamURI)
	r.field(&b, "format", formatLabel(item.Format, item.Quality))
	if item.Published != nil {
		r.field(&b, "published", item.Published.Format("02.01.2006 15:04"))
	}
	if item.Duration > 0 {
		r.field(&b, "duration", FormatDuration(item.Duration))
	}
	if item.Thumbnail != "" {
		r.field(&b, "thumbnail", item.Thumbnail)
	}
	r.field(&b, "page", item.PageURL)

	if item.Description != "" {
		b.WriteByte('\n')
		b.WriteString(r.text.Render(item.Description))
		b.WriteByte('\n')
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

// History prints history entries, most recent first.
func (r *Renderer) History(entries []media.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(r.out, "No history entries found.")
		return err
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  %s\n",
			r.faint.Render(e.ResolvedAt.Local().Format(time.DateTime)),
			r.title.Render(displayTitle(e)),
			r.label.Render(formatLabel(e.Format, e.Quality)))
		fmt.Fprintf(&b, "    %s\n", r.value.Render(e.PageURL))
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}

// HistoryLines renders one plain line per entry, for pickers.
func HistoryLines(entries []media.HistoryEntry) []string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s  %s  [%s]", e.ResolvedAt.Local().Format(time.DateOnly), displayTitle(e), formatLabel(e.Format, e.Quality))
	}
	return lines
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %s %s\n", r.label.Render(fmt.Sprintf("%-10s", name)), r.value.Render(value))
}

func displayTitle(e media.HistoryEntry) string {
	if e.Title != "" {
		return e.Title
	}
	return e.PageURL
}

func formatLabel(f media.Format, quality int) string {
	if quality == media.QualityAuto {
		return f.String() + " (auto)"
	}
	return fmt.Sprintf("%s (quality %d)", f, quality)
}

// FormatDuration renders seconds as M:SS or H:MM:SS.
func FormatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
