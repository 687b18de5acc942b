package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/storecache/internal/cache"
)

// Column widths for the entry table.
const (
	keyColumnWidth     = 40
	ageColumnWidth     = 10
	expiresColumnWidth = 12
	sizeColumnWidth    = 10
	minTruncateLen     = 3
)

// EntryRow is the display form of a cache entry.
type EntryRow struct {
	Key       string
	Age       string
	ExpiresIn string
	Size      string
}

// NewEntryRow formats entry relative to now.
func NewEntryRow(entry cache.Entry, now time.Time) EntryRow {
	return EntryRow{
		Key:       entry.Key,
		Age:       cache.FormatDuration(entry.Age(now)),
		ExpiresIn: cache.FormatDuration(entry.Remaining(now)),
		Size:      FormatBytes(len(entry.Data)),
	}
}

// FormatBytes renders a byte count as B, KiB or MiB.
func FormatBytes(n int) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%dB", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1fKiB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1fMiB", float64(n)/(unit*unit))
	}
}

// NewEntryTable creates a table model listing entries.
func NewEntryTable(entries []cache.Entry, now time.Time, height int) table.Model {
	columns := []table.Column{
		{Title: "Key", Width: keyColumnWidth},
		{Title: "Age", Width: ageColumnWidth},
		{Title: "Expires In", Width: expiresColumnWidth},
		{Title: "Size", Width: sizeColumnWidth},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(entryTableRows(entries, now)),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	return t
}

func entryTableRows(entries []cache.Entry, now time.Time) []table.Row {
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		row := NewEntryRow(e, now)
		rows[i] = table.Row{truncate(row.Key, keyColumnWidth), row.Age, row.ExpiresIn, row.Size}
	}
	return rows
}

// RenderEntryList renders entries as a plain aligned table for non-interactive output.
func RenderEntryList(entries []cache.Entry, now time.Time) string {
	if len(entries) == 0 {
		return MutedStyle.Render("cache is empty") + "\n"
	}

	rows := make([]EntryRow, len(entries))
	keyWidth := len("KEY")
	for i, e := range entries {
		rows[i] = NewEntryRow(e, now)
		keyWidth = max(keyWidth, len(rows[i].Key))
	}

	var sb strings.Builder
	header := fmt.Sprintf("%-*s  %-*s  %-*s  %s", keyWidth, "KEY", ageColumnWidth, "AGE", expiresColumnWidth, "EXPIRES IN", "SIZE")
	sb.WriteString(HeaderStyle.Render(header))
	sb.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%-*s  %-*s  %-*s  %s\n", keyWidth, r.Key, ageColumnWidth, r.Age, expiresColumnWidth, r.ExpiresIn, r.Size)
	}
	return sb.String()
}

// RenderEntryDetail renders one entry with its pretty-printed payload.
func RenderEntryDetail(entry cache.Entry, now time.Time, width int) string {
	var content strings.Builder

	content.WriteString(HeaderStyle.Render("CACHE ENTRY"))
	content.WriteString("\n\n")

	writeField(&content, "Key:        ", entry.Key)
	writeField(&content, "Created:    ", entry.CreatedAt.Format(time.RFC3339))
	writeField(&content, "Expires:    ", entry.ExpiresAt.Format(time.RFC3339))
	writeField(&content, "TTL:        ", cache.FormatDuration(entry.TTL))
	writeField(&content, "Remaining:  ", cache.FormatDuration(entry.Remaining(now)))
	writeField(&content, "Size:       ", FormatBytes(len(entry.Data)))
	content.WriteString("\n")

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, entry.Data, "", "  "); err != nil {
		content.WriteString(string(entry.Data))
	} else {
		content.WriteString(pretty.String())
	}

	if width <= borderPadding {
		return BoxStyle.Render(content.String())
	}
	return BoxStyle.Width(width - borderPadding).Render(content.String())
}

func writeField(sb *strings.Builder, label, value string) {
	sb.WriteString(LabelStyle.Render(label))
	sb.WriteString(ValueStyle.Render(value))
	sb.WriteString("\n")
}

// truncate shortens s to width runes, ending with an ellipsis.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width || width <= minTruncateLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
