package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mmcdole/elevate/internal/tui/styles"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// printTable writes rows under headers, or a dim placeholder when empty.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, styles.DimStyle.Render("Nothing found."))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.DimGray)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

// printField writes one "label: value" line, skipping empty values.
func printField(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", styles.DimStyle.Render(label+":"), value)
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styles.WarnStyle.Render(fmt.Sprintf(format, args...)))
}
