// Package report renders a run's statistics as a Markdown summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/IshaanNene/NewsGoat/internal/engine"
)

var header = []string{"Source", "State", "Articles", "Discovered", "Rejected", "Duplicates", "Errors", "Elapsed"}

// Write renders snap to w. generated is printed in the heading.
func Write(w io.Writer, runID string, snap engine.Snapshot, generated time.Time) error {
	var b strings.Builder

	b.WriteString("# NewsGoat run report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))
	if runID != "" {
		fmt.Fprintf(&b, "Run: `%s`\n", runID)
	}
	b.WriteString("\n## Sources\n\n")

	rows := [][]string{header}
	for _, s := range snap.Sources {
		rejected := 0
		for _, n := range s.Rejected {
			rejected += n
		}
		state := s.State.String()
		if s.Reason != "" && s.State != engine.TaskCompleted {
			state += " (" + s.Reason + ")"
		}
		rows = append(rows, []string{
			s.SourceID,
			state,
			strconv.Itoa(s.Articles),
			strconv.Itoa(s.Discovered),
			strconv.Itoa(rejected),
			strconv.Itoa(s.IntraDuplicates),
			strconv.Itoa(s.Errors),
			seconds(s.Elapsed),
		})
	}
	for _, line := range Table(rows) {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	t := snap.Totals
	b.WriteString("\n## Totals\n\n")
	fmt.Fprintf(&b, "- Articles: %d\n", t.Articles)
	fmt.Fprintf(&b, "- Cross-source duplicates removed: %d\n", t.DuplicatesRemoved)
	fmt.Fprintf(&b, "- Sources: %d completed, %d failed, %d timed out (of %d)\n", t.Completed, t.Failed, t.TimedOut, t.Sources)
	fmt.Fprintf(&b, "- Rejected candidates: %d\n", t.Rejected)
	fmt.Fprintf(&b, "- Errors: %d\n", t.Errors)
	fmt.Fprintf(&b, "- Elapsed: %s\n", seconds(t.Elapsed))
	fmt.Fprintf(&b, "- Average per article: %s\n", AveragePerArticle(t))

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFile renders the report to path, creating parent directories.
func WriteFile(path, runID string, snap engine.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := Write(f, runID, snap, time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AveragePerArticle is the run's wall time divided by its article count.
func AveragePerArticle(t engine.Totals) string {
	if t.Articles == 0 {
		return "n/a"
	}
	return seconds(t.Elapsed / time.Duration(t.Articles))
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 2, 64) + "s"
}

// Table lays rows out as a Markdown table whose columns line up by display
// width. The first row is the header.
func Table(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	cols := len(rows[0])
	widths := make([]int, cols)
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := runewidth.StringWidth(escapeCell(row[i])); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		widths[i] = max(widths[i], 3)
	}

	line := func(cells []string, sep bool) string {
		var sb strings.Builder
		sb.WriteString("|")
		for j := 0; j < cols; j++ {
			sb.WriteString(" ")
			if sep {
				sb.WriteString(strings.Repeat("-", widths[j]))
			} else {
				content := ""
				if j < len(cells) {
					content = escapeCell(cells[j])
				}
				sb.WriteString(runewidth.FillRight(content, widths[j]))
			}
			sb.WriteString(" |")
		}
		return sb.String()
	}

	out := make([]string, 0, len(rows)+1)
	out = append(out, line(rows[0], false), line(nil, true))
	for _, row := range rows[1:] {
		out = append(out, line(row, false))
	}
	return out
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
