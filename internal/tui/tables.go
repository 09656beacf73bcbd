package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/jobboard"
	"github.com/mmcdole/elevate/internal/progress"
	"github.com/mmcdole/elevate/internal/tui/styles"
)

var (
	courseColumnTitles    = []string{"Title", "Category", "Level", "Price", "Enrolled"}
	courseColumnWeights   = []int{5, 3, 2, 2, 2}
	jobColumnTitles       = []string{"", "Title", "Company", "Location", "Type", "Posted"}
	jobColumnWeights      = []int{1, 5, 4, 4, 3, 3}
	savedColumnTitles     = []string{"Title", "Company", "Location", "Type", "Mode"}
	savedColumnWeights    = []int{5, 4, 4, 3, 2}
	progressColumnTitles  = []string{"Course", "Progress", "Last Lesson", "Updated"}
	progressColumnWeights = []int{5, 4, 3, 3}
	lessonColumnTitles    = []string{"", "#", "Lesson", "Duration"}
	lessonColumnWeights   = []int{1, 1, 8, 2}
)

func coursesToRows(courses []domain.Course) ([]table.Row, []domain.ID) {
	rows := make([]table.Row, len(courses))
	ids := make([]domain.ID, len(courses))
	for i, c := range courses {
		enrolled := "-"
		if c.Enrolled() {
			enrolled = styles.CompletedChar
		}
		rows[i] = table.Row{c.Title, orDash(c.Category), orDash(c.Difficulty), domain.PriceLabel(c), enrolled}
		ids[i] = c.ID
	}
	return rows, ids
}

func jobsToRows(jobs []domain.Job, saved map[domain.ID]bool, now time.Time) ([]table.Row, []domain.ID) {
	rows := make([]table.Row, len(jobs))
	ids := make([]domain.ID, len(jobs))
	for i, j := range jobs {
		mark := ""
		if saved[j.ID] {
			mark = "★"
		}
		rows[i] = table.Row{
			mark,
			j.Title,
			j.CompanyName,
			j.Location,
			jobboard.JobTypeLabel(j.JobType),
			orDash(jobboard.PostedAgo(j.CreatedTime(), now)),
		}
		ids[i] = j.ID
	}
	return rows, ids
}

func savedToRows(saved []domain.SavedJob) ([]table.Row, []domain.ID) {
	rows := make([]table.Row, len(saved))
	ids := make([]domain.ID, len(saved))
	for i, s := range saved {
		rows[i] = table.Row{
			s.Title,
			s.CompanyName,
			s.Location,
			jobboard.JobTypeLabel(s.JobType),
			jobboard.ModeLabel(s.Mode),
		}
		ids[i] = s.ID
	}
	return rows, ids
}

func progressToRows(records []domain.CourseProgress, courses []domain.Course) ([]table.Row, []domain.ID) {
	titles := make(map[domain.ID]string, len(courses))
	for _, c := range courses {
		titles[c.ID] = c.Title
	}

	rows := make([]table.Row, len(records))
	ids := make([]domain.ID, len(records))
	for i, r := range records {
		title, ok := titles[r.CourseID]
		if !ok {
			title = "Course " + string(r.CourseID)
		}
		updated := "-"
		if t, err := time.Parse(time.RFC3339, r.UpdatedAt); err == nil {
			updated = t.Local().Format("Jan 2, 2006")
		}
		rows[i] = table.Row{
			title,
			fmt.Sprintf("%3d%%", r.ProgressPercentage),
			orDash(string(r.LastAccessedLessonID)),
			updated,
		}
		ids[i] = r.CourseID
	}
	return rows, ids
}

// lessonsToRows renders the flattened lessons with their lock state.
func lessonsToRows(e *progress.Engine) ([]table.Row, []domain.ID) {
	lessons := e.Lessons()
	unlocked := e.Unlocked()
	confirmed := e.Confirmed()

	rows := make([]table.Row, len(lessons))
	ids := make([]domain.ID, len(lessons))
	for i, l := range lessons {
		rows[i] = table.Row{lessonMark(i, unlocked, confirmed, e.IsLocked(i)), strconv.Itoa(i + 1), l.Title, orDash(l.Duration)}
		ids[i] = l.ID
	}
	return rows, ids
}

func lessonMark(i, unlocked, confirmed int, locked bool) string {
	switch {
	case locked:
		return styles.LockedChar
	case i < unlocked && i >= confirmed:
		return styles.PendingChar
	case i < unlocked:
		return styles.CompletedChar
	default:
		return styles.CurrentChar
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func createTable(titles []string, widths []int, focused bool) table.Model {
	tbl := table.New(
		table.WithColumns(buildColumns(titles, widths)),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.DimGray).
		BorderBottom(true)
	s.Selected = s.Selected.
		Foreground(styles.White).
		Background(styles.Accent).
		Bold(false)

	tbl.SetStyles(s)
	if focused {
		tbl.Focus()
	}
	return tbl
}

func buildColumns(titles []string, widths []int) []table.Column {
	columns := make([]table.Column, len(titles))
	for i, title := range titles {
		width := 12
		if i < len(widths) && widths[i] > 0 {
			width = widths[i]
		}
		columns[i] = table.Column{Title: title, Width: width}
	}
	return columns
}

// distributeWidths splits total across columns in proportion to weights,
// giving each at least three cells.
func distributeWidths(total int, weights []int) []int {
	if len(weights) == 0 {
		return nil
	}
	if total <= 0 {
		total = len(weights) * 12
	}

	sum := 0
	for _, w := range weights {
		sum += w
	}

	const minWidth = 3
	widths := make([]int, len(weights))
	remaining := total
	for i, weight := range weights {
		if i == len(weights)-1 {
			widths[i] = max(minWidth, remaining)
			break
		}
		portion := max(minWidth, weight*total/sum)
		minRemaining := minWidth * (len(weights) - i - 1)
		if remaining-portion < minRemaining {
			portion = max(minWidth, remaining-minRemaining)
		}
		widths[i] = portion
		remaining -= portion
	}
	return widths
}
