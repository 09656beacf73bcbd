package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/progress"
	"github.com/mmcdole/elevate/internal/tui/styles"
)

type status int

const (
	statusLoading status = iota
	statusReady
	statusError
)

type section int

const (
	sectionCourses section = iota
	sectionJobs
	sectionSaved
	sectionProgress
	sectionCount
)

func (s section) next() section { return (s + 1) % sectionCount }
func (s section) prev() section { return (s + sectionCount - 1) % sectionCount }

var sectionNames = map[section]string{
	sectionCourses:  "Courses",
	sectionJobs:     "Jobs",
	sectionSaved:    "Saved",
	sectionProgress: "Progress",
}

// Deps are the services the dashboard reads through.
type Deps struct {
	Courses  CourseService
	Jobs     JobService
	Progress ProgressService
	Player   VideoPlayer
	Logger   *slog.Logger
	Now      func() time.Time
}

type pane struct {
	state status
	err   error
	table table.Model
	ids   []domain.ID
}

func (p pane) selected() (domain.ID, bool) {
	i := p.table.Cursor()
	if i < 0 || i >= len(p.ids) {
		return "", false
	}
	return p.ids[i], true
}

// courseView is the lesson list of one opened course.
type courseView struct {
	gen     int
	id      domain.ID
	title   string
	loading bool
	stale   bool
	err     error
	course  domain.Course
	engine  *progress.Engine
	lessons pane

	watching domain.ID
	watched  float64
}

// Model represents the Bubble Tea program state.
type Model struct {
	ctx     context.Context
	deps    Deps
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	active  section
	panes   map[section]*pane

	courses  []domain.Course
	jobs     []domain.Job
	records  []domain.CourseProgress
	savedIDs map[domain.ID]bool

	detail *courseView
	gen    int

	notice    string
	noticeErr bool
	width     int
	height    int
}

// New creates the root model.
func New(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	panes := map[section]*pane{
		sectionCourses:  {table: createTable(courseColumnTitles, []int{30, 14, 12, 12, 8}, true)},
		sectionJobs:     {table: createTable(jobColumnTitles, []int{2, 24, 18, 18, 12, 12}, false)},
		sectionSaved:    {table: createTable(savedColumnTitles, []int{24, 18, 18, 12, 10}, false)},
		sectionProgress: {table: createTable(progressColumnTitles, []int{30, 10, 12, 14}, false)},
	}

	return Model{
		ctx:      ctx,
		deps:     deps,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  sp,
		active:   sectionCourses,
		panes:    panes,
		savedIDs: make(map[domain.ID]bool),
	}
}

// Init bootstraps the async loads and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadCourses(m.ctx, m.deps.Courses, false),
		loadJobs(m.ctx, m.deps.Jobs, false),
		loadSaved(m.ctx, m.deps.Jobs, false),
		loadProgress(m.ctx, m.deps.Progress, false),
	)
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.detail != nil {
			return m.updateCourseKeys(msg)
		}
		return m.updateListKeys(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case CoursesLoadedMsg:
		p := m.panes[sectionCourses]
		if msg.Err != nil {
			p.state, p.err = statusError, msg.Err
			return m, nil
		}
		m.courses = msg.Courses
		p.state, p.err = statusReady, nil
		rows, ids := coursesToRows(msg.Courses)
		p.table.SetRows(rows)
		p.ids = ids
		m.refreshProgressRows()
		return m, nil

	case JobsLoadedMsg:
		p := m.panes[sectionJobs]
		if msg.Err != nil {
			p.state, p.err = statusError, msg.Err
			return m, nil
		}
		m.jobs = msg.Jobs
		p.state, p.err = statusReady, nil
		m.refreshJobRows()
		return m, nil

	case SavedLoadedMsg:
		p := m.panes[sectionSaved]
		if msg.Err != nil {
			p.state, p.err = statusError, msg.Err
			return m, nil
		}
		p.state, p.err = statusReady, nil
		m.savedIDs = make(map[domain.ID]bool, len(msg.Saved))
		for _, s := range msg.Saved {
			m.savedIDs[s.ID] = true
		}
		rows, ids := savedToRows(msg.Saved)
		p.table.SetRows(rows)
		p.ids = ids
		m.refreshJobRows()
		return m, nil

	case ProgressLoadedMsg:
		p := m.panes[sectionProgress]
		if msg.Err != nil {
			p.state, p.err = statusError, msg.Err
			return m, nil
		}
		m.records = msg.Records
		p.state, p.err = statusReady, nil
		m.refreshProgressRows()
		return m, nil

	case SaveToggledMsg:
		if msg.Err != nil {
			m.setError("Could not update saved jobs", msg.Err)
			return m, nil
		}
		if msg.Saved {
			m.setNotice("Job saved")
		} else {
			m.setNotice("Job removed from saved")
		}
		return m, loadSaved(m.ctx, m.deps.Jobs, false)

	case CourseLoadedMsg:
		if m.detail == nil || msg.Gen != m.detail.gen {
			return m, nil
		}
		m.applyCourse(msg)
		return m, nil

	case PlaybackStartedMsg:
		if m.detail == nil || msg.Gen != m.detail.gen {
			return m, drainTelemetry(msg.Telemetry)
		}
		if msg.Err != nil {
			m.detail.watching = ""
			m.setError("Could not start playback", msg.Err)
			return m, nil
		}
		m.setNotice("Playing " + msg.Lesson.Title)
		return m, observeTelemetry(m.ctx, m.detail.engine, msg.Gen, msg.Telemetry)

	case LessonProgressMsg:
		if m.detail == nil || msg.Gen != m.detail.gen {
			return m, drainTelemetry(msg.Telemetry)
		}
		m.detail.watched = msg.Percent
		tr := msg.Transition
		switch {
		case tr.RolledBack:
			m.setError("Progress not saved, lesson locked again", tr.Err)
		case tr.Err != nil:
			m.setError("Progress not saved yet (R to resend)", tr.Err)
		case tr.Advanced:
			m.setNotice(fmt.Sprintf("Lesson complete, course %d%% done", tr.Percent))
		}
		if tr.Advanced {
			m.refreshLessonRows()
			m.followUnlock()
		}
		return m, observeTelemetry(m.ctx, m.detail.engine, msg.Gen, msg.Telemetry)

	case PlaybackEndedMsg:
		if m.detail != nil && msg.Gen == m.detail.gen {
			m.detail.watching = ""
		}
		return m, loadProgress(m.ctx, m.deps.Progress, false)

	case RetriedMsg:
		if m.detail == nil || msg.Gen != m.detail.gen {
			return m, nil
		}
		if msg.Err != nil {
			m.setError("Resend failed", msg.Err)
		} else {
			m.setNotice("Progress saved")
		}
		m.refreshLessonRows()
		return m, nil
	}

	return m, nil
}

func (m Model) updateListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Tab1):
		m.activate(sectionCourses)
	case key.Matches(msg, m.keys.Tab2):
		m.activate(sectionJobs)
	case key.Matches(msg, m.keys.Tab3):
		m.activate(sectionSaved)
	case key.Matches(msg, m.keys.Tab4):
		m.activate(sectionProgress)
	case key.Matches(msg, m.keys.NextTab):
		m.activate(m.active.next())
	case key.Matches(msg, m.keys.PrevTab):
		m.activate(m.active.prev())
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	case key.Matches(msg, m.keys.ToggleSave):
		if m.active == sectionJobs || m.active == sectionSaved {
			if id, ok := m.panes[m.active].selected(); ok {
				return m, toggleSave(m.ctx, m.deps.Jobs, id)
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if m.active == sectionCourses || m.active == sectionProgress {
			if id, ok := m.panes[m.active].selected(); ok {
				return m, m.openCourse(id)
			}
		}
		return m, nil
	default:
		p := m.panes[m.active]
		var cmd tea.Cmd
		p.table, cmd = p.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateCourseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		// replies still in flight for this view are dropped by gen
		m.detail = nil
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		if d.engine != nil && d.engine.Pending() {
			return m, retryReport(m.ctx, d.engine, d.gen)
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if d.engine == nil || d.watching != "" {
			return m, nil
		}
		id, ok := d.lessons.selected()
		if !ok {
			return m, nil
		}
		lesson, err := d.engine.Playable(id)
		if err != nil {
			if errors.Is(err, domain.ErrLessonLocked) && !d.course.Enrolled() {
				m.setError("Enroll to watch this course", err)
			} else {
				m.setError("Lesson unavailable", err)
			}
			return m, nil
		}
		d.engine.BeginViewing(lesson.ID)
		d.watching, d.watched = lesson.ID, 0
		return m, startPlayback(m.ctx, m.deps.Player, d.gen, lesson)
	default:
		var cmd tea.Cmd
		d.lessons.table, cmd = d.lessons.table.Update(msg)
		return m, cmd
	}
}

func (m *Model) openCourse(id domain.ID) tea.Cmd {
	m.gen++
	d := &courseView{
		gen:     m.gen,
		id:      id,
		title:   "Course " + string(id),
		loading: true,
		lessons: pane{table: createTable(lessonColumnTitles, []int{2, 4, 40, 10}, true)},
	}
	if c, ok := m.deps.Courses.PeekCourse(id); ok {
		d.title = c.Title
	}
	m.detail = d
	m.resize()
	return tea.Batch(m.spinner.Tick, loadCourse(m.ctx, m.deps.Courses, m.deps.Progress, d.gen, id))
}

func (m *Model) applyCourse(msg CourseLoadedMsg) {
	d := m.detail
	d.loading = false
	course, ok := msg.Result.Best()
	if !ok {
		d.err = msg.Result.Err
		return
	}
	d.stale = msg.Result.Err != nil
	d.err = msg.Result.Err
	d.course = course
	d.title = course.Title

	var rec *domain.CourseProgress
	if msg.HasRecord {
		rec = &msg.Record
	}
	d.engine = progress.NewEngine(course, course.Enrolled(), rec, m.deps.Progress, progress.WithLogger(m.deps.Logger))
	m.refreshLessonRows()
}

// followUnlock moves the cursor to the lesson that just unlocked.
func (m *Model) followUnlock() {
	d := m.detail
	if n := d.engine.Unlocked(); n < len(d.lessons.ids) {
		d.lessons.table.SetCursor(n)
	}
}

func (m *Model) refreshLessonRows() {
	if m.detail == nil || m.detail.engine == nil {
		return
	}
	rows, ids := lessonsToRows(m.detail.engine)
	m.detail.lessons.table.SetRows(rows)
	m.detail.lessons.ids = ids
	m.detail.lessons.state = statusReady
}

func (m *Model) refreshJobRows() {
	p := m.panes[sectionJobs]
	rows, ids := jobsToRows(m.jobs, m.savedIDs, m.deps.Now())
	p.table.SetRows(rows)
	p.ids = ids
}

func (m *Model) refreshProgressRows() {
	p := m.panes[sectionProgress]
	rows, ids := progressToRows(m.records, m.courses)
	p.table.SetRows(rows)
	p.ids = ids
}

func (m *Model) refresh() tea.Cmd {
	p := m.panes[m.active]
	p.state, p.err = statusLoading, nil
	var load tea.Cmd
	switch m.active {
	case sectionCourses:
		load = loadCourses(m.ctx, m.deps.Courses, true)
	case sectionJobs:
		load = loadJobs(m.ctx, m.deps.Jobs, true)
	case sectionSaved:
		load = loadSaved(m.ctx, m.deps.Jobs, true)
	case sectionProgress:
		load = loadProgress(m.ctx, m.deps.Progress, true)
	}
	return tea.Batch(m.spinner.Tick, load)
}

func (m *Model) activate(sec section) {
	for s, p := range m.panes {
		if s == sec {
			p.table.Focus()
		} else {
			p.table.Blur()
		}
	}
	m.active = sec
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	height := max(5, m.height-8)
	width := max(20, m.width-6)

	weights := map[section][]int{
		sectionCourses:  courseColumnWeights,
		sectionJobs:     jobColumnWeights,
		sectionSaved:    savedColumnWeights,
		sectionProgress: progressColumnWeights,
	}
	titles := map[section][]string{
		sectionCourses:  courseColumnTitles,
		sectionJobs:     jobColumnTitles,
		sectionSaved:    savedColumnTitles,
		sectionProgress: progressColumnTitles,
	}
	for s, p := range m.panes {
		p.table.SetHeight(height)
		p.table.SetWidth(width)
		p.table.SetColumns(buildColumns(titles[s], distributeWidths(width-2, weights[s])))
	}
	if m.detail != nil {
		t := &m.detail.lessons.table
		t.SetHeight(max(3, height-2))
		t.SetWidth(width)
		t.SetColumns(buildColumns(lessonColumnTitles, distributeWidths(width-2, lessonColumnWeights)))
	}
}

func (m *Model) setNotice(s string) {
	m.notice, m.noticeErr = s, false
}

func (m *Model) setError(s string, err error) {
	m.deps.Logger.Warn(s, "error", err)
	if err != nil {
		s = s + ": " + err.Error()
	}
	m.notice, m.noticeErr = s, true
}

// View renders the interface.
func (m Model) View() string {
	var body, footer string
	if m.detail != nil {
		body = m.renderCourse()
		footer = m.help.ShortHelpView(m.keys.CourseHelp())
	} else {
		body = m.renderList()
		footer = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	parts := []string{m.tabsBar(), body}
	if m.notice != "" {
		style := styles.SuccessStyle
		if m.noticeErr {
			style = styles.ErrorStyle
		}
		parts = append(parts, styles.BarStyle.Render(style.Render(m.notice)))
	}
	parts = append(parts, styles.BarStyle.Render(footer))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) tabsBar() string {
	tabs := make([]string, 0, sectionCount)
	for s := sectionCourses; s < sectionCount; s++ {
		label := fmt.Sprintf("%d %s", int(s)+1, sectionNames[s])
		if s == m.active {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderList() string {
	p := m.panes[m.active]
	switch p.state {
	case statusLoading:
		return styles.InactiveBorder.Render(fmt.Sprintf("%s Loading %s…", m.spinner.View(), strings.ToLower(sectionNames[m.active])))
	case statusError:
		return styles.InactiveBorder.Render(styles.ErrorStyle.Render("Failed to load: " + p.err.Error()))
	}
	if len(p.ids) == 0 {
		return styles.InactiveBorder.Render(styles.DimStyle.Render("Nothing here yet."))
	}
	return styles.ActiveBorder.Render(p.table.View())
}

func (m Model) renderCourse() string {
	d := m.detail
	header := styles.TitleStyle.Render(d.title)

	if d.engine == nil {
		if d.loading {
			return styles.ActiveBorder.Render(header + "\n\n" + m.spinner.View() + " Loading course…")
		}
		return styles.ActiveBorder.Render(header + "\n\n" + styles.ErrorStyle.Render("Failed to load course: "+errText(d.err)))
	}

	pct := d.engine.Percent()
	info := fmt.Sprintf("%s %3d%%", styles.RenderProgressBar(float64(pct), 20), pct)
	if !d.course.Enrolled() {
		info += "  " + styles.DimBadgeStyle.Render("not enrolled")
	}
	if d.engine.Pending() {
		info += "  " + styles.WarnStyle.Render(styles.PendingChar+" unsaved progress")
	}
	if d.stale {
		info += "  " + styles.WarnStyle.Render("offline: "+errText(d.err))
	}
	if d.watching != "" {
		info += "  " + styles.AccentStyle.Render(fmt.Sprintf("watching %.0f%%", d.watched))
	}

	return styles.ActiveBorder.Render(lipgloss.JoinVertical(lipgloss.Left, header, info, d.lessons.table.View()))
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
