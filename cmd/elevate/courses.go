package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/mmcdole/elevate/internal/catalog"
	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/payment"
	"github.com/mmcdole/elevate/internal/progress"
	"github.com/mmcdole/elevate/internal/tui/styles"
	"github.com/spf13/cobra"
)

func coursesCmd() *cobra.Command {
	var (
		filter  catalog.Filter
		price   string
		search  string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:     "courses",
		Short:   "List the course catalog",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			p, ok := catalog.ParsePriceFilter(price)
			if !ok {
				return &domain.ValidationError{Field: "price", Message: "must be free or paid"}
			}
			filter.Price = p

			load := a.catalog.Courses
			if refresh {
				load = a.catalog.RefreshCourses
			}
			courses, err := load(ctx)
			if err != nil {
				return err
			}

			courses = filter.Apply(courses)
			if search != "" {
				matches := catalog.Search(courses, search)
				courses = make([]domain.Course, len(matches))
				for i, m := range matches {
					courses[i] = m.Course
				}
			}

			rows := make([][]string, len(courses))
			for i, c := range courses {
				rows[i] = []string{string(c.ID), c.Title, orDash(c.Category), orDash(c.Difficulty), domain.PriceLabel(c), enrolledMark(c)}
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Category", "Level", "Price", "Enrolled"}, rows)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&filter.Category, "category", "", "Only courses in this category")
	f.StringVar(&filter.Difficulty, "level", "", "Only courses at this difficulty")
	f.StringVar(&filter.Language, "language", "", "Only courses taught in this language")
	f.StringVar(&price, "price", "", "free or paid")
	f.StringVar(&search, "search", "", "Fuzzy match course titles")
	f.BoolVar(&refresh, "refresh", false, "Ignore cached data")
	return cmd
}

func courseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "course <id>",
		Short: "Show a course with its lessons",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			id := domain.ID(args[0])
			res := a.catalog.Course(ctx, id)
			course, ok := res.Best()
			if !ok {
				return res.Err
			}
			out := cmd.OutOrStdout()
			if res.Err != nil {
				warn(out, "Showing cached data: %v", res.Err)
			}

			rec, hasRec, err := a.progress.For(ctx, id)
			if err != nil {
				a.logger.Warn("progress unavailable", "courseID", id, "error", err)
			}
			var recPtr *domain.CourseProgress
			if hasRec {
				recPtr = &rec
			}
			engine := progress.NewEngine(course, course.Enrolled(), recPtr, a.progress, progress.WithLogger(a.logger))

			fmt.Fprintln(out, styles.TitleStyle.Render(course.Title))
			printField(out, "Instructor", course.Instructor)
			printField(out, "Category", course.Category)
			printField(out, "Level", course.Difficulty)
			printField(out, "Language", course.Language)
			printField(out, "Duration", course.Duration)
			printField(out, "Price", domain.PriceLabel(course))
			if course.Enrolled() {
				printField(out, "Progress", fmt.Sprintf("%s %d%%", styles.RenderProgressBar(float64(engine.Percent()), 20), engine.Percent()))
			} else {
				printField(out, "Enrolled", "no (elevate enroll "+string(course.ID)+")")
			}
			if course.Description != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, course.Description)
			}
			fmt.Fprintln(out)

			lessons := engine.Lessons()
			rows := make([][]string, len(lessons))
			for i, l := range lessons {
				rows[i] = []string{lessonMark(engine, i), strconv.Itoa(i + 1), string(l.ID), l.Title, orDash(l.Duration)}
			}
			printTable(out, []string{"", "#", "ID", "Lesson", "Duration"}, rows)
			return nil
		}),
	}
}

func enrollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enroll <id>",
		Short: "Enroll in a course, paying through the checkout page when needed",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			res := a.catalog.Course(ctx, domain.ID(args[0]))
			if res.Err != nil {
				return res.Err
			}
			course := res.Value
			if course.Enrolled() {
				success(out, "Already enrolled in %s", course.Title)
				return nil
			}

			user, err := a.client.GetProfile(ctx)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			orch := a.payments()
			orch.OnTransition(func(tr payment.Transition) {
				if tr.To == payment.WidgetOpen {
					fmt.Fprintln(out, styles.DimStyle.Render("Complete the payment in your browser (Ctrl+C to cancel)…"))
				}
			})

			outcome, err := orch.Enroll(ctx, course, user)
			switch {
			case errors.Is(err, domain.ErrPaymentCancelled):
				warn(out, "Payment cancelled")
				return nil
			case err != nil:
				return err
			}
			success(out, "Enrolled in %s", outcome.Course.Title)
			return nil
		}),
	}
}

func watchCmd() *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "watch <course-id> <lesson-id>",
		Short: "Play a lesson and record completion",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			out := cmd.OutOrStdout()
			courseID, lessonID := domain.ID(args[0]), domain.ID(args[1])

			res := a.catalog.Course(ctx, courseID)
			course, ok := res.Best()
			if !ok {
				return res.Err
			}
			rec, hasRec, err := a.progress.For(ctx, courseID)
			if err != nil {
				return err
			}
			var recPtr *domain.CourseProgress
			if hasRec {
				recPtr = &rec
			}

			opts := []progress.Option{progress.WithLogger(a.logger)}
			if rollback {
				opts = append(opts, progress.WithRollback())
			}
			engine := progress.NewEngine(course, course.Enrolled(), recPtr, a.progress, opts...)

			lesson, err := engine.Playable(lessonID)
			if err != nil {
				if errors.Is(err, domain.ErrLessonLocked) && !course.Enrolled() {
					return fmt.Errorf("enroll to watch this course: %w", err)
				}
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			engine.BeginViewing(lesson.ID)
			telemetry, err := a.player.Play(ctx, lesson)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s Playing %s\n", styles.CurrentMark, lesson.Title)

			for t := range telemetry {
				tr := engine.Observe(ctx, t)
				switch {
				case tr.RolledBack:
					warn(out, "Could not save progress, lesson locked again: %v", tr.Err)
				case tr.Err != nil:
					warn(out, "Could not save progress yet: %v", tr.Err)
				case tr.Advanced:
					success(out, "Lesson complete, course %d%% done", tr.Percent)
				}
			}

			// one resend before giving up on an unconfirmed unlock
			if engine.Pending() {
				if err := engine.Retry(context.WithoutCancel(ctx)); err != nil {
					return fmt.Errorf("progress not saved: %w", err)
				}
				success(out, "Progress saved")
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Re-lock a lesson whose completion could not be saved")
	return cmd
}

func progressCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show progress across enrolled courses",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			load := a.progress.All
			if refresh {
				load = a.progress.Refresh
			}
			records, err := load(ctx)
			if err != nil {
				return err
			}

			titles := make(map[domain.ID]string)
			if courses, ok := a.catalog.CachedCourses(); ok {
				for _, c := range courses {
					titles[c.ID] = c.Title
				}
			}

			rows := make([][]string, len(records))
			for i, r := range records {
				title, ok := titles[r.CourseID]
				if !ok {
					title = "Course " + string(r.CourseID)
				}
				rows[i] = []string{
					string(r.CourseID),
					title,
					fmt.Sprintf("%s %3d%%", styles.RenderProgressBar(float64(r.ProgressPercentage), 20), r.ProgressPercentage),
					orDash(string(r.LastAccessedLessonID)),
				}
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Course", "Progress", "Last Lesson"}, rows)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached data")
	return cmd
}

func lessonMark(e *progress.Engine, i int) string {
	switch {
	case e.IsLocked(i):
		return styles.LockedMark
	case i < e.Unlocked() && i >= e.Confirmed():
		return styles.PendingMark
	case i < e.Unlocked():
		return styles.CompletedMark
	default:
		return styles.CurrentMark
	}
}

func enrolledMark(c domain.Course) string {
	if c.Enrolled() {
		return styles.CompletedChar
	}
	return "-"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
