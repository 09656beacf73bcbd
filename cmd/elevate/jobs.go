package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mmcdole/elevate/internal/domain"
	"github.com/mmcdole/elevate/internal/jobboard"
	"github.com/mmcdole/elevate/internal/tui/styles"
	"github.com/spf13/cobra"
)

func jobsCmd() *cobra.Command {
	var (
		filter  jobboard.Filter
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List job postings",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			load := a.jobs.Jobs
			if refresh {
				load = a.jobs.RefreshJobs
			}
			jobs, err := load(ctx)
			if err != nil {
				return err
			}

			// the saved marker is best effort; anonymous users have no saved set
			saved := make(map[domain.ID]bool)
			if set, err := a.jobs.Saved(ctx); err == nil {
				for _, s := range set {
					saved[s.ID] = true
				}
			}

			jobs = filter.Apply(jobs)
			now := time.Now()
			rows := make([][]string, len(jobs))
			for i, j := range jobs {
				mark := ""
				if saved[j.ID] {
					mark = "★"
				}
				rows[i] = []string{
					mark,
					string(j.ID),
					j.Title,
					j.CompanyName,
					j.Location,
					jobboard.JobTypeLabel(j.JobType),
					jobboard.ModeLabel(j.Mode),
					orDash(jobboard.PostedAgo(j.CreatedTime(), now)),
				}
			}
			printTable(cmd.OutOrStdout(), []string{"", "ID", "Title", "Company", "Location", "Type", "Mode", "Posted"}, rows)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&filter.Location, "location", "", "Only jobs whose location contains this text")
	f.StringSliceVar(&filter.Types, "type", nil, "Only these job types (repeatable)")
	f.StringVar(&filter.Mode, "mode", "", "remote, hybrid or onsite")
	f.StringVar(&filter.Keyword, "search", "", "Rank by fuzzy match on title and company")
	f.BoolVar(&refresh, "refresh", false, "Ignore cached data")
	return cmd
}

func jobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show a job posting",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			res := a.jobs.Job(ctx, domain.ID(args[0]))
			job, ok := res.Best()
			if !ok {
				return res.Err
			}
			out := cmd.OutOrStdout()
			if res.Err != nil {
				warn(out, "Showing cached data: %v", res.Err)
			}

			fmt.Fprintln(out, styles.TitleStyle.Render(job.Title))
			printField(out, "Company", job.CompanyName)
			printField(out, "Location", job.Location)
			printField(out, "Type", jobboard.JobTypeLabel(job.JobType))
			printField(out, "Mode", jobboard.ModeLabel(job.Mode))
			printField(out, "Package", job.Package)
			if job.Openings > 0 {
				printField(out, "Openings", strconv.Itoa(job.Openings))
			}
			printField(out, "Posted", jobboard.PostedAgo(job.CreatedTime(), time.Now()))
			printField(out, "Apply", job.ApplyLink)
			if saved, err := a.jobs.IsSaved(ctx, job.ID); err == nil && saved {
				printField(out, "Saved", "★")
			}
			if job.Description != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, job.Description)
			}
			return nil
		}),
	}
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <id>",
		Short: "Add a job to your saved list",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			saved, err := a.jobs.Save(ctx, domain.ID(args[0]))
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Job saved (%d saved)", len(saved))
			return nil
		}),
	}
}

func unsaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsave <id>",
		Short: "Remove a job from your saved list",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			saved, err := a.jobs.Unsave(ctx, domain.ID(args[0]))
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Job removed from saved (%d saved)", len(saved))
			return nil
		}),
	}
}

func savedCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "List your saved jobs",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			load := a.jobs.Saved
			if refresh {
				load = a.jobs.RefreshSaved
			}
			saved, err := load(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, len(saved))
			for i, s := range saved {
				rows[i] = []string{string(s.ID), s.Title, s.CompanyName, s.Location, jobboard.JobTypeLabel(s.JobType), jobboard.ModeLabel(s.Mode)}
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Company", "Location", "Type", "Mode"}, rows)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached data")
	return cmd
}
