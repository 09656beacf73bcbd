package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/elevate/internal/tui"
	"github.com/spf13/cobra"
)

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:        "tui",
		Short:      "Open the interactive dashboard",
		Aliases:    []string{"ui"},
		SuggestFor: []string{"console", "dashboard"},
		Args:       cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			model := tui.New(ctx, tui.Deps{
				Courses:  a.catalog,
				Jobs:     a.jobs,
				Progress: a.progress,
				Player:   a.player,
				Logger:   a.logger,
			})

			a.logger.Info("starting TUI")
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				a.logger.Error("TUI error", "error", err)
				return fmt.Errorf("TUI error: %w", err)
			}
			a.logger.Info("shutting down")
			return nil
		}),
	}
}
