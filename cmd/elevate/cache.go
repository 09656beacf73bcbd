package main

import (
	"context"
	"fmt"

	"github.com/mmcdole/elevate/internal/cache"
	"github.com/spf13/cobra"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached data",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached slots",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			keys := a.store.Keys()
			rows := make([][]string, len(keys))
			for i, k := range keys {
				rows[i] = []string{k}
			}
			printTable(cmd.OutOrStdout(), []string{"Slot"}, rows)
			return nil
		}),
	}

	var kind string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached data",
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if kind == "" {
				a.store.Clear()
				success(cmd.OutOrStdout(), "Cache cleared")
				return nil
			}
			k, ok := cache.ParseKind(kind)
			if !ok {
				return fmt.Errorf("unknown cache kind %q", kind)
			}
			a.cache.InvalidateKind(k)
			success(cmd.OutOrStdout(), "Cleared %s", k)
			return nil
		}),
	}
	clearCmd.Flags().StringVar(&kind, "kind", "", "Only this resource kind, e.g. jobsData")

	cmd.AddCommand(list, clearCmd)
	return cmd
}
