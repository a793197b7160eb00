package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/tui"
	"github.com/tockapp/tock/internal/version"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Live view of the running timer and feature flags",
	Long: `Full-screen view of the running entry and your feature flags.

Flags are re-loaded in the background every featuresRefreshInterval (or
TOCK_FEATURES_REFRESH_INTERVAL) when set. Keys: r reload, c clear cached
flags, s stop the running entry, q quit.`,
	GroupID: "tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a.cache.LoadFeatures(ctx)
		a.cache.Refresh()
		go a.cache.AutoRefresh(ctx, a.settings.RefreshInterval())

		interval, _ := cmd.Flags().GetDuration("interval")
		model := tui.NewModel(ctx, a.client, a.cache, interval).
			WithUpdateCheck(version.NewChecker().CheckAsync(ctx, a.settings.Backend(), versionStr))

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running watch: %w", err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 30*time.Second, "How often to re-fetch the running entry")

	rootCmd.AddCommand(watchCmd)
}
