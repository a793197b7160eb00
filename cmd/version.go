package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Show version information",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("tock %s\n", versionStr)

		check, _ := cmd.Flags().GetBool("check")
		if !check {
			return nil
		}
		if version.IsDevelopmentVersion(versionStr) {
			fmt.Println("Development build; update check skipped.")
			return nil
		}

		a, err := getApp()
		if err != nil {
			return err
		}
		msg := version.NewChecker().CheckCached(cmd.Context(), a.settings.Backend(), versionStr)
		if msg == nil {
			fmt.Println("Up to date.")
			return nil
		}
		fmt.Printf("%s available. Update with:\n  %s\n", msg.LatestVersion, msg.UpdateCommand)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("check", false, "Check for a newer release")
	rootCmd.AddCommand(versionCmd)
}
