package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/apiclient"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/output"
)

var entriesCmd = &cobra.Command{
	Use:     "entries",
	Aliases: []string{"e"},
	Short:   "List, start and stop time entries",
	GroupID: "tracking",
}

var entriesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List time entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		cursor, _ := cmd.Flags().GetString("cursor")

		page, err := a.client.ListTimeEntries(cmd.Context(), cursor, limit)
		if err != nil {
			return apiError("list entries", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(page)
		}

		if len(page.Results) == 0 {
			fmt.Println("No time entries.")
			return nil
		}
		now := time.Now()
		for i := range page.Results {
			fmt.Println(output.FormatEntryShort(&page.Results[i], now))
		}
		if page.Next != nil {
			if c := cursorFrom(*page.Next); c != "" {
				fmt.Printf("\nMore: tock entries list --cursor %s\n", c)
			}
		}
		return nil
	},
}

var entriesStartCmd = &cobra.Command{
	Use:   "start <title>",
	Short: "Start a new time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		project, _ := cmd.Flags().GetInt("project")
		if project <= 0 {
			output.Error("--project is required (see: tock projects)")
			return fmt.Errorf("project required")
		}
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetIntSlice("tag")

		if len(tags) > 0 {
			if err := requireFeature(features.TimeEntryTags, a.gate.TimeEntryTagsEnabled(ctx)); err != nil {
				return err
			}
		}

		entry, err := a.client.StartTimeEntry(ctx, &apiclient.StartTimeEntryRequest{
			Title:       args[0],
			Description: description,
			Project:     project,
			Tags:        tags,
		})
		if err != nil {
			return apiError("start entry", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(entry)
		}
		output.Success("Started #%d %s", entry.ID, entry.Title)
		return nil
	},
}

var entriesStopCmd = &cobra.Command{
	Use:   "stop [id]",
	Short: "Stop the running entry (or the given one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var id int
		if len(args) == 1 {
			id, err = strconv.Atoi(args[0])
			if err != nil {
				output.Error("invalid entry id %q", args[0])
				return err
			}
		} else {
			active, err := a.client.CurrentActive(ctx)
			if err != nil {
				return apiError("current entry", err)
			}
			if active == nil {
				output.Warning("no timer running")
				return nil
			}
			id = active.ID
		}

		entry, err := a.client.StopTimeEntry(ctx, id)
		if err != nil {
			return apiError("stop entry", err)
		}
		output.Success("Stopped #%d %s (%s)", entry.ID, entry.Title,
			output.FormatDuration(output.EntryDuration(entry, time.Now())))
		return nil
	},
}

var entriesCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the running entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}

		entry, err := a.client.CurrentActive(cmd.Context())
		if err != nil {
			return apiError("current entry", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(entry)
		}
		if entry == nil {
			fmt.Println("No timer running.")
			return nil
		}
		fmt.Println(output.FormatEntryShort(entry, time.Now()))
		return nil
	},
}

var entriesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			output.Error("invalid entry id %q", args[0])
			return err
		}

		entry, err := a.client.GetTimeEntry(cmd.Context(), id)
		if err != nil {
			return apiError(fmt.Sprintf("entry %d", id), err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(entry)
		}
		fmt.Print(output.FormatEntryLong(entry, time.Now(), a.settings.Theme.Get()))
		return nil
	},
}

func init() {
	entriesListCmd.Flags().IntP("limit", "n", 20, "Entries per page")
	entriesListCmd.Flags().String("cursor", "", "Page cursor from a previous listing")
	entriesListCmd.Flags().Bool("json", false, "Output as JSON")

	entriesStartCmd.Flags().IntP("project", "p", 0, "Project id")
	entriesStartCmd.Flags().StringP("description", "d", "", "Description (markdown)")
	entriesStartCmd.Flags().IntSlice("tag", nil, "Tag id (repeatable; requires time_entry_tags)")
	entriesStartCmd.Flags().Bool("json", false, "Output as JSON")

	entriesCurrentCmd.Flags().Bool("json", false, "Output as JSON")
	entriesShowCmd.Flags().Bool("json", false, "Output as JSON")

	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesStartCmd)
	entriesCmd.AddCommand(entriesStopCmd)
	entriesCmd.AddCommand(entriesCurrentCmd)
	entriesCmd.AddCommand(entriesShowCmd)
	rootCmd.AddCommand(entriesCmd)
}
