package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/output"
	"github.com/tockapp/tock/internal/procs"
	"github.com/tockapp/tock/internal/timer"
)

// cursorFrom extracts the cursor parameter from a pagination link.
func cursorFrom(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Short:   "List your projects",
	GroupID: "tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}

		projects, err := a.client.ListProjects(cmd.Context())
		if err != nil {
			return apiError("list projects", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(projects)
		}
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for i := range projects {
			fmt.Println(output.FormatProject(&projects[i]))
		}
		return nil
	},
}

var timerCmd = &cobra.Command{
	Use:     "timer",
	Short:   "Print the running timer state",
	Long:    `Print the running timer as {active, title, elapsed_seconds}. Requires tray_timer.`,
	GroupID: "tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := requireFeature(features.TrayTimer, a.gate.TrayTimerEnabled(ctx)); err != nil {
			return err
		}

		st, err := timer.Current(ctx, a.client, time.Now())
		if err != nil {
			return apiError("timer", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(st)
		}
		if !st.Active {
			fmt.Println("No timer running.")
			return nil
		}
		fmt.Printf("%s  %s\n", *st.Title, output.FormatElapsed(st.Elapsed()))
		return nil
	},
}

var processesCmd = &cobra.Command{
	Use:     "processes",
	Aliases: []string{"ps"},
	Short:   "List running processes by CPU usage",
	Long:    `List running processes, busiest first, to help name time entries. Requires process_tracking.`,
	GroupID: "tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := requireFeature(features.ProcessTracking, a.gate.ProcessTrackingEnabled(ctx)); err != nil {
			return err
		}

		ps, err := procs.List(ctx, procs.System{})
		if err != nil {
			output.Error("%v", err)
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		ps = procs.Top(ps, limit)

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(ps)
		}
		fmt.Printf("%-8s %6s %10s  %s\n", "PID", "CPU%", "MEM", "NAME")
		for _, p := range ps {
			fmt.Printf("%-8d %6.1f %9.1fM  %s\n", p.PID, p.CPUUsage, float64(p.MemoryUsage)/(1<<20), p.Name)
		}
		return nil
	},
}

func init() {
	projectsCmd.Flags().Bool("json", false, "Output as JSON")
	timerCmd.Flags().Bool("json", false, "Output as JSON")
	processesCmd.Flags().IntP("limit", "n", 15, "Show at most n processes (0 for all)")
	processesCmd.Flags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(processesCmd)
}
