package cmd

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/output"
)

// featureRow is one line of features list output.
type featureRow struct {
	Key         string `json:"key"`
	Enabled     bool   `json:"enabled"`
	Known       bool   `json:"known"`
	Gated       bool   `json:"gated"`
	Description string `json:"description,omitempty"`
}

// featureRows merges the client's gates with every key in st.
func featureRows(st features.State) []featureRow {
	seen := make(map[string]bool)
	var rows []featureRow
	add := func(key, desc string) {
		if seen[key] {
			return
		}
		seen[key] = true
		enabled, known := st.Lookup(key)
		rows = append(rows, featureRow{
			Key:         key,
			Enabled:     enabled,
			Known:       known,
			Gated:       features.IsKnownFeature(key),
			Description: desc,
		})
	}

	for _, f := range features.ListAll() {
		add(f.Name, f.Description)
	}
	for _, k := range st.EnabledFeatures.Keys() {
		add(k, "")
	}
	for _, k := range st.DisabledFeatures.Keys() {
		add(k, "")
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows
}

var errFeatureLoad = errors.New(features.LoadErrorMessage)

var featuresCmd = &cobra.Command{
	Use:     "features",
	Aliases: []string{"flags"},
	Short:   "Inspect feature flags for your account",
	GroupID: "features",
}

var featuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "Load and list all feature flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}

		a.cache.LoadFeatures(cmd.Context())
		st := a.cache.State()
		if st.Error != "" {
			output.Error("%s", st.Error)
			return errFeatureLoad
		}

		rows := featureRows(st)
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(rows)
		}

		for _, r := range rows {
			line := fmt.Sprintf("%-20s %s", r.Key, output.FeatureBadge(r.Enabled, r.Known))
			if r.Description != "" {
				line += "  " + r.Description
			}
			fmt.Println(line)
		}
		return nil
	},
}

var featuresCheckCmd = &cobra.Command{
	Use:   "check <key>",
	Short: "Check whether a feature is enabled",
	Long: `Check whether a feature is enabled for your account.

Without --load the key is checked directly against the server. Anything that
cannot be determined (network errors, unknown keys) is reported as disabled.
Exits non-zero when the feature is disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		key := args[0]

		if load, _ := cmd.Flags().GetBool("load"); load {
			a.cache.LoadFeatures(ctx)
			if st := a.cache.State(); st.Error != "" {
				output.Warning("%s; checking %s directly", st.Error, key)
			}
		}

		enabled := a.cache.IsFeatureEnabled(ctx, key)

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if err := output.JSON(map[string]any{"key": key, "enabled": enabled}); err != nil {
				return err
			}
		} else {
			fmt.Printf("%s %s\n", key, output.FeatureBadge(enabled, true))
		}

		if !enabled {
			return fmt.Errorf("feature %s is disabled", key)
		}
		return nil
	},
}

var featuresLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load all feature flags and show a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := requireAuth()
		if err != nil {
			return err
		}

		a.cache.LoadFeatures(cmd.Context())
		st := a.cache.State()

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			if err := output.JSON(map[string]any{
				"enabled_features":  st.EnabledFeatures.Keys(),
				"disabled_features": st.DisabledFeatures.Keys(),
				"error":             st.Error,
				"last_updated":      st.LastUpdated,
			}); err != nil {
				return err
			}
		} else if st.Error == "" {
			output.Success("Loaded %d enabled, %d disabled features at %s",
				len(st.EnabledFeatures), len(st.DisabledFeatures), st.LastUpdated.Format(time.Kitchen))
		}

		if st.Error != "" {
			output.Error("%s", st.Error)
			return errFeatureLoad
		}
		return nil
	},
}

func init() {
	featuresListCmd.Flags().Bool("json", false, "Output as JSON")
	featuresCheckCmd.Flags().Bool("json", false, "Output as JSON")
	featuresCheckCmd.Flags().Bool("load", false, "Load all flags before checking")
	featuresLoadCmd.Flags().Bool("json", false, "Output as JSON")

	featuresCmd.AddCommand(featuresListCmd)
	featuresCmd.AddCommand(featuresCheckCmd)
	featuresCmd.AddCommand(featuresLoadCmd)
	rootCmd.AddCommand(featuresCmd)
}
