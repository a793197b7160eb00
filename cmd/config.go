package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tockapp/tock/internal/features"
	"github.com/tockapp/tock/internal/output"
	"github.com/tockapp/tock/internal/settings"
)

// builtinThemes are always available; anything else needs custom_themes.
var builtinThemes = []string{"light", "dark"}

func isBuiltinTheme(name string) bool {
	for _, t := range builtinThemes {
		if t == name {
			return true
		}
	}
	return false
}

// formatValue renders a setting for display. The auth token is masked.
func formatValue(key string, v any) string {
	if key == settings.KeyAuthToken {
		s, _ := v.(string)
		return output.MaskToken(s)
	}
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage tock settings",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		key, val := args[0], args[1]

		switch key {
		case settings.KeyTheme:
			if !isBuiltinTheme(val) {
				if err := requireFeature(features.CustomThemes, a.gate.CustomThemesEnabled(cmd.Context())); err != nil {
					return err
				}
				if _, ok := a.settings.CustomThemes.Get()[val]; !ok {
					output.Error("unknown theme %q (define it in %s first)", val, settings.KeyCustomThemes)
					return fmt.Errorf("unknown theme %q", val)
				}
			}
		case settings.KeyCustomThemes:
			if err := requireFeature(features.CustomThemes, a.gate.CustomThemesEnabled(cmd.Context())); err != nil {
				return err
			}
		}

		if err := a.settings.SetString(key, val); err != nil {
			output.Error("%v", err)
			if errors.Is(err, settings.ErrUnknownKey) {
				fmt.Println("Valid keys:", strings.Join(a.settings.Keys(), ", "))
			}
			return err
		}

		// Flags may differ per server.
		if key == settings.KeyBaseURL {
			a.cache.Clear()
		}

		output.Success("Set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		key := args[0]

		v, err := a.settings.Value(key)
		if err != nil {
			output.Error("%v", err)
			fmt.Println("Valid keys:", strings.Join(a.settings.Keys(), ", "))
			return err
		}
		fmt.Println(formatValue(key, v))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}

		jsonOut, _ := cmd.Flags().GetBool("json")
		if jsonOut {
			values := make(map[string]any)
			for _, key := range a.settings.Keys() {
				v, _ := a.settings.Value(key)
				if key == settings.KeyAuthToken {
					v = formatValue(key, v)
				}
				values[key] = v
			}
			return output.JSON(values)
		}

		for _, key := range a.settings.Keys() {
			v, _ := a.settings.Value(key)
			fmt.Printf("%-24s %s\n", key, formatValue(key, v))
		}
		if dir := a.settings.Path(); dir != "" {
			fmt.Printf("\n(stored in %s)\n", dir)
		}
		return nil
	},
}

func init() {
	configListCmd.Flags().Bool("json", false, "Output as JSON")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
