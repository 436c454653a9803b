package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify qacoord configuration.

Without arguments, displays every resolved setting.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config.

Configuration is stored at ~/.config/qacoord/config.yaml
Project-specific overrides can be placed in .qacoord.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		out := cmd.OutOrStdout()

		switch len(args) {
		case 0:
			keys := cfg.Store().Keys()
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %v\n", k, cfg.Store().Get(k, nil))
			}
		case 1:
			v := cfg.Store().Get(args[0], nil)
			if v == nil {
				return fmt.Errorf("unknown configuration key: %s", args[0])
			}
			fmt.Fprintln(out, v)
		default:
			if err := config.Save(args[0], parseConfigValue(args[1])); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(out, "Set %s = %s (%s)\n", args[0], args[1], config.GetUserConfigPath())
		}
		return nil
	},
}

// parseConfigValue keeps booleans and integers typed in the written YAML;
// comma lists become sequences.
func parseConfigValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return s
}
