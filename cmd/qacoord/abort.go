package main

import (
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/signals"
)

var abortCmd = &cobra.Command{
	Use:   "abort [reason]",
	Short: "Cancel the run in progress for this repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(repoRoot)
		if err != nil {
			return err
		}
		if err := signals.SendAbort(root, strings.Join(args, " ")); err != nil {
			return err
		}
		printStatus("✓", "abort signal sent", color.FgGreen)
		return nil
	},
}
