package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/qacoord/internal/coordinator"
)

var planCmdFlags planFlags

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Validate or inspect an execution plan",
}

var planValidateCmd = &cobra.Command{
	Use:   "validate [plan.yaml]",
	Short: "Check a plan without running any tool",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := loadGroups(cmd.Context(), args)
		if err != nil {
			return err
		}
		tools := 0
		for _, g := range groups {
			tools += len(g.Tools)
		}
		printStatus("✓", fmt.Sprintf("plan is valid: %d tools in %d groups", tools, len(groups)), color.FgGreen)
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show [plan.yaml]",
	Short: "Print the execution groups of a plan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := loadGroups(cmd.Context(), args)
		if err != nil {
			return err
		}
		renderGroups(cmd.OutOrStdout(), groups)
		return nil
	},
}

func init() {
	planCmdFlags.register(planValidateCmd)
	planCmdFlags.register(planShowCmd)
	planCmd.AddCommand(planValidateCmd)
	planCmd.AddCommand(planShowCmd)
}

func loadGroups(ctx context.Context, args []string) ([]coordinator.ExecutionGroup, error) {
	e, err := setup(nil)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	plan, err := planCmdFlags.build(ctx, e, path, nil)
	if err != nil {
		return nil, withExit(exitPlanError, err)
	}
	groups, err := coordinator.New(e.cfg, coordinator.WithLogger(e.log)).Groups(plan)
	if err != nil {
		return nil, withExit(exitPlanError, err)
	}
	return groups, nil
}

func renderGroups(w io.Writer, groups []coordinator.ExecutionGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "plan has no tools")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Dimension", "Mode", "Tools"})
	for _, g := range groups {
		mode := "sequential"
		if g.Parallel {
			mode = "parallel"
		}
		names := make([]string, 0, len(g.Tools))
		for _, req := range g.Tools {
			names = append(names, fmt.Sprintf("%s (%s)", req.Name, req.Scope))
		}
		t.AppendRow(table.Row{g.Index + 1, g.Dimension, mode, strings.Join(names, ", ")})
	}
	t.Render()
}
