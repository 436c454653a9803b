package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	iexec "github.com/ShayCichocki/qacoord/internal/exec"
	"github.com/ShayCichocki/qacoord/internal/wrappers"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List known tools with availability and version",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(nil)
		if err != nil {
			return err
		}
		defer e.Close()

		deps := wrappers.Deps{
			Config: e.cfg.Accessor(),
			Logger: e.log,
			Runner: iexec.NewRunner(),
			FS:     iexec.NewFileSystem(e.root),
			Root:   e.root,
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		rows := probeTools(ctx, wrappers.DefaultRegistry(), deps)
		renderTools(cmd.OutOrStdout(), rows)
		return nil
	},
}

type toolRow struct {
	name       string
	kind       wrappers.Kind
	dimensions string
	available  bool
	version    string
}

func probeTools(ctx context.Context, reg wrappers.Registry, deps wrappers.Deps) []toolRow {
	names := reg.Names()
	rows := make([]toolRow, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			w := reg[name](deps)
			dims := make([]string, 0, len(w.Dimensions()))
			for _, d := range w.Dimensions() {
				dims = append(dims, string(d))
			}
			row := toolRow{name: name, kind: w.Kind(), dimensions: strings.Join(dims, ",")}
			if w.IsAvailable(gctx) {
				row.available = true
				row.version, _ = w.Version(gctx)
			}
			mu.Lock()
			rows[i] = row
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return rows
}

func renderTools(w io.Writer, rows []toolRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Tool", "Kind", "Dimensions", "Available", "Version"})
	for _, r := range rows {
		avail := color.RedString("✗ missing")
		if r.available {
			avail = color.GreenString("✓")
		}
		t.AppendRow(table.Row{r.name, r.kind, r.dimensions, avail, r.version})
	}
	t.Render()
	fmt.Fprintln(w)
}
