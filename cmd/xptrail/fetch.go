// CLAUDE:SUMMARY fetch subcommand: extracts one or more profiles and prints a table, JSON, or writes CSV and PNG files.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/xptrail/export"
	"github.com/hazyhaar/xptrail/tracker"
)

func newFetchCmd(g *globalFlags) *cobra.Command {
	var (
		outDir   string
		asJSON   bool
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "fetch <username>...",
		Short: "Extract one or more profiles and write CSV/PNG files or JSON.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, _, logger, err := g.setup()
			if err != nil {
				return err
			}

			items := tr.ExtractMany(cmd.Context(), args, parallel)

			failed := 0
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			for _, it := range items {
				if tracker.IsFatal(it.Err) {
					failed++
					logger.Error("xptrail: fetch failed", "username", it.Username, "error", it.Err)
					continue
				}
				if it.Err != nil {
					logger.Warn("xptrail: partial result", "username", it.Username, "error", it.Err)
				}

				if asJSON {
					if err := enc.Encode(it.Result); err != nil {
						return err
					}
					continue
				}
				export.RenderTable(out, it.Result)
				if outDir != "" {
					paths, err := export.WriteFiles(outDir, it.Result)
					if err != nil {
						return err
					}
					for _, p := range paths {
						fmt.Fprintln(out, "wrote", p)
					}
				}
			}

			if failed == len(items) {
				return errors.New("no profile could be extracted")
			}
			if failed > 0 {
				fmt.Fprintf(os.Stderr, "%d of %d profiles failed\n", failed, len(items))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&outDir, "out", "o", "", "directory for <name>_progress.csv and <name>_history.png")
	f.BoolVar(&asJSON, "json", false, "print results as JSON instead of a table")
	f.IntVarP(&parallel, "parallel", "p", 1, "maximum browsers open at once")
	return cmd
}
