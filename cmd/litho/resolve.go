package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"litho/internal/driver"
	"litho/internal/source"
	"litho/internal/ui"
)

var (
	resolveNoCache bool
	resolveSources []string
)

func init() {
	resolveCmd.Flags().BoolVar(&resolveNoCache, "no-cache", false, "resolve even when a cached outcome exists")
	resolveCmd.Flags().StringArrayVar(&resolveSources, "source", nil,
		"source file backing the snapshots, in frontend file order; repeatable")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <file.astc> [more.astc...]",
	Short: "Resolve AST snapshots and print diagnostics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := driver.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if max, err := cmd.Flags().GetInt("max-diagnostics"); err == nil && cmd.Flags().Changed("max-diagnostics") {
			cfg.Diagnostics.Max = max
		}
		if mode, err := cmd.Flags().GetString("color"); err == nil && cmd.Flags().Changed("color") {
			cfg.Diagnostics.Color = mode
		}
		if resolveNoCache {
			cfg.Cache.Enabled = false
		}
		quiet, _ := cmd.Flags().GetBool("quiet")

		// source files are optional; without them diagnostics print
		// without line/column context
		fs := source.NewFileSet()
		for _, path := range resolveSources {
			if _, err := fs.Load(path); err != nil {
				return fmt.Errorf("load source %s: %w", path, err)
			}
		}

		session, err := driver.NewSession(cfg)
		if err != nil {
			return err
		}
		reports, err := session.ResolveFiles(cmd.Context(), args)
		if err != nil {
			return err
		}

		opts := ui.RenderOpts{
			Color:     useColor(cfg.Diagnostics.Color, os.Stdout),
			ShowNotes: cfg.Diagnostics.ShowNotes,
			Max:       cfg.Diagnostics.Max,
		}
		broken := 0
		for _, rep := range reports {
			ui.Render(cmd.OutOrStdout(), rep.Diags, fs, opts)
			if rep.Broken {
				broken++
			}
			if !quiet {
				status := "ok"
				if rep.Broken {
					status = "failed"
				} else if rep.FromCache {
					status = "ok (cached)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rep.Path, status)
			}
		}
		if broken > 0 {
			return fmt.Errorf("%d of %d inputs failed to resolve", broken, len(reports))
		}
		return nil
	},
}
