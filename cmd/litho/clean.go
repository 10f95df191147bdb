package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"litho/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the on-disk resolution cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := driver.LoadConfig(configPath)
		if err != nil {
			return err
		}
		session, err := driver.NewSession(cfg)
		if err != nil {
			return err
		}
		if err := session.DropCache(); err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "cache dropped")
		}
		return nil
	},
}
