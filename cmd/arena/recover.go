package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Requeue expired leases and resubmit stale outputs once, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, app, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.Recovery.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recovered %d generation(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
