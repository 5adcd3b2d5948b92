package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/demo-arena/arena-backend/internal/arena/registry"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the model catalog in canonical order",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.Default()
		out := cmd.OutOrStdout()

		if modelsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reg.Models())
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tDEFAULT")
		for _, m := range reg.Models() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", m.ID, m.Name, m.Provider.DisplayName(), m.DefaultEnabled)
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(modelsCmd)
}
