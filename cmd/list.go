package cmd

import (
	"fmt"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the inspectable targets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := newBrowser().Targets()
		if err != nil {
			return err
		}

		if listJSON {
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(targets)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tURL\tTITLE")
		for _, t := range targets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Type, t.URL, t.Title)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
