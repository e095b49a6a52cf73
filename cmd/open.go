package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var openJSON bool

var openCmd = &cobra.Command{
	Use:   "open URL",
	Short: "Open a new tab at URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := newBrowser().Open(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if openJSON {
			data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), target.ID)
		return nil
	},
}

func init() {
	openCmd.Flags().BoolVar(&openJSON, "json", false, "output the target descriptor as JSON")
	rootCmd.AddCommand(openCmd)
}
