package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chromectl/chromectl"
)

var evalAwait bool

var evalCmd = &cobra.Command{
	Use:   "eval EXPRESSION",
	Short: "Evaluate a JavaScript expression in a page",
	Long: `Evaluate the expression in the page context and print the result
as JSON. A returned promise is awaited by default, its resolved value is
printed, a rejection fails the command.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPage(cmd.Context(), func(ctx context.Context, page *chromectl.Page) error {
			ctx, cancel := context.WithTimeout(ctx, flagTimeout)
			defer cancel()

			res, err := page.Eval(ctx, args[0], evalAwait)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
			return nil
		})
	},
}

func init() {
	evalCmd.Flags().StringVar(&flagTarget, "target", "", "target id, default first page")
	evalCmd.Flags().BoolVar(&evalAwait, "await", true, "await a returned promise")
	rootCmd.AddCommand(evalCmd)
}
