package cmd

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/chromectl/chromectl"
)

var consoleDuration time.Duration

var consoleCmd = &cobra.Command{
	Use:     "console",
	Aliases: []string{"console-tail"},
	Short:   "Stream a page's console output for a while",
	Long: `Subscribe to the page's console and log events and print each as
one JSON line, timestamped relative to the subscription start. The stream
ends after --duration, messages logged before the subscription are not
replayed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPage(cmd.Context(), func(ctx context.Context, page *chromectl.Page) error {
			ch, err := page.ConsoleTail(ctx, consoleDuration)
			if err != nil {
				return err
			}

			enc := jsoniter.ConfigCompatibleWithStandardLibrary
			for rec := range ch {
				line, err := enc.Marshal(rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(line))
			}
			return nil
		})
	},
}

func init() {
	consoleCmd.Flags().StringVar(&flagTarget, "target", "", "target id, default first page")
	consoleCmd.Flags().DurationVar(&consoleDuration, "duration", 10*time.Second, "how long to stream")
	rootCmd.AddCommand(consoleCmd)
}
