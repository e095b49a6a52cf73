package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chromectl/chromectl"
	"github.com/chromectl/chromectl/internal/observability"
)

var (
	screenshotFullPage bool
	screenshotOut      string
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a page as PNG",
	Long: `Capture the page viewport as PNG. With --full-page the whole
scrollable content is captured: the viewport is overridden to the content
size for the shot and restored afterwards, also when the capture fails.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPage(cmd.Context(), func(ctx context.Context, page *chromectl.Page) error {
			ctx, cancel := context.WithTimeout(ctx, flagTimeout)
			defer cancel()

			data, err := page.Screenshot(ctx, screenshotFullPage)
			if err != nil {
				return err
			}

			if err := os.WriteFile(screenshotOut, data, 0o644); err != nil {
				return err
			}

			observability.GetLogger().Info("screenshot written",
				zap.String("path", screenshotOut),
				zap.Int("bytes", len(data)),
				zap.Bool("full_page", screenshotFullPage))
			fmt.Fprintln(cmd.OutOrStdout(), screenshotOut)
			return nil
		})
	},
}

func init() {
	screenshotCmd.Flags().StringVar(&flagTarget, "target", "", "target id, default first page")
	screenshotCmd.Flags().BoolVar(&screenshotFullPage, "full-page", false, "capture the full scrollable content")
	screenshotCmd.Flags().StringVarP(&screenshotOut, "out", "o", "screenshot.png", "output file")
	rootCmd.AddCommand(screenshotCmd)
}
