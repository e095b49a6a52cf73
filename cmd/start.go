package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chromectl/chromectl/internal/observability"
	"github.com/chromectl/chromectl/lib/launcher"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch a browser with remote debugging enabled",
	Long: `Launch a managed browser listening on the configured debugging port.
If a managed browser already answers on that port it is reused.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := launcher.New().
			Headless(cfg.Browser.Headless).
			Leakless(cfg.Browser.Leakless).
			RemoteDebuggingPort(cfg.Port).
			Logger(observability.FrameLogger())
		if cfg.Browser.Bin != "" {
			l.Bin(cfg.Browser.Bin)
		}
		if cfg.Browser.UserDataDir != "" {
			l.UserDataDir(cfg.Browser.UserDataDir)
		}

		wsURL, err := l.Launch()
		if err != nil {
			return err
		}

		log := observability.GetLogger()
		if pid := l.PID(); pid > 0 {
			log.Info("browser running",
				zap.Int("pid", pid),
				zap.String("ws_url", wsURL))
		} else {
			log.Info("reusing running browser", zap.String("ws_url", wsURL))
		}
		fmt.Fprintln(cmd.OutOrStdout(), wsURL)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
