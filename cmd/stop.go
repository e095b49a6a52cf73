package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chromectl/chromectl/internal/observability"
	"github.com/chromectl/chromectl/lib/launcher"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop every managed browser",
	Long: `Terminate every browser this tool launched, recognized by the
profile marker in the process arguments. Browsers started by hand are
left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := launcher.StopAll()
		if err != nil {
			return err
		}

		log := observability.GetLogger()
		stopped := 0
		for _, r := range results {
			if r.Err != nil {
				log.Warn("stop failed", zap.Int("pid", r.PID), zap.Error(r.Err))
				continue
			}
			stopped++
			fmt.Fprintf(cmd.OutOrStdout(), "stopped %d\n", r.PID)
		}
		if stopped == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no managed browser running")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
