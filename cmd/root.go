// Package cmd is the chromectl command line surface.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chromectl/chromectl/internal/config"
	"github.com/chromectl/chromectl/internal/observability"
)

var (
	cfgFile     string
	flagTarget  string
	flagTimeout time.Duration

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:     "chromectl",
	Short:   "chromectl drives a local browser over its remote debugging protocol",
	Version: Version,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		for _, name := range []string{"host", "port"} {
			if err := v.BindPFlag(name, cmd.Root().PersistentFlags().Lookup(name)); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console"})
			return err
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("configured",
			zap.String("control_url", cfg.ControlURL()))
		return nil
	},
}

// Execute runs the root command and exits with a kind-specific code on
// failure, scripts branch on it.
func Execute() {
	err := rootCmd.Execute()
	observability.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chromectl:", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default ./chromectl.yaml)")
	pf.String("host", "127.0.0.1", "remote debugging host")
	pf.String("port", "9222", "remote debugging port")
	pf.DurationVar(&flagTimeout, "timeout", 30*time.Second, "per command timeout")

	rootCmd.SetVersionTemplate(`{{printf "chromectl %s\n" .Version}}`)
}
