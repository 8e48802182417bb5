// Command chartbot runs the company chart Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/chartbot/core/buildinfo"
	corecmd "github.com/m3rciful/chartbot/core/cmd"
	"github.com/m3rciful/chartbot/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "chartbot",
		Short:         "Telegram bot that charts company figures from a spreadsheet",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return corecmd.Run(runOptions(configPath))
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH, then ./config.yaml)")
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chartbot %s (commit %s, built %s)\n",
				buildinfo.Version, buildinfo.Commit, buildDate())
		},
	}
}

func buildDate() string {
	if buildinfo.Date == "" {
		return "unknown"
	}
	return buildinfo.Date
}

func runOptions(configPath string) corecmd.Options {
	return corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{".env"},
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			appCfg, ok := cfg.(*app.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", cfg)
			}
			return app.Bootstrap(ctx, appCfg)
		},
	}
}
