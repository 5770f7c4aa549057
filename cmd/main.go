package main

import (
	"fmt"
	"os"

	"github.com/TryAwesome/CVibe-sub002/internal/config"
	"github.com/TryAwesome/CVibe-sub002/pkg/logx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const app = "cvibe-matching"

var (
	cfgFile string
	v       = viper.New()

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "Job matching and ranking engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is matching.yaml in the current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	v.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	v.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("json"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and sets up the global logger from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}

	if err := logx.Configure(cfg.Log.JSON, cfg.Log.Debug); err != nil {
		return nil, fmt.Errorf("configure logger: %w", err)
	}
	if !cfg.Log.Debug {
		level, err := logx.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		logx.SetLevel(level)
	}
	return cfg, nil
}
