package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"postscope/pkg/auth"
	"postscope/pkg/config"
	"postscope/pkg/logger"
	"postscope/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	profile    string
	noColor    bool
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "postscope",
	Short: "Fetch an account's recent posts and tag them by topic, sentiment and style",
	Long: `postscope collects public posts for an account through the SocialData API,
tags each one with topics, a sentiment and style labels, and writes a
summary plus JSON, CSV, XML, text and SQLite exports.

Features:
  - Rolling window rate limiting shared by every job
  - Background jobs with live status, cancellation and history
  - Terminal dashboard or plain log output
  - HTTP API for starting and polling jobs
  - Secure API key storage using the system keychain`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
		logger.Version = version

		switch cmd.Name() {
		case "version", "help", "completion", "show":
		default:
			if !quiet {
				ui.PrintLogo()
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", auth.DefaultProfile, "stored credential profile to use")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress everything except errors and results")

	rootCmd.SetVersionTemplate(`postscope {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and flags, then sets up
// the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	} else if quiet {
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// resolveAPIKey fills cfg.API.APIKey from the credential stores when no
// flag, environment variable or config file supplied one
func resolveAPIKey(cfg *config.Config) error {
	manager, err := auth.NewManager()
	if err != nil {
		if cfg.API.APIKey != "" {
			return nil
		}
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	key, err := manager.ResolveAPIKey(cfg.API.APIKey, profile)
	if err != nil {
		return fmt.Errorf("no API key found for profile %q; run 'postscope auth login' or set %s", profile, auth.EnvVars[0])
	}
	cfg.API.APIKey = key
	return nil
}
