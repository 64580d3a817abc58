// Package cli holds the relaypace subcommands.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"relaypace/internal/client"
	"relaypace/internal/config"
	"relaypace/internal/util"
)

// global flags shared by every subcommand
var (
	configPath string
	logLevel   string
	apiURL     string
)

// AddGlobalFlags registers the flags every subcommand understands.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $RELAYPACE_CONFIG)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&apiURL, "api", "", "Server base URL for client commands")
}

// app is the loaded configuration and logger for one command run.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

// loadApp reads .env, the config file and env vars, then applies flags.
func loadApp(cmd *cobra.Command, logOut io.Writer) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	cfg, err := config.Load(cmd.Context(), configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	logger, err := util.NewLogger(logOut, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) client() *client.Client {
	c := client.New(a.cfg.APIURL, a.cfg.ClientTimeout)
	c.SetHeader("User-Agent", "relaypace-cli")
	return c
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
)
