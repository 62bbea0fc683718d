package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/playwright-lab/internal/config"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pwlab",
		Short:         "Browser automation lab: session API, practice site and storage states",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newPlaygroundCmd(opts),
		newStateCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads config and installs the logger.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	obs.Init(cfg.LogLevel)
	return cfg, nil
}

var (
	okColor   = color.New(color.FgGreen)
	waitColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgCyan)
)

func ok(w io.Writer, format string, args ...any) {
	okColor.Fprintf(w, "✓ "+format+"\n", args...)
}

func wait(w io.Writer, format string, args ...any) {
	waitColor.Fprintf(w, "⏳ "+format+"\n", args...)
}

func info(w io.Writer, format string, args ...any) {
	infoColor.Fprintf(w, format+"\n", args...)
}

func fail(w io.Writer, err error) {
	failColor.Fprintf(w, "✗ %v\n", err)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pwlab version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pwlab %s\n", version)
		},
	}
}
