// Copyright 2025 The NickServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the nick completion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

NickServe completes nicks, message targets and channel names for a chat
client's line editor. Candidates are ranked by how recently someone spoke,
and people who addressed the local user stay on top for a while. It runs as a
MessagePack IPC server driven by the chat client, or as a CLI for testing.

# Usage

Start the server with default settings:

	nickserve

Use a custom config file and enable debug mode:

	nickserve --config ./config.toml -d

Run in CLI mode for interactive testing:

	nickserve -c --limit 10

# Configuration

Runtime configuration is a TOML file, created with defaults when missing:

	[completion]
	own_window = 50
	keep_publics = 50
	keep_privates = 10
	char = ":"
	auto = false

	[server]
	max_limit = 64
	watch_config = true

Server mode reloads the file when it changes.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. The chat client
forwards events as they happen and asks for completions when the user
presses tab:

	{"id": "1", "op": "public", "srv": "libera", "ch": "#go", "n": "alice", "txt": "me: hi"}
	{"id": "2", "op": "complete", "srv": "libera", "k": "channel", "tg": "#go", "p": "al"}

See package server for the full list of ops.

# Command Line Flags

	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	--config string
	    Path to the config file
	--limit int
	    Number of candidates the CLI prints (default from config)
	--version
	    Show current version
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bastiangx/nickserve/internal/cli"
	"github.com/bastiangx/nickserve/internal/logger"
	"github.com/bastiangx/nickserve/pkg/config"
	"github.com/bastiangx/nickserve/pkg/server"
	"github.com/bastiangx/nickserve/pkg/suggest"
	"github.com/bastiangx/nickserve/pkg/tracking"
)

const (
	Version = "0.9.0-beta"
	AppName = "nickserve"
	gh      = "https://github.com/bastiangx/nickserve"
)

var (
	debugMode   bool
	cliMode     bool
	showVersion bool
	configPath  string
	limit       int
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "NickServe - recency-ranked nick completion",
	Long: `NickServe completes nicks, message targets and channel names for a chat
client, ranking people who spoke recently or addressed you first.

Run without arguments to start the MessagePack IPC server on stdin/stdout.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	defaults := config.DefaultConfig()
	rootCmd.Flags().BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")
	rootCmd.Flags().BoolVarP(&cliMode, "cli", "c", false, "Run CLI -- useful for testing and debugging")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show current version")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to the config file")
	rootCmd.Flags().IntVar(&limit, "limit", defaults.CLI.DefaultLimit, "Number of candidates to print in CLI mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// run wires the config, the session store and the engine, then hands over
// to the server or the CLI. It does not implement logic for them.
func run(cmd *cobra.Command, _ []string) error {
	if showVersion {
		printVersion()
		return nil
	}
	logger.Setup(debugMode)

	appConfig, activePath, err := config.LoadConfigWithPriority(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activePath))

	store := tracking.New(appConfig.Completion, nil)
	defer store.Close()
	engine := suggest.New(store, appConfig.Setup)

	// CLI would be mainly used for testing and dbg purposes.
	if cliMode {
		n := limit
		if !cmd.Flags().Changed("limit") {
			n = appConfig.CLI.DefaultLimit
		}
		log.Debug("Input info:", "limit", n)
		return cli.NewInputHandler(engine, os.Stdin, os.Stdout, n).Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("spawning IPC")
	srv := server.NewServer(engine, appConfig, activePath)
	showStartupInfo(activePath)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ NickServe ] Serves recency-ranked nick completions!")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(configPath string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	fmt.Fprintln(os.Stderr, "===========")
	fmt.Fprintln(os.Stderr, " NickServe ")
	fmt.Fprintln(os.Stderr, "===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("config: ( %s )", config.GetActiveConfigPath(configPath))
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "===========")
}
