package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dotsetgreg/chatmem/pkg/config"
	"github.com/dotsetgreg/chatmem/pkg/memory"
	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "chatmem",
		Short: "Session memory manager for multi-session chat",
		Long: strings.TrimSpace(`chatmem manages per-session conversational memory: a verbatim
short-term turn buffer plus a capacity-bounded long-term fact store with
FIFO eviction, durably mirrored to a local SQLite database.

Use the chat command for an interactive session, and sessions/forget to
inspect or drop persisted state.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newChatCommand())
	root.AddCommand(newSessionsCommand())
	root.AddCommand(newForgetCommand())
	root.AddCommand(newOnboardCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func loadConfigFlag(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newChatCommand() *cobra.Command {
	var (
		configPath string
		session    string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive chat session against the memory manager",
		Example: strings.Join([]string{
			"  chatmem chat",
			"  chatmem chat --session support:alice",
			"  chatmem chat --debug",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFlag(configPath)
			if err != nil {
				return err
			}
			return runChat(cfg, session, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (default ~/.chatmem/config.json)")
	cmd.Flags().StringVarP(&session, "session", "s", "", "Session id (default from config)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Print memory lifecycle events")

	return cmd
}

func newSessionsCommand() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List persisted sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFlag(configPath)
			if err != nil {
				return err
			}
			if !cfg.Store.Enabled {
				return fmt.Errorf("session store is disabled in config")
			}

			store, err := memory.NewSQLiteStore(cfg.StorePath())
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ListSessions(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No sessions stored.")
				return nil
			}
			for _, rec := range records {
				updated := time.UnixMilli(rec.UpdatedAtMS).Format(time.RFC3339)
				fmt.Printf("%-32s turns=%-4d facts=%-3d updated=%s\n", rec.SessionID, rec.TurnCount, rec.FactCount, updated)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum sessions to list")

	return cmd
}

func newForgetCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "forget <session-id>",
		Short:   "Delete a session's persisted memory",
		Args:    cobra.ExactArgs(1),
		Example: "  chatmem forget support:alice",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFlag(configPath)
			if err != nil {
				return err
			}
			if !cfg.Store.Enabled {
				return fmt.Errorf("session store is disabled in config")
			}

			store, err := memory.NewSQLiteStore(cfg.StorePath())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteSession(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Forgot session %q\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path")

	return cmd
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Write a default config to ~/.chatmem/config.json",
		Example: "  chatmem onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Printf("Config already exists at %s\n", path)
				return nil
			}
			if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("Wrote default config to %s\n", path)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion()
		},
	}
}
