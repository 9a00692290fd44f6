package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"roster/cmd/roster/config"
	"roster/internal/api"
	"roster/internal/directory"
	"roster/internal/logging"
	"roster/internal/syncer"
	"roster/internal/view"
)

var (
	// Global flags
	verbose   bool
	serverURL string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "roster - Extracurricular activity signup client",
	Long: `roster is a terminal client for browsing extracurricular activities
and managing participant signups.

It keeps a local mirror of the activity directory, applies signups
optimistically, and reconciles against the server in the background.

Run without arguments to start the interactive browse interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "roster" && cmd.CalledAs() == "roster" {
			return nil
		}

		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: launch the interactive browser
		cfg := loadConfig()
		if dir, err := config.ConfigDir(); err == nil {
			if err := logging.Initialize(dir); err != nil {
				fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
			}
		}
		return runBrowse(cfg)
	},
}

// listCmd prints the current activity directory
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities with schedules and rosters",
	RunE:  runList,
}

// signupCmd registers a participant for an activity
var signupCmd = &cobra.Command{
	Use:   "signup [activity] [email]",
	Short: "Sign a participant up for an activity",
	Long: `Registers an email address for the named activity.

Example:
  roster signup "Chess Club" student@example.com`,
	Args: cobra.ExactArgs(2),
	RunE: runSignup,
}

// unregisterCmd removes a participant from an activity
var unregisterCmd = &cobra.Command{
	Use:   "unregister [activity] [email]",
	Short: "Remove a participant from an activity",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnregister,
}

func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if timeout > 0 {
		cfg.TimeoutSeconds = int(timeout / time.Second)
	}
	return cfg
}

func newClient(cfg config.Config) *api.Client {
	opts := []api.Option{}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	return api.New(cfg.ServerURL, opts...)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client := newClient(cfg)

	dir := directory.New()
	renderer := view.NewRenderer()
	engine := syncer.New(client, dir, renderer)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	if err := engine.Refresh(ctx); err != nil {
		logger.Error("refresh failed", zap.Error(err))
		return fmt.Errorf("failed to load activities: %w", err)
	}

	tree := renderer.Snapshot()
	for i := range tree.Names {
		card := tree.Cards[i]
		fmt.Printf("%s\n", card.Name)
		fmt.Printf("  %s\n", card.Description)
		fmt.Printf("  Schedule: %s\n", card.Schedule)
		fmt.Printf("  Availability: %s\n", card.Availability())
		if card.Participants.Empty {
			fmt.Printf("  Participants: none yet\n")
		} else {
			emails := make([]string, 0, len(card.Participants.Rows))
			for _, row := range card.Participants.Rows {
				emails = append(emails, row.Email)
			}
			fmt.Printf("  Participants: %s\n", strings.Join(emails, ", "))
		}
		fmt.Println()
	}
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	msg, err := client.Signup(ctx, args[0], args[1])
	if err != nil {
		var rej *api.RejectedError
		if errors.As(err, &rej) {
			return fmt.Errorf("signup rejected: %s", rej.Detail)
		}
		logger.Error("signup failed", zap.Error(err))
		return fmt.Errorf("signup failed: %w", err)
	}
	fmt.Println(msg)
	return nil
}

func runUnregister(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client := newClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	msg, err := client.Unregister(ctx, args[0], args[1])
	if err != nil {
		var rej *api.RejectedError
		if errors.As(err, &rej) {
			return fmt.Errorf("unregister rejected: %s", rej.Detail)
		}
		logger.Error("unregister failed", zap.Error(err))
		return fmt.Errorf("unregister failed: %w", err)
	}
	fmt.Println(msg)
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "Server base URL (default from config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Request timeout")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(unregisterCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
