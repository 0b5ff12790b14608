// Catchat - conversational backend routing chat to weather, quantum and
// general answers.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/qcatchat/catchat/internal/agent"
	"github.com/qcatchat/catchat/internal/api"
	"github.com/qcatchat/catchat/internal/core"
	"github.com/qcatchat/catchat/internal/logging"
	"github.com/qcatchat/catchat/internal/storage"
)

var (
	// Config
	configPath string
	dataDir    string
	verbose    bool

	// Version
	version = "0.1.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "catchat",
		Short: "Catchat - weather, quantum and general chat backend",
		Long: `Catchat answers free-text messages. Each message is checked for a
weather question, then for a quantum application intent, and otherwise
answered by a general language model. Every exchange is recorded.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <data-dir>/config.json)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.catchat)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Commands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(intentsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serveCmd runs the HTTP API
func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			c, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			server := api.New(api.Config{
				Host:           cfg.Server.Host,
				Port:           cfg.Server.Port,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Agent:          c.agent,
				Speech:         c.speech,
				Weather:        c.weather,
				DB:             c.db,
				LLM:            c.router,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			logging.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Stop(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen address (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	return cmd
}

// chatCmd starts an interactive terminal session
func chatCmd() *cobra.Command {
	var (
		userID string
		mode   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat from the terminal through the request router",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !verbose {
				// Keep the conversation readable.
				logging.SetOutput(io.Discard)
			}

			c, err := buildComponents(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := agent.NewChatSession(c.agent, userID)
			if mode != "" {
				session.SetMode(core.ParseMode(mode))
			}
			return session.RunInteractive(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&userID, "user", api.DefaultUserID, "user id recorded with each exchange")
	cmd.Flags().StringVar(&mode, "mode", "", "mode recorded for general answers (standard, quantum, weather)")
	return cmd
}

// migrateCmd applies schema and catalog migrations
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			db, err := storage.Open(storage.Config{Path: cfg.DatabasePath()})
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			applied, err := db.Migrate()
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			if len(applied) == 0 {
				fmt.Println("Database is up to date.")
				return nil
			}
			for _, name := range applied {
				fmt.Printf("   applied %s\n", name)
			}
			fmt.Printf("Database: %s\n", cfg.DatabasePath())
			return nil
		},
	}
}

// userCmd manages users
func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User operations",
	}

	var email string
	createCmd := &cobra.Command{
		Use:   "create [username]",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			password, err := readPassword()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := storage.NewUserStore(db).Create(cmd.Context(), args[0], email, password)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "email address")

	cmd.AddCommand(createCmd)
	return cmd
}

// readPassword prompts twice without echo on a terminal, or reads one line
// from a pipe.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(first) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords don't match")
	}
	return string(first), nil
}

// intentsCmd lists the intent catalog
func intentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intents",
		Short: "List intent patterns in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			patterns, err := storage.NewIntentStore(db).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(patterns) == 0 {
				fmt.Println("No intent patterns.")
				return nil
			}

			apps := map[int64]string{}
			if list, err := storage.NewQuantumStore(db).ListApplications(cmd.Context()); err == nil {
				for _, a := range list {
					apps[a.ID] = a.Name
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPATTERN\tAPPLICATION\tCONFIDENCE\tPARAMETER")
			for _, p := range patterns {
				app := apps[p.ApplicationID]
				if app == "" {
					app = fmt.Sprintf("#%d", p.ApplicationID)
				}
				param := p.ParameterPattern
				if param == "" {
					param = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\n", p.ID, p.Pattern, app, p.Confidence, param)
			}
			return w.Flush()
		},
	}
}

// versionCmd shows version
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show Catchat version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Catchat %s\n", version)
		},
	}
}
