// Command sparqlctl runs queries, updates and loads against a MarkLogic
// triple store from the shell.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanshika/sparqlconn/internal/config"
	"github.com/vanshika/sparqlconn/internal/logging"
	"github.com/vanshika/sparqlconn/internal/repository"
)

type globalFlags struct {
	host           string
	port           int
	database       string
	username       string
	promptPassword bool
	auth           string
	tls            bool
	logLevel       string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var g globalFlags
	cmd := &cobra.Command{
		Use:           "sparqlctl",
		Short:         "Query and manage a MarkLogic triple store over its REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.host, "host", "", "store host (overrides STORE_HOST)")
	pf.IntVar(&g.port, "port", 0, "store REST port (overrides STORE_PORT)")
	pf.StringVar(&g.database, "database", "", "content database (overrides STORE_DATABASE)")
	pf.StringVarP(&g.username, "user", "u", "", "user name (overrides STORE_USERNAME)")
	pf.BoolVarP(&g.promptPassword, "password", "W", false, "prompt for the password")
	pf.StringVar(&g.auth, "auth", "", "authentication scheme: digest, basic or none")
	pf.BoolVar(&g.tls, "tls", false, "use https")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(
		queryCmd(&g),
		askCmd(&g),
		updateCmd(&g),
		loadCmd(&g),
		clearCmd(&g),
		contextsCmd(&g),
		sizeCmd(&g),
		exportCmd(&g),
		benchCmd(&g),
	)
	return cmd
}

// session is an initialized repository plus one open connection.
type session struct {
	repo   *repository.Repository
	conn   *repository.Connection
	logger *slog.Logger
}

func (s *session) close(ctx context.Context) {
	if err := s.conn.Close(ctx); err != nil {
		s.logger.Warn("closing connection failed", "error", err)
	}
	if err := s.repo.ShutDown(ctx); err != nil {
		s.logger.Warn("shutting down repository failed", "error", err)
	}
}

// connect builds the repository from the environment and flags. Logs go
// to stderr so stdout carries only results.
func connect(cmd *cobra.Command, g *globalFlags) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := g.apply(cmd, &cfg); err != nil {
		return nil, err
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.Logging).With("component", "sparqlctl")
	repo := repository.NewRepository(cfg.Store.GraphOptions(), repository.WithLogger(logger))
	if err := repo.Initialize(cmd.Context()); err != nil {
		return nil, err
	}
	conn, err := repo.Connection()
	if err != nil {
		_ = repo.ShutDown(cmd.Context())
		return nil, err
	}
	return &session{repo: repo, conn: conn, logger: logger}, nil
}

func (g *globalFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Store.Host = g.host
		cfg.Store.URI = ""
	}
	if flags.Changed("port") {
		cfg.Store.Port = g.port
		cfg.Store.URI = ""
	}
	if flags.Changed("tls") {
		cfg.Store.UseTLS = g.tls
	}
	if flags.Changed("database") {
		cfg.Store.Database = g.database
	}
	if flags.Changed("user") {
		cfg.Store.Username = g.username
	}
	if flags.Changed("auth") {
		cfg.Store.Auth = g.auth
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if g.promptPassword {
		password, err := readPassword(cmd, cfg.Store.Username)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		cfg.Store.Password = password
	}
	return nil
}

func readPassword(cmd *cobra.Command, user string) (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", user)
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(bytes), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}
