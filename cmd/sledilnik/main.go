package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/erazemk/sledilnik/internal/cleanup"
	"github.com/erazemk/sledilnik/internal/config"
	"github.com/erazemk/sledilnik/internal/db"
	"github.com/erazemk/sledilnik/internal/store"
	"github.com/erazemk/sledilnik/internal/supervisor"
)

const usage = `Usage: sledilnik [serve|cleanup] [flags]

Commands:
  serve      run the web server (default)
  cleanup    run one retention pass and exit

Flags:
  -c, -config <path>      YAML config file (default: $SLEDILNIK_CONFIG)
  -d, -db <path>          SQLite database path
  -a, -addr <host:port>   listen address
  -p, -uploads <dir>      upload directory
  -l, -log <path>         log file path (rotated)
  -h, -help               show this help and exit

Every setting can also be given as SLEDILNIK_<SECTION>_<KEY>,
e.g. SLEDILNIK_SERVER_BASE_URL or SLEDILNIK_ADMIN_PASSWORD.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	if command != "serve" && command != "cleanup" {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	cfg, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	logger, closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return 1
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		return 1
	}
	slog.Debug("database ready", "path", cfg.Database.Path)

	svc, err := newServices(cfg, database)
	if err != nil {
		slog.Error("failed to set up services", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command == "cleanup" {
		return runCleanup(ctx, svc.cleaner)
	}
	return serve(ctx, logger, cfg, svc)
}

// loadConfig layers command-line flags over the file and environment config.
func loadConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("sledilnik", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	var configPath, dbPath, addr, uploads, logPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")
	fs.StringVar(&uploads, "uploads", "", "")
	fs.StringVar(&uploads, "p", "", "")
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if uploads != "" {
		cfg.Uploads.Dir = uploads
	}
	if logPath != "" {
		cfg.Log.Path = logPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runCleanup(ctx context.Context, cleaner *cleanup.Cleaner) int {
	report, err := cleaner.Run(ctx)
	fmt.Println(report.String())
	if err != nil {
		slog.Error("cleanup failed", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, svc *services) int {
	if cfg.Admin.Password == "" {
		password, err := generatePassword(24)
		if err != nil {
			slog.Error("failed to generate admin password", "error", err)
			return 1
		}
		cfg.Admin.Password = password
		printGeneratedSecret(cfg.Admin.Username, password)
	}

	// Load session secret from database (auto-generated on first run).
	sessionSecret, err := store.GetSessionSecret(ctx, svc.db)
	if err != nil {
		slog.Error("failed to get session secret", "error", err)
		return 1
	}

	handler, err := buildHandler(cfg, svc, sessionSecret)
	if err != nil {
		slog.Error("failed to set up routes", "error", err)
		return 1
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 5*time.Second))
	if cfg.Cleanup.Interval > 0 {
		tree.AddJobService(&cleanup.Scheduler{Cleaner: svc.cleaner, Interval: cfg.Cleanup.Interval})
	} else {
		slog.Info("scheduled cleanup disabled")
	}

	slog.Info("server started", "addr", cfg.Server.Addr, "uploads", cfg.Uploads.Dir)
	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		slog.Warn("services did not stop in time", "count", len(report))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("supervisor stopped", "error", err)
		return 1
	}

	slog.Info("server stopped, closing database")
	return 0
}

// printGeneratedSecret prints the generated shared secret to stdout.
func printGeneratedSecret(username, password string) {
	fmt.Println("No admin password configured, generated one for this run:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("It is also the X-API-Key for the JSON API.")
	fmt.Println("Set SLEDILNIK_ADMIN_PASSWORD to keep it across restarts.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
