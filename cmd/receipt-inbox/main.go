package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-inbox/internal/inbox"
	"github.com/zombor/receipt-inbox/internal/routing"
	"github.com/zombor/receipt-inbox/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receipt-inbox")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		dbPath       = fs.StringLong("db", "receipt-inbox.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./blobs", "Attachment storage directory")
		container    = fs.StringLong("container", "attachments", "Default storage container")
		scannerType  = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		scanAttempts = fs.IntLong("scan-attempts", 3, "Vision model calls per attachment")
		scanPause    = fs.DurationLong("scan-pause", 200*time.Millisecond, "Pause between vision model calls")
		scanRate     = fs.Float64Long("scan-rate", 0, "Maximum vision model calls per second (0 = unlimited)")
		agentsFile   = fs.StringLong("agents-file", "", "JSON agent directory (defaults to the built-in agents)")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logFormat    = fs.StringLong("log-format", "text", "Log format: 'text' or 'json'")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		_            = fs.StringLong("config", "", "Config file (flag per line)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_INBOX"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithConfigAllowMissingFile(),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	logger, err := newLogger(*logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, config{
		addr:        fmt.Sprintf(":%d", *port),
		dbPath:      *dbPath,
		storagePath: *storagePath,
		container:   *container,
		scannerType: *scannerType,
		geminiKey:   *geminiKey,
		geminiModel: *geminiModel,
		ollamaURL:   *ollamaURL,
		ollamaModel: *ollamaModel,
		retry: scanning.RetryConfig{
			Attempts:      *scanAttempts,
			Pause:         *scanPause,
			RatePerSecond: *scanRate,
		},
		agentsFile: *agentsFile,
		auth:       inbox.BasicAuth{Username: *authUser, Password: *authPass},
	}); err != nil {
		logger.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

type config struct {
	addr        string
	dbPath      string
	storagePath string
	container   string
	scannerType string
	geminiKey   string
	geminiModel string
	ollamaURL   string
	ollamaModel string
	retry       scanning.RetryConfig
	agentsFile  string
	auth        inbox.BasicAuth
}

func newLogger(format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (valid: text or json)", format)
	}
}

func newScanner(ctx context.Context, cfg config, logger *slog.Logger) (scanning.Scanner, error) {
	switch cfg.scannerType {
	case "gemini":
		// Get Gemini API key from flag or environment
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		logger.Info("Initializing Gemini scanner...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, apiKey, cfg.geminiModel, logger)
	case "ollama":
		logger.Info("Initializing Ollama scanner...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel, logger)
	default:
		return nil, fmt.Errorf("invalid scanner type %q (valid: gemini or ollama)", cfg.scannerType)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg config) error {
	logger.Info("Initializing database...", "path", cfg.dbPath)
	db, err := inbox.NewBoltDB(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	model, err := newScanner(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing scanner: %w", err)
	}
	scanner := scanning.NewRetrying(model, cfg.retry, logger)
	defer scanner.Close()

	logger.Info("Initializing storage...", "path", cfg.storagePath, "container", cfg.container)
	store, err := inbox.NewLocalStorage(cfg.storagePath, cfg.container)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	directory := routing.DefaultDirectory()
	if cfg.agentsFile != "" {
		directory, err = routing.LoadDirectory(cfg.agentsFile)
		if err != nil {
			return fmt.Errorf("loading agent directory: %w", err)
		}
	}
	logger.Info("Agent directory loaded", "agents", len(directory.Agents()))

	service := inbox.NewService(db, scanner, store, directory, logger)
	server := inbox.NewServer(service, cfg.auth)

	if cfg.auth.Username != "" || cfg.auth.Password != "" {
		logger.Info("Basic auth enabled", "user", cfg.auth.Username)
	}

	err = server.Start(ctx, cfg.addr)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	logger.Info("Shutting down...")
	return err
}
