// ABOUTME: Entry point for the household-registry intake server
// ABOUTME: Serves registration and edit endpoints, creates configs and probes health

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/household-registry/internal/config"
	"github.com/2389/household-registry/internal/server"
)

// Version is set at build time.
var version = "dev"

const banner = `
 _                          _           _     _
| |__   ___  _   _ ___  ___| |__   ___ | | __| |
| '_ \ / _ \| | | / __|/ _ \ '_ \ / _ \| |/ _' |
| | | | (_) | |_| \__ \  __/ | | | (_) | | (_| |
|_| |_|\___/ \__,_|___/\___|_| |_|\___/|_|\__,_|  registry
`

// getDataPath returns the directory for the default sqlite database.
// Priority: XDG_DATA_HOME/household > ~/.local/share/household
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "household")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: household-registry <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the intake server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server readiness")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Driver)
	green.Print("    ▶ ")
	fmt.Printf("Links:     %s", cfg.KV.Backend)
	gray.Printf(" (ttl %s)\n", cfg.Auth.MagicLinkTTL)

	if !cfg.Access.From.IsZero() || !cfg.Access.Until.IsZero() {
		green.Print("    ▶ ")
		fmt.Printf("Window:    %s .. %s\n", orOpen(cfg.Access.OpenFrom), orOpen(cfg.Access.OpenUntil))
	}
	if !cfg.Notify.SMTP.Enabled {
		yellow.Println("    ! SMTP disabled, mail is written to the log")
	}

	fmt.Println()

	logger.Info("starting household-registry",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"driver", cfg.Database.Driver,
		"kv", cfg.KV.Backend,
	)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func orOpen(s string) string {
	if s == "" {
		return "open"
	}
	return s
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = &colorHandler{mu: &sync.Mutex{}, out: os.Stdout, level: level}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
// Derived handlers share mu so lines never interleave.
type colorHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
	group string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch {
	case r.Level >= slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	case r.Level >= slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case r.Level >= slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	default:
		buf.WriteString(color.MagentaString("DBG "))
	}

	buf.WriteString(r.Message)

	write := func(a slog.Attr) {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		buf.WriteString(color.HiBlackString(" " + key + "="))
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{mu: h.mu, out: h.out, level: h.level, attrs: newAttrs, group: h.group}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &colorHandler{mu: h.mu, out: h.out, level: h.level, attrs: h.attrs, group: group}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("household-registry configuration setup")
	fmt.Println("=======================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Database ---")
	driver := prompt(reader, "Driver (sqlite/sqlite3/pgx)", config.DefaultDriver)
	defaultDSN := filepath.Join(getDataPath(), "registry.db")
	if driver == "pgx" {
		defaultDSN = "postgres://household@localhost:5432/household?sslmode=disable"
	}
	dsn := prompt(reader, "DSN", defaultDSN)

	fmt.Println("\n--- Magic links ---")
	backend := prompt(reader, "Token store (sql/redis/memory)", config.KVSQL)
	var redisURL string
	if backend == config.KVRedis {
		redisURL = prompt(reader, "Redis URL", "redis://localhost:6379/0")
	}
	formURL := prompt(reader, "Edit form URL", "https://example.com/form")

	fmt.Println("\n--- Registration window ---")
	accessToken := prompt(reader, "Access token (leave empty for none)", "")
	openFrom := prompt(reader, "Open from (YYYY-MM-DD, empty for always)", "")
	openUntil := prompt(reader, "Open until (YYYY-MM-DD, inclusive)", "")

	fmt.Println("\n--- Notifications ---")
	sender := prompt(reader, "Organisation name", config.DefaultSender)
	adminEmail := prompt(reader, "Operator email", "")
	smtpEnabled := isYes(prompt(reader, "Send mail via SMTP?", "no"))
	var smtpHost, from string
	if smtpEnabled {
		smtpHost = prompt(reader, "SMTP host", "smtp.example.com")
		from = prompt(reader, "From address", "noreply@example.com")
	}

	fmt.Println("\n--- Logging ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	secret, err := randomSecret()
	if err != nil {
		return err
	}

	var cfg strings.Builder
	cfg.WriteString("# household-registry configuration\n")
	cfg.WriteString("# Generated by household-registry init\n\n")

	fmt.Fprintf(&cfg, "server:\n  http_addr: %q\n\n", httpAddr)
	fmt.Fprintf(&cfg, "database:\n  driver: %q\n  dsn: %q\n\n", driver, dsn)

	fmt.Fprintf(&cfg, "kv:\n  backend: %q\n", backend)
	if redisURL != "" {
		fmt.Fprintf(&cfg, "  redis_url: %q\n  retention: \"24h\"\n", redisURL)
	}
	cfg.WriteString("\n")

	fmt.Fprintf(&cfg, "auth:\n  jwt_secret: %q\n  magic_link_ttl: \"30m\"\n  session_ttl: \"2h\"\n\n", secret)

	cfg.WriteString("access:\n")
	if accessToken != "" {
		fmt.Fprintf(&cfg, "  token: %q\n", accessToken)
	}
	if openFrom != "" {
		fmt.Fprintf(&cfg, "  open_from: %q\n", openFrom)
	}
	if openUntil != "" {
		fmt.Fprintf(&cfg, "  open_until: %q\n", openUntil)
	}
	fmt.Fprintf(&cfg, "  time_zone: %q\n\n", config.DefaultTimeZone)

	fmt.Fprintf(&cfg, "notify:\n  sender: %q\n  admin_email: %q\n  form_url: %q\n", sender, adminEmail, formURL)
	if smtpEnabled {
		fmt.Fprintf(&cfg, "  from: %q\n  smtp:\n    enabled: true\n    host: %q\n    port: 587\n", from, smtpHost)
	}
	cfg.WriteString("\n")

	fmt.Fprintf(&cfg, "logging:\n  level: %q\n  format: %q\n\n", logLevel, logFormat)
	cfg.WriteString("metrics:\n  enabled: true\n  path: \"/metrics\"\n")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if driver != "pgx" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  household-registry serve\n")

	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
