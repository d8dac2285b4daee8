// ABOUTME: Entry point for the handoff-gateway server and maintenance commands
// ABOUTME: serve runs the gateway; sessions/resume manage hand-off pauses directly

package main

import (
	"bufio"
	"context"
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
	"time"

	"github.com/fatih/color"

	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/gateway"
	"github.com/wassist/handoff-gateway/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                     _       __  __
| |__   __ _ _ __   __| | ___ / _|/ _|
| '_ \ / _' | '_ \ / _' |/ _ \ |_| |_
| | | | (_| | | | | (_| | (_) |  _|  _|
|_| |_|\__,_|_| |_|\__,_|\___/|_| |_|   gateway
`

// getConfigPath returns the path to the gateway config file.
// Priority: HANDOFF_CONFIG env var > XDG_CONFIG_HOME/handoff/gateway.yaml > ~/.config/handoff/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("HANDOFF_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "handoff", "gateway.yaml")
}

// getDataPath returns the path to the data directory.
// Priority: XDG_DATA_HOME/handoff > ~/.local/share/handoff
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "handoff")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: handoff-gateway <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve               Start the gateway server")
		fmt.Println("  init                Create a new config file interactively")
		fmt.Println("  health              Check gateway health")
		fmt.Println("  sessions            List hand-off pause records")
		fmt.Println("  resume [chat_id]    Resume one chat, or every chat when omitted")
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
	case "sessions":
		err = runSessions(ctx)
	case "resume":
		err = runResume(ctx)
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
	configPath := getConfigPath()

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
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Owner:    %s\n", cfg.Admission.OwnerWID)
	if cfg.Sweeper.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Sweeper:  %s\n", cfg.Sweeper.Schedule)
	}
	fmt.Println()

	logger.Info("starting handoff-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runSessions lists the pause records straight from the store, paused chats
// first. Works against a live gateway; sqlite runs in WAL mode.
func runSessions(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	for _, session := range sessions {
		if session.IsPaused {
			red.Print("  paused  ")
		} else {
			green.Print("  active  ")
		}
		fmt.Print(session.ChatID)
		if session.LastHumanAt != nil {
			gray.Printf("  hand-off %s", session.LastHumanAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
	return nil
}

// runResume clears a chat's pause, or every pause when no chat id is given.
func runResume(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	if len(os.Args) > 2 {
		chatID := os.Args[2]
		err := s.UpsertSession(ctx, &store.Session{
			ChatID:    chatID,
			IsPaused:  false,
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("resuming %s: %w", chatID, err)
		}
		fmt.Printf("resumed %s\n", chatID)
		return nil
	}

	count, err := s.ResumeAll(ctx)
	if err != nil {
		return fmt.Errorf("resuming all chats: %w", err)
	}
	fmt.Printf("resumed %d chat(s)\n", count)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("handoff-gateway configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "gateway.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- WhatsApp Configuration ---")
	ownerWID := prompt(reader, "Owner WhatsApp id (e.g. 972500000000@c.us)", "")
	apiURL := prompt(reader, "Green API url", "https://api.green-api.com")
	idInstance := prompt(reader, "Green API instance id", "")

	fmt.Println("\n--- Gate Configuration ---")
	authorized := prompt(reader, "Authorized numbers (comma separated)", "")
	unpause := prompt(reader, "Unpause phrases (comma separated)", "resume bot")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# handoff-gateway configuration\n")
	cfg.WriteString("# Generated by handoff-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("admission:\n")
	cfg.WriteString(fmt.Sprintf("  owner_wid: \"%s\"\n", ownerWID))
	writeYAMLList(&cfg, "  authorized_numbers", authorized)
	writeYAMLList(&cfg, "  unpause_phrases", unpause)
	cfg.WriteString("  pause_duration: \"6h\"\n")
	cfg.WriteString("  vip_pause_duration: \"24h\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("forward:\n")
	cfg.WriteString(fmt.Sprintf("  url: \"http://%s/api/chat\"\n", httpAddr))
	cfg.WriteString("  timeout: \"5s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("green_api:\n")
	cfg.WriteString(fmt.Sprintf("  api_url: \"%s\"\n", apiURL))
	cfg.WriteString(fmt.Sprintf("  id_instance: \"%s\"\n", idInstance))
	cfg.WriteString("  api_token: \"${GREEN_API_TOKEN}\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("agent:\n")
	cfg.WriteString("  api_key: \"${OPENAI_API_KEY}\"\n")
	cfg.WriteString("  model: \"gpt-4o-mini\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("sweeper:\n")
	cfg.WriteString("  enabled: true\n")
	cfg.WriteString("  schedule: \"*/10 * * * *\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  handoff-gateway serve\n")

	return nil
}

func writeYAMLList(cfg *strings.Builder, key, commaSeparated string) {
	wrote := false
	for _, v := range strings.Split(commaSeparated, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !wrote {
			cfg.WriteString(key + ":\n")
			wrote = true
		}
		cfg.WriteString(fmt.Sprintf("    - \"%s\"\n", v))
	}
	if !wrote {
		cfg.WriteString(key + ": []\n")
	}
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
