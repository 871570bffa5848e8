package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/crawl"
	"github.com/fwojciec/docdex/fs"
	"github.com/fwojciec/docdex/gemini"
	"github.com/fwojciec/docdex/goquery"
	"github.com/fwojciec/docdex/htmltomarkdown"
	dochttp "github.com/fwojciec/docdex/http"
	"github.com/fwojciec/docdex/index"
	"github.com/fwojciec/docdex/rod"
	docslog "github.com/fwojciec/docdex/slog"
	"github.com/fwojciec/docdex/sqlite"
	"github.com/fwojciec/docdex/trafilatura"
	"google.golang.org/genai"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SessionsDir holds encrypted per-domain sessions.
	SessionsDir string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services exposed for end-to-end testing.
	DocumentService docdex.DocumentService
	SessionService  docdex.SessionService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath:      defaultDBPath(),
		SessionsDir: defaultSessionsDir(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docdex"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docdex --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	// Open database
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set DOCDEX_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	// Wire core services into dependencies
	m.DocumentService = sqlite.NewDocumentService(m.DB)
	m.SessionService = docslog.NewLoggingSessionService(fs.NewSessionStore(m.SessionsDir), deps.Logger)
	deps.DB = m.DB
	deps.Documents = m.DocumentService
	deps.Sessions = m.SessionService

	// The embedder is optional: without GEMINI_API_KEY indexing stores
	// unembedded chunks and search degrades to keyword matching.
	var embedder docdex.Embedder
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return fmt.Errorf("failed to connect to Gemini API: %w", err)
		}
		embedder = gemini.NewEmbedder(client)
	} else if cmd == "index" || cmd == "search" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY not set; continuing without embeddings")
	}
	deps.Search = sqlite.NewSearchService(m.DB, embedder)

	if cmd == "index" {
		manager, err := rod.NewManager()
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer manager.Close()

		rules := goquery.DefaultRules(trafilatura.NewExtractor())
		sitemaps := docslog.NewLoggingSitemapService(dochttp.NewSitemapService(nil), deps.Logger)
		limiter := crawl.NewDomainLimiter(cli.Index.RPS)

		deps.Tracker = index.NewTracker()
		deps.Tracker.AddStatusListener(docslog.NewStatusListener(deps.Logger))
		deps.Indexer = &index.Indexer{
			Registry: index.NewRegistry(),
			Tracker:  deps.Tracker,
			Processor: &index.Processor{
				Converter: htmltomarkdown.NewConverter(),
				Documents: m.DocumentService,
				Chunks:    sqlite.NewChunkService(m.DB),
				Embedder:  embedder,
			},
			Sessions: m.SessionService,
			NewEngine: func() (docdex.CrawlEngine, error) {
				return &crawl.Engine{
					Browser:  docslog.NewLoggingBrowser(manager, deps.Logger),
					Rules:    rules,
					Sitemaps: sitemaps,
					Limiter:  limiter,
					MaxPages: cli.Index.MaxPages,
				}, nil
			},
		}
	}

	if cmd == "login" {
		deps.Login = &rod.LoginFlow{Sessions: m.SessionService}
	}

	return kongCtx.Run(deps)
}

func defaultDBPath() string {
	if path := os.Getenv("DOCDEX_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docdex.db"
	}
	dir := filepath.Join(home, ".docdex")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "docdex.db")
}

func defaultSessionsDir() string {
	if path := os.Getenv("DOCDEX_SESSIONS"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docdex-sessions"
	}
	return filepath.Join(home, ".docdex", "sessions")
}
