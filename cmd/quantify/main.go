package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/quantify/internal/inventory"
	"github.com/zombor/quantify/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env is fine; variables already in the environment win.
	_ = godotenv.Load()

	fs := ff.NewFlagSet("quantify")
	var (
		port         = fs.IntLong("port", 5001, "HTTP server port")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		maxUploadMB  = fs.IntLong("max-upload-mb", 10, "Largest accepted bill upload in MB")
		storeType    = fs.StringLong("store", "bolt", "Database backend: 'bolt' or 'sqlite'")
		dbPath       = fs.StringLong("db", "quantify.db", "Database file path")
		storagePath  = fs.StringLong("storage", "./bills", "Directory for uploaded bill files")
		ocrEngine    = fs.StringLong("ocr", "tesseract", "OCR engine: 'tesseract', 'gemini', 'ollama' or 'none'")
		pdfMaxPages  = fs.IntLong("pdf-max-pages", 5, "Pages of a scanned PDF sent to OCR")
		tessBin      = fs.StringLong("tesseract-bin", "tesseract", "Path to the tesseract binary")
		tessLang     = fs.StringLong("tesseract-lang", "eng", "Tesseract language(s), e.g. eng or eng+deu")
		tessDataDir  = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama vision model name (e.g., llava, qwen2-vl, minicpm-v)")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		_            = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("QUANTIFY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid --log-level %q\n", *logLevel)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("Initializing database...", "store", *storeType, "path", *dbPath)
	var db inventory.DB
	var err error
	switch *storeType {
	case "bolt":
		db, err = inventory.NewBoltDB(*dbPath)
	case "sqlite":
		db, err = inventory.NewSQLiteDB(*dbPath)
	default:
		err = fmt.Errorf("unknown store %q (expected bolt or sqlite)", *storeType)
	}
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ocr, err := scanning.NewRecognizer(scanning.RecognizerConfig{
		Engine: *ocrEngine,
		Tesseract: scanning.TesseractConfig{
			Binary:  *tessBin,
			Lang:    *tessLang,
			DataDir: *tessDataDir,
		},
		GeminiKey:   *geminiKey,
		GeminiModel: *geminiModel,
		OllamaURL:   *ollamaURL,
		OllamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize OCR", "error", err)
		os.Exit(1)
	}
	scanner := scanning.NewDocuments(ocr, *pdfMaxPages)
	defer scanner.Close()

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := inventory.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	service := inventory.NewService(db, scanner, store)

	server, err := inventory.NewServer(service, inventory.ServerConfig{
		BasicAuth: inventory.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		},
		Version:        version,
		MaxUploadBytes: int64(*maxUploadMB) << 20,
	})
	if err != nil {
		slog.Error("Failed to initialize server", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
