// Command billparse prints the items found on a bill as JSON.
//
//	billparse [flags] [file]
//
// The bill is read from file, or from stdin when no file is given.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/quantify/internal/billparse"
	"github.com/zombor/quantify/internal/scanning"
)

type output struct {
	Strategy string                `json:"strategy,omitempty"`
	Items    []billparse.Item      `json:"items"`
	Rejected []billparse.Rejection `json:"rejected,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := ff.NewFlagSet("billparse")
	var (
		contentType = fs.StringLong("type", "", "Content type of the input (detected from the file name or data when empty)")
		ocrEngine   = fs.StringLong("ocr", "tesseract", "OCR engine for images and scanned PDFs: 'tesseract', 'gemini', 'ollama' or 'none'")
		pdfMaxPages = fs.IntLong("pdf-max-pages", 5, "Pages of a scanned PDF sent to OCR")
		tessBin     = fs.StringLong("tesseract-bin", "tesseract", "Path to the tesseract binary")
		tessLang    = fs.StringLong("tesseract-lang", "eng", "Tesseract language(s)")
		tessDataDir = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)")
		noValidate  = fs.BoolLong("no-validate", "Print extracted items without the validation pass")
		verbose     = fs.BoolLong("verbose", "Log extraction details to stderr")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("BILLPARSE")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	filename, data, err := readInput(fs.GetArgs(), stdin)
	if err != nil {
		return err
	}

	ocr, err := scanning.NewRecognizer(scanning.RecognizerConfig{
		Engine: *ocrEngine,
		Tesseract: scanning.TesseractConfig{
			Binary:  *tessBin,
			Lang:    *tessLang,
			DataDir: *tessDataDir,
		},
	})
	if err != nil {
		return err
	}
	docs := scanning.NewDocuments(ocr, *pdfMaxPages)
	defer docs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	text, err := docs.ScanText(ctx, data, scanning.DetectContentType(filename, *contentType, data))
	if err != nil {
		return fmt.Errorf("reading %s: %w", displayName(filename), err)
	}

	result := billparse.Extract(text)
	out := output{Strategy: result.Strategy, Items: result.Items}
	if !*noValidate {
		out.Items, out.Rejected = billparse.Screen(result.Items)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(args []string, stdin io.Reader) (string, []byte, error) {
	switch len(args) {
	case 0:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", nil, fmt.Errorf("reading stdin: %w", err)
		}
		return "", data, nil
	case 1:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", nil, fmt.Errorf("reading bill: %w", err)
		}
		return args[0], data, nil
	}
	return "", nil, fmt.Errorf("expected at most one file, got %d", len(args))
}

func displayName(filename string) string {
	if filename == "" {
		return "stdin"
	}
	return filename
}
