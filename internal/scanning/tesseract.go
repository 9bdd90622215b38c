package scanning

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TesseractWhitelist restricts recognition to codes, numbers and the
// punctuation found on bills.
const TesseractWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_.,: \n\t()[]{}|/$#@!%^&*+=<>?"

// psmAuto is fully automatic page segmentation
const psmAuto = 3

// TesseractConfig configures the tesseract CLI
type TesseractConfig struct {
	Binary  string // defaults to "tesseract"
	Lang    string // defaults to "eng"
	DataDir string // optional --tessdata-dir
}

// Tesseract implements Recognizer with the tesseract command line tool
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
}

// NewTesseract creates a Tesseract recognizer. A nil runner uses ExecRunner.
func NewTesseract(cfg TesseractConfig, runner Runner) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Tesseract{cfg: cfg, runner: runner}
}

// Recognize writes the image to a temporary file and runs tesseract on it
func (t *Tesseract) Recognize(ctx context.Context, png []byte) (string, error) {
	f, err := os.CreateTemp("", "quantify-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("creating temp image: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(png); err != nil {
		f.Close()
		return "", fmt.Errorf("writing temp image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing temp image: %w", err)
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.args(f.Name())...)
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, truncate(msg, 512))
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

// args builds: tesseract <file> stdout -l <lang> --psm 3 -c ... [--tessdata-dir D]
func (t *Tesseract) args(path string) []string {
	args := []string{
		path, "stdout",
		"-l", t.cfg.Lang,
		"--psm", strconv.Itoa(psmAuto),
		"-c", "tessedit_char_whitelist=" + TesseractWhitelist,
		"-c", "preserve_interword_spaces=1",
	}
	if t.cfg.DataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.DataDir)
	}
	return args
}

// Close is a no-op; each recognition starts its own process
func (t *Tesseract) Close() error {
	return nil
}
