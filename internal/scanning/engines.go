package scanning

import (
	"fmt"
	"log/slog"
	"os"
)

// Recognizer engine names accepted by NewRecognizer
const (
	EngineTesseract = "tesseract"
	EngineGemini    = "gemini"
	EngineOllama    = "ollama"
	EngineNone      = "none"
)

// RecognizerConfig selects and configures the OCR engine
type RecognizerConfig struct {
	Engine      string
	Tesseract   TesseractConfig
	GeminiKey   string // falls back to GEMINI_API_KEY
	GeminiModel string
	OllamaURL   string
	OllamaModel string
}

// NewRecognizer builds the configured engine. EngineNone returns a nil
// Recognizer, which leaves images and scanned PDFs unsupported.
func NewRecognizer(cfg RecognizerConfig) (Recognizer, error) {
	switch cfg.Engine {
	case EngineTesseract, "":
		slog.Info("Using tesseract OCR", "binary", cfg.Tesseract.Binary, "lang", cfg.Tesseract.Lang)
		return NewTesseract(cfg.Tesseract, nil), nil
	case EngineGemini:
		apiKey := cfg.GeminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini api key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Using Gemini transcription", "model", cfg.GeminiModel)
		g, err := NewGemini(apiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	case EngineOllama:
		slog.Info("Using Ollama transcription", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		o, err := NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			return nil, err
		}
		return o, nil
	case EngineNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown OCR engine %q (expected tesseract, gemini, ollama or none)", cfg.Engine)
}
