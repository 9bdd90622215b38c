package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Content types understood by Documents
const (
	TypePDF         = "application/pdf"
	TypeHTML        = "text/html"
	TypeEmail       = "message/rfc822"
	TypeSpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TypePlain       = "text/plain"
	TypeCSV         = "text/csv"
)

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".heic": "image/heic",
	".heif": "image/heif",
	".pdf":  TypePDF,
	".html": TypeHTML,
	".htm":  TypeHTML,
	".eml":  TypeEmail,
	".xlsx": TypeSpreadsheet,
	".txt":  TypePlain,
	".csv":  TypeCSV,
}

// Documents routes a document to the extractor for its content type.
// Images and PDFs without a text layer go through the Recognizer.
type Documents struct {
	ocr         Recognizer
	maxPDFPages int
}

// NewDocuments creates a Documents scanner. maxPDFPages caps how many pages
// of a scanned PDF are sent to OCR; zero means all of them.
func NewDocuments(ocr Recognizer, maxPDFPages int) *Documents {
	return &Documents{
		ocr:         ocr,
		maxPDFPages: maxPDFPages,
	}
}

// ScanText extracts the text of a document
func (d *Documents) ScanText(ctx context.Context, data []byte, contentType string) (string, error) {
	text, err := d.scan(ctx, data, normalizeType(contentType))
	if err != nil {
		return "", err
	}
	return normalizeText(text), nil
}

func (d *Documents) scan(ctx context.Context, data []byte, mimeType string) (string, error) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		text, err := d.imageText(ctx, data, mimeType)
		if err != nil {
			return "", fmt.Errorf("OCR processing failed: %w", err)
		}
		return text, nil
	case mimeType == TypePDF:
		text, err := d.pdfText(ctx, data)
		if err != nil {
			return "", fmt.Errorf("PDF processing failed: %w", err)
		}
		return text, nil
	case mimeType == TypeHTML:
		text, err := htmlText(data)
		if err != nil {
			return "", fmt.Errorf("HTML processing failed: %w", err)
		}
		return text, nil
	case mimeType == TypeEmail:
		text, err := d.emailText(ctx, data)
		if err != nil {
			return "", fmt.Errorf("email processing failed: %w", err)
		}
		return text, nil
	case mimeType == TypeSpreadsheet:
		text, err := spreadsheetText(data)
		if err != nil {
			return "", fmt.Errorf("spreadsheet processing failed: %w", err)
		}
		return text, nil
	case mimeType == TypePlain || mimeType == TypeCSV:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

func (d *Documents) imageText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if d.ocr == nil {
		return "", errors.New("no OCR engine configured")
	}
	pngData, err := ensurePNG(data, mimeType)
	if err != nil {
		return "", err
	}
	return d.ocr.Recognize(ctx, pngData)
}

// pdfText prefers the text layer and falls back to OCR of rendered pages
// when the layer is blank, as with scanned documents.
func (d *Documents) pdfText(ctx context.Context, data []byte) (string, error) {
	text, err := pdfTextLayer(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if d.ocr == nil {
		return "", errors.New("PDF has no text layer and no OCR engine is configured")
	}

	slog.Info("PDF has no text layer, running OCR", "max_pages", d.maxPDFPages)
	pages, err := pdfToImages(data, d.maxPDFPages)
	if err != nil {
		return "", err
	}

	texts := make([]string, 0, len(pages))
	for i, page := range pages {
		pageText, err := d.ocr.Recognize(ctx, page)
		if err != nil {
			return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
		}
		texts = append(texts, strings.TrimSpace(pageText))
	}
	return strings.Join(texts, "\n"), nil
}

// Close closes the underlying recognizer
func (d *Documents) Close() error {
	if d.ocr == nil {
		return nil
	}
	return d.ocr.Close()
}

// DetectContentType picks the content type of an upload. A specific
// declared type wins, then the file extension, then content sniffing.
func DetectContentType(filename, declared string, data []byte) string {
	if ct := normalizeType(declared); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	if len(data) > 0 {
		return normalizeType(http.DetectContentType(data))
	}
	return "application/octet-stream"
}

// normalizeType lowercases a MIME type and drops its parameters
func normalizeType(contentType string) string {
	mimeType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mimeType))
}

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// normalizeText folds compatibility characters (full-width digits,
// non-breaking spaces) and line endings.
func normalizeText(text string) string {
	return lineBreaks.Replace(norm.NFKC.String(text))
}
