package scanning

import (
	"context"
	"errors"
)

// ErrUnsupportedType is returned for documents no extractor understands.
var ErrUnsupportedType = errors.New("unsupported file type")

// Scanner defines the interface for turning an uploaded document into text
type Scanner interface {
	// ScanText extracts the plain text of a bill image, PDF, or other document
	ScanText(ctx context.Context, data []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Recognizer reads the text printed in a PNG image
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
	Close() error
}
