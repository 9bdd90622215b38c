package scanning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jhillyerd/enmime"
)

// emailText reads a forwarded bill: the message body followed by the text
// of each attachment that can be scanned. Other attachments are skipped.
func (d *Documents) emailText(ctx context.Context, data []byte) (string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("reading message: %w", err)
	}

	var parts []string
	switch {
	case env.HTML != "":
		body, err := htmlText([]byte(env.HTML))
		if err != nil {
			return "", err
		}
		parts = append(parts, body)
	case env.Text != "":
		parts = append(parts, env.Text)
	}

	for _, att := range env.Attachments {
		name := strings.TrimSpace(att.FileName)
		contentType := DetectContentType(name, att.ContentType, att.Content)

		text, err := d.scan(ctx, att.Content, contentType)
		if errors.Is(err, ErrUnsupportedType) {
			slog.Debug("Skipping attachment", "filename", name, "content_type", contentType)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("attachment %q: %w", name, err)
		}
		parts = append(parts, text)
	}

	return strings.Join(parts, "\n"), nil
}
