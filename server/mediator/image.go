package mediator

import (
	"encoding/base64"
	"strings"

	apperrors "github.com/banterhq/banter/internal/errors"
)

const defaultImageMIMEType = "image/jpeg"

// decodeImage turns an inline image payload into raw bytes plus a MIME type.
// Accepts either a bare base64 string or a data URI
// ("data:image/png;base64,....").
func decodeImage(payload string) ([]byte, string, error) {
	mimeType := defaultImageMIMEType
	encoded := payload

	if strings.HasPrefix(payload, "data:") {
		rest := payload[len("data:"):]
		idx := strings.Index(rest, ";base64,")
		if idx < 0 {
			return nil, "", apperrors.New(apperrors.ErrCodeEmptyRequest, "malformed image payload")
		}
		if mt := rest[:idx]; mt != "" {
			mimeType = mt
		}
		encoded = rest[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrCodeEmptyRequest, "malformed image payload", err)
	}
	if len(data) == 0 {
		return nil, "", apperrors.New(apperrors.ErrCodeEmptyRequest, "empty image payload")
	}
	return data, mimeType, nil
}
