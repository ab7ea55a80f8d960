package mail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"subscan/internal/core"
)

// Payload is a provider-neutral MIME tree. Data holds the part body in
// URL-safe base64, padded or not.
type Payload struct {
	MimeType string
	Data     string
	Parts    []Payload
}

// BodyText selects and decodes the plain text of a payload.
//
// The first direct text/plain part with data wins. A payload without parts
// uses its own body. Anything else yields "". Invalid UTF-8 is replaced with
// U+FFFD; only structurally invalid base64 is reported, wrapping
// core.ErrExtraction.
func BodyText(p Payload) (string, error) {
	if len(p.Parts) > 0 {
		for _, part := range p.Parts {
			if isPlainText(part.MimeType) && part.Data != "" {
				return decodeBody(part.Data)
			}
		}
		return "", nil
	}
	if p.Data == "" {
		return "", nil
	}
	return decodeBody(p.Data)
}

func isPlainText(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	return strings.EqualFold(mediaType, "text/plain")
}

func decodeBody(data string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(data), "="))
	if err != nil {
		return "", fmt.Errorf("%w: decode body: %v", core.ErrExtraction, err)
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// EncodeBody encodes text the way providers deliver part bodies.
func EncodeBody(text string) string {
	return base64.URLEncoding.EncodeToString([]byte(text))
}
