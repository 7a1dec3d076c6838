// Package media converts image payloads between inline data URLs and raw
// bytes, and maps media types to file extensions.
package media

import (
	"encoding/base64"
	"errors"
	"mime"
	"strings"
)

// ErrInvalidPayload is returned for data URLs that cannot be decoded.
var ErrInvalidPayload = errors.New("invalid image payload")

// DefaultExtension is used when a media type has no known extension.
const DefaultExtension = ".png"

const scheme = "data:"

// Payload is a decoded image.
type Payload struct {
	MIMEType string
	Data     []byte
}

// Decode parses a "data:<media-type>;base64,<payload>" string. The media
// type is the text between the scheme and the first ';' and may be empty.
func Decode(encoded string) (Payload, error) {
	if !strings.HasPrefix(encoded, scheme) {
		return Payload{}, ErrInvalidPayload
	}
	header, body, ok := strings.Cut(encoded, ",")
	if !ok {
		return Payload{}, ErrInvalidPayload
	}
	mimeType, _, _ := strings.Cut(strings.TrimPrefix(header, scheme), ";")

	data, err := decodeBase64(strings.TrimSpace(body))
	if err != nil {
		return Payload{}, ErrInvalidPayload
	}
	return Payload{MIMEType: strings.TrimSpace(mimeType), Data: data}, nil
}

func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}

// Encode renders p as a base64 data URL.
func Encode(p Payload) string {
	var b strings.Builder
	b.Grow(len(scheme) + len(p.MIMEType) + len(";base64,") + base64.StdEncoding.EncodedLen(len(p.Data)))
	b.WriteString(scheme)
	b.WriteString(p.MIMEType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(p.Data))
	return b.String()
}

// ExtensionFor returns the file extension, with leading dot, for a media
// type. Parameters are ignored and unknown types map to DefaultExtension.
func ExtensionFor(mediaType string) string {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	case "image/avif":
		return ".avif"
	case "image/svg+xml":
		return ".svg"
	case "":
		return DefaultExtension
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return DefaultExtension
}
