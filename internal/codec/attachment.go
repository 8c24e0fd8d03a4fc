// Package codec converts binary attachments to and from the encoded text that
// travels inside JSON payloads and is stored in the record tables.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const dataURLScheme = "data:"

// DecodeError reports encoded text that does not decode to bytes.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid encoded attachment: %v", e.Err)
	}
	return fmt.Sprintf("invalid encoded attachment in %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode returns the bare base64 form of b.
func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// EncodeDataURL returns b as a data URL usable directly as an image source.
// An empty mediaType is sniffed from the content.
func EncodeDataURL(b []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = DetectMediaType(b)
	}
	return dataURLScheme + mediaType + ";base64," + Encode(b)
}

// Decode accepts bare base64 or a headered data URL and returns the payload bytes.
func Decode(text string) ([]byte, error) {
	payload := stripHeader(text)
	payload = strings.TrimSpace(payload)

	b, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return b, nil
	}
	// Browsers' atob accepts unpadded input.
	if len(payload)%4 != 0 {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
			return raw, nil
		}
	}
	return nil, &DecodeError{Err: err}
}

// DecodeField is Decode with the field name attached to any error.
func DecodeField(field, text string) ([]byte, error) {
	b, err := Decode(text)
	if err != nil {
		if de, ok := err.(*DecodeError); ok {
			de.Field = field
		}
		return nil, err
	}
	return b, nil
}

// Validate checks that a non-empty value decodes. Empty values are accepted.
func Validate(field, text string) error {
	if text == "" {
		return nil
	}
	_, err := DecodeField(field, text)
	return err
}

// MediaType returns the media type named by a data URL header, or "" for bare text.
func MediaType(text string) string {
	if !strings.HasPrefix(text, dataURLScheme) {
		return ""
	}
	idx := strings.IndexByte(text, ',')
	if idx < 0 {
		return ""
	}
	header := strings.TrimPrefix(text[:idx], dataURLScheme)
	mediaType, _, _ := strings.Cut(header, ";")
	return mediaType
}

// DetectMediaType sniffs the MIME type of b.
func DetectMediaType(b []byte) string {
	mt := mimetype.Detect(b)
	mediaType, _, _ := strings.Cut(mt.String(), ";")
	return mediaType
}

// Extension returns the conventional file extension (with dot) for b.
func Extension(b []byte) string {
	return mimetype.Detect(b).Extension()
}

// stripHeader drops everything up to the first comma. Commas never occur in
// the base64 alphabet, so any comma marks a header.
func stripHeader(text string) string {
	if idx := strings.IndexByte(text, ','); idx >= 0 {
		return text[idx+1:]
	}
	return text
}
