// Package imagecodec converts image bytes to and from base64 data URIs.
package imagecodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrRead    = errors.New("failed to read image")
	ErrPayload = errors.New("invalid data uri payload")
)

// Encode reads all of r and returns data:<mime>;base64,<payload>.
// An empty mimeType is sniffed from the content.
func Encode(r io.Reader, mimeType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	return EncodeBytes(data, mimeType), nil
}

func EncodeBytes(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = DetectContentType(data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// heifBrands maps ISO base media file brands to the image type they mark.
// iPhones save photos as HEIC, which http.DetectContentType does not know.
var heifBrands = map[string]string{
	"heic": "image/heic",
	"heix": "image/heic",
	"heim": "image/heic",
	"heis": "image/heic",
	"hevc": "image/heic",
	"hevx": "image/heic",
	"mif1": "image/heif",
	"msf1": "image/heif",
	"heif": "image/heif",
}

// DetectContentType is http.DetectContentType plus HEIC and HEIF, found by
// the major brand of the leading ftyp box.
func DetectContentType(data []byte) string {
	if len(data) >= 12 && string(data[4:8]) == "ftyp" {
		if mimeType, ok := heifBrands[string(data[8:12])]; ok {
			return mimeType
		}
	}
	return http.DetectContentType(data)
}

// Decode splits a data URI into its media type and base64 payload.
// The media type is the second ':'-separated field of the text before the
// first ';' and the payload is the second ','-separated field.
// Missing delimiters yield empty fields.
func Decode(dataURI string) (mimeType, payload string) {
	mimeType = field(field(dataURI, ";", 0), ":", 1)
	payload = field(dataURI, ",", 1)
	return mimeType, payload
}

// field returns the i-th sep-separated field of s, or "" when absent.
func field(s, sep string, i int) string {
	parts := strings.SplitN(s, sep, i+2)
	if len(parts) <= i {
		return ""
	}
	return parts[i]
}

// Bytes decodes the payload of a data URI.
func Bytes(dataURI string) (string, []byte, error) {
	mimeType, payload := Decode(dataURI)
	if payload == "" {
		return mimeType, nil, ErrPayload
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return mimeType, nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	return mimeType, data, nil
}

// IsImage reports whether a data URI declares an image media type.
func IsImage(dataURI string) bool {
	mimeType, _ := Decode(dataURI)
	return strings.HasPrefix(mimeType, "image/")
}
