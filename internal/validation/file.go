package validation

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/templui/codekeeper/internal/imagecodec"
)

// FileConstraints limits what an upload may contain. Types are sniffed from
// the bytes, never taken from the client's Content-Type.
type FileConstraints struct {
	MimeTypes  []string
	Extensions []string
	MaxSize    int64
}

var (
	ErrNotAnImage   = errors.New("please select an image file")
	ErrFileTooLarge = errors.New("file too large")
)

// ImageConstraints accepts what phone cameras and browsers produce for photos.
var ImageConstraints = FileConstraints{
	MimeTypes:  []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/heic", "image/heif"},
	Extensions: []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".heic", ".heif"},
	MaxSize:    10 << 20,
}

// MaxUploadRequest bounds a whole state-changing request body: one photo at
// ImageConstraints.MaxSize plus form fields and multipart framing.
const MaxUploadRequest = 11 << 20

// sniffLen is all imagecodec.DetectContentType looks at.
const sniffLen = 512

func ValidateFile(header *multipart.FileHeader, c FileConstraints) error {
	if header.Size > c.MaxSize {
		return fmt.Errorf("%w: maximum size is %d MB", ErrFileTooLarge, c.MaxSize>>20)
	}

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" && !contains(c.Extensions, ext) {
		return fmt.Errorf("%w (extension: %s)", ErrNotAnImage, ext)
	}

	f, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	head, err := io.ReadAll(io.LimitReader(f, sniffLen))
	if err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	if detected := imagecodec.DetectContentType(head); !contains(c.MimeTypes, detected) {
		return fmt.Errorf("%w (detected: %s)", ErrNotAnImage, detected)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
