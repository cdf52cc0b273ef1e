// Package uploads checks local attachments and stores them on the backend
// before they are announced in a chat.
package uploads

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"novelchat/apperrors"
	"novelchat/config"

	_ "golang.org/x/image/webp"
)

const (
	MaxImageDimension = 4096 // Max width/height in pixels
	maxFilenameLength = 255
)

// MagicBytes defines the first bytes of valid image formats
var MagicBytes = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/gif":  {0x47, 0x49, 0x46, 0x38}, // GIF87a or GIF89a
	"image/webp": {0x52, 0x49, 0x46, 0x46}, // RIFF (WebP container)
}

// ImageInfo describes an image that passed validation.
type ImageInfo struct {
	DetectedMIME string
	DeclaredMIME string
	Format       string
	Width        int
	Height       int
	Size         int64
}

// Validator applies the configured attachment limits.
type Validator struct {
	maxImageSize int64
	maxFileSize  int64
	mimeTypes    map[string]bool
	extensions   map[string]bool
}

func NewValidator(cfg config.UploadConfig) *Validator {
	d := config.Default().Upload
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = d.MaxImageSize
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = d.MaxFileSize
	}
	if len(cfg.AllowedMimeTypes) == 0 {
		cfg.AllowedMimeTypes = d.AllowedMimeTypes
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = d.AllowedExtensions
	}

	v := &Validator{
		maxImageSize: cfg.MaxImageSize,
		maxFileSize:  cfg.MaxFileSize,
		mimeTypes:    make(map[string]bool, len(cfg.AllowedMimeTypes)),
		extensions:   make(map[string]bool, len(cfg.AllowedExtensions)),
	}
	for _, m := range cfg.AllowedMimeTypes {
		v.mimeTypes[m] = true
	}
	for _, e := range cfg.AllowedExtensions {
		v.extensions[strings.ToLower(e)] = true
	}
	return v
}

// ValidateImage checks an image before it is uploaded: size, declared type,
// extension, magic bytes, decodability and dimensions.
func (v *Validator) ValidateImage(name, declaredMIME string, data []byte) (*ImageInfo, error) {
	info := &ImageInfo{
		DeclaredMIME: normalizeMIME(declaredMIME),
		Size:         int64(len(data)),
	}

	// 1. Check file size
	if info.Size > v.maxImageSize {
		return nil, apperrors.NewFileTooLarge(v.maxImageSize)
	}
	if info.Size == 0 {
		return nil, apperrors.NewValidationError("Empty file")
	}

	// 2. Validate declared MIME type
	if !v.mimeTypes[info.DeclaredMIME] {
		return nil, apperrors.NewInvalidFileType(keys(v.mimeTypes)).
			WithDetails("declared", declaredMIME)
	}

	// 3. Validate file name and extension
	if err := ValidateFilename(name); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !v.extensions[ext] {
		return nil, apperrors.NewInvalidFileType(keys(v.extensions)).
			WithDetails("extension", ext)
	}

	// 4. Verify magic bytes match the declared format
	info.DetectedMIME = http.DetectContentType(data)
	if !validateMagicBytes(data, info.DeclaredMIME) {
		return nil, apperrors.NewValidationError("File content does not match declared type").
			WithDetails("declared", info.DeclaredMIME).
			WithDetails("detected", info.DetectedMIME)
	}
	if !isCompatibleMIME(info.DetectedMIME, info.DeclaredMIME) {
		return nil, apperrors.NewValidationError("File type mismatch detected").
			WithDetails("declared", info.DeclaredMIME).
			WithDetails("detected", info.DetectedMIME)
	}

	// 5. Decode the header to prove it is a real image and get dimensions
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewValidationError("File is not a valid image or is corrupted").WithInternal(err)
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height

	if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return nil, apperrors.NewValidationErrorf("Image dimensions exceed maximum allowed size (%dx%d)",
			MaxImageDimension, MaxImageDimension)
	}

	// 6. Validate format matches extension
	if format != formatFromExtension(ext) {
		return nil, apperrors.NewValidationError("File extension does not match actual image format").
			WithDetails("extension", ext).
			WithDetails("format", format)
	}

	return info, nil
}

// ValidateFile checks a generic attachment. Any type is allowed.
func (v *Validator) ValidateFile(name string, size int64) error {
	if size <= 0 {
		return apperrors.NewValidationError("Empty file")
	}
	if size > v.maxFileSize {
		return apperrors.NewFileTooLarge(v.maxFileSize)
	}
	return ValidateFilename(name)
}

// ValidateFilename rejects names that could escape a directory or that the
// backend cannot store.
func ValidateFilename(name string) error {
	if name == "" || len(name) > maxFilenameLength || !utf8.ValidString(name) {
		return invalidFilename(name)
	}
	if strings.Contains(name, "..") ||
		strings.ContainsAny(name, "/\\\x00") {
		return invalidFilename(name)
	}
	return nil
}

func invalidFilename(name string) error {
	return apperrors.New(apperrors.ErrCodeInvalidFilename, "Filename contains invalid characters", http.StatusBadRequest).
		WithDetails("filename", name)
}

// SanitizeFilename removes any potentially dangerous characters
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "\x00", "")

	if len(filename) > maxFilenameLength {
		ext := filepath.Ext(filename)
		filename = filename[:maxFilenameLength-len(ext)] + ext
	}
	return filename
}

// validateMagicBytes checks if file starts with expected magic bytes
func validateMagicBytes(content []byte, mimeType string) bool {
	expected, exists := MagicBytes[mimeType]
	if !exists || len(content) < len(expected) {
		return false
	}

	// WebP carries its marker at offset 8
	if mimeType == "image/webp" {
		if len(content) < 12 {
			return false
		}
		return bytes.Equal(content[0:4], expected) &&
			bytes.Equal(content[8:12], []byte("WEBP"))
	}

	return bytes.Equal(content[:len(expected)], expected)
}

// isCompatibleMIME checks if detected MIME is compatible with declared MIME
func isCompatibleMIME(detected, declared string) bool {
	return normalizeMIME(detected) == normalizeMIME(declared)
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" {
		return "image/jpeg"
	}
	return m
}

func formatFromExtension(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return ""
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (i ImageInfo) String() string {
	return fmt.Sprintf("%s %dx%d (%d bytes)", i.Format, i.Width, i.Height, i.Size)
}
