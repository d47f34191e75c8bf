package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// MaxImageBytes caps uploaded scan size. CBCT exports run large; anything
// bigger than this is almost certainly not a single scan image.
const MaxImageBytes = 12 << 20

var allowedImageTypes = map[string]bool{
	"image/png":         true,
	"image/jpeg":        true,
	"image/webp":        true,
	"application/dicom": true,
}

// ValidateImageType checks the upload content type against the formats the
// inference provider accepts.
func ValidateImageType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if !allowedImageTypes[ct] {
		return fmt.Errorf("unsupported image type %q (allowed: image/png, image/jpeg, image/webp, application/dicom)", contentType)
	}
	return nil
}

// ValidateImageSize rejects empty and oversized payloads.
func ValidateImageSize(n int) error {
	if n == 0 {
		return fmt.Errorf("image payload is empty")
	}
	if n > MaxImageBytes {
		return fmt.Errorf("image payload exceeds %d bytes", MaxImageBytes)
	}
	return nil
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// ValidateID checks patient and scan identifiers. IDs become storage keys,
// so the charset must stay path-safe.
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s id cannot be empty", kind)
	}
	if strings.Contains(id, "..") || !idPattern.MatchString(id) {
		return fmt.Errorf("invalid %s id format (alphanumeric, dot, dash, underscore, max 64 chars)", kind)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
