package service

import (
	"strings"
	"unicode/utf8"

	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

// MaxFilenameLength is the longest accepted filename in bytes.
const MaxFilenameLength = 255

// ValidateFilename checks that name is a bare file name that cannot address
// anything outside its deposit. It never rewrites the input.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return appErrors.Validation("filename", "filename must not be empty")
	case len(name) > MaxFilenameLength:
		return appErrors.Validation("filename", "filename must be at most 255 bytes")
	case !utf8.ValidString(name):
		return appErrors.Validation("filename", "filename must be valid UTF-8")
	case strings.TrimSpace(name) == "":
		return appErrors.Validation("filename", "filename must not be blank")
	case name == "." || name == "..":
		return appErrors.Validation("filename", "filename must not be a relative path reference")
	case strings.ContainsAny(name, "/\\\x00"):
		return appErrors.Validation("filename", "filename must not contain path separators")
	case strings.Contains(name, ".."):
		return appErrors.Validation("filename", "filename must not contain '..'")
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return appErrors.Validation("filename", "filename must not contain control characters")
		}
	}
	return nil
}
