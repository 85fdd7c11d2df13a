package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/deposit-api/pkg/errors"
)

func TestValidateFilename(t *testing.T) {
	valid := []string{"test.txt", "rename.txt", "Data Set (v2).csv", "résumé.pdf", strings.Repeat("a", 255)}
	for _, name := range valid {
		assert.NoError(t, ValidateFilename(name), name)
	}

	invalid := []string{
		"",
		" ",
		".",
		"..",
		"../../etc/passwd",
		"../../../test.txt",
		"dir/test.txt",
		`dir\test.txt`,
		"nul\x00byte",
		"tab\tname",
		"a..b",
		strings.Repeat("a", 256),
		string([]byte{0xff, 0xfe}),
	}
	for _, name := range invalid {
		err := ValidateFilename(name)
		require.Error(t, err, "%q", name)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
		require.Len(t, appErr.Report(), 1)
		assert.Equal(t, "filename", appErr.Report()[0].Field)
	}
}
