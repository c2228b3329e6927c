// Package extract turns uploaded file bytes into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrUnsupportedType is returned for file extensions outside the whitelist.
var ErrUnsupportedType = errors.New("unsupported file type")

// AllowedExtensions lists the upload formats the server accepts.
var AllowedExtensions = []string{".txt", ".pdf", ".md", ".markdown"}

// IsAllowedExtension reports whether ext (including the leading dot,
// lowercase) is accepted for upload.
func IsAllowedExtension(ext string) bool {
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Extract parses content according to the file extension and returns plain
// text. Parse failures are reported as errors, never panics.
func Extract(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".txt", ".md", ".markdown":
		return extractText(content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

func extractText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	// legacy CJK uploads arrive as GBK more often than anything else;
	// undecodable bytes are dropped
	decoded, err := simplifiedchinese.GBK.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "")
	}
	return strings.ReplaceAll(string(decoded), string(utf8.RuneError), "")
}

func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("parse pdf page %d: %w", i, err)
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String(), nil
}
