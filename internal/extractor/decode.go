package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
)

var errNotEncoded = errors.New("span is not encoded")

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true, ".yaml": true,
	".yml": true, ".xml": true, ".svg": true, ".html": true,
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

func decodeBase64(s string) ([]byte, error) {
	s = stripSpace(s)
	if s == "" {
		return nil, errNotEncoded
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func isHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func decodeHex(s string) ([]byte, error) {
	s = stripSpace(s)
	if !isHex(s) {
		return nil, errNotEncoded
	}
	return hex.DecodeString(s)
}

// sniffExt guesses an extension from leading bytes.
func sniffExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return ".png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return ".jpg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return ".gif"
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return ".pdf"
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return officeExt(data)
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("<svg")) || (bytes.HasPrefix(trimmed, []byte("<?xml")) && bytes.Contains(trimmed, []byte("<svg"))) {
		return ".svg"
	}
	return ".txt"
}

// officeExt inspects a zip container for the OOXML part directory.
func officeExt(data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ".xlsx"
	}
	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return ".docx"
		case strings.HasPrefix(f.Name, "xl/"):
			return ".xlsx"
		}
	}
	return ".xlsx"
}

// asText names a payload that failed to decode so it is stored as text.
func asText(name string) string {
	if textExtensions[models.Ext(name)] {
		return name
	}
	return name + ".txt"
}
