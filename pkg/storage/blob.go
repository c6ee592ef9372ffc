package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Object describes a stored blob.
type Object struct {
	Locator string
	Size    int64
}

// ObjectName derives a unique, filesystem-safe key from a user supplied file name.
func ObjectName(suggested string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s", now.UTC().Format("20060102_150405"), randomSuffix(), SanitizeName(suggested))
}

// SanitizeName strips directories and replaces characters outside [A-Za-z0-9._-].
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "file.bin"
	}
	return cleaned
}

// DisplayName keeps the client's file name as shown to users. Only the
// directory part and control characters are removed; SanitizeName is for
// locators.
func DisplayName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file.bin"
	}
	return name
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
