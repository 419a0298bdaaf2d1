package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/desertthunder/pulse/internal/models"
	"github.com/desertthunder/pulse/internal/shared"
)

// maxSegmentBytes keeps "Artist - Title (n).ext" under the common 255-byte name limit.
const (
	maxSegmentBytes = 100
	maxNameAttempts = 1000
)

// SanitizeSegment makes s safe as part of a filename on common filesystems.
//
// Reserved and control characters become "_", runs of "_" and whitespace collapse,
// and leading or trailing dots, spaces and underscores are trimmed.
func SanitizeSegment(s string) string {
	var b strings.Builder
	lastUnderscore, lastSpace := false, false

	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace, lastUnderscore = true, false
		case strings.ContainsRune(`<>:"/\|?*`, r), unicode.IsControl(r):
			if !lastUnderscore {
				b.WriteRune('_')
			}
			lastUnderscore, lastSpace = true, false
		case r == '_':
			if !lastUnderscore {
				b.WriteRune('_')
			}
			lastUnderscore, lastSpace = true, false
		default:
			b.WriteRune(r)
			lastUnderscore, lastSpace = false, false
		}
	}

	out := strings.Trim(b.String(), " ._")
	if len(out) > maxSegmentBytes {
		cut := maxSegmentBytes
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimRight(out[:cut], " ._")
	}
	return out
}

// OutputFilename returns "Artist - Title.<ext>" with each segment sanitized.
// Segments that sanitize to nothing fall back to the track id.
func OutputFilename(meta models.TrackMetadata, ext string) string {
	fallback := SanitizeSegment(meta.ID)
	if fallback == "" {
		fallback = "track"
	}

	artist := SanitizeSegment(meta.Artist)
	title := SanitizeSegment(meta.Title)

	var base string
	switch {
	case artist == "" && title == "":
		base = fallback
	case artist == "":
		base = fallback + " - " + title
	case title == "":
		base = artist + " - " + fallback
	default:
		base = artist + " - " + title
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

// UniquePath returns a path in dir for filename that does not exist yet, suffixing
// " (2)", " (3)", ... before the extension on collision.
func UniquePath(dir, filename string) (path, name string, err error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	name = filename
	for n := 2; n <= maxNameAttempts+1; n++ {
		path = filepath.Join(dir, name)
		_, statErr := os.Lstat(path)
		switch {
		case os.IsNotExist(statErr):
			return path, name, nil
		case statErr != nil:
			return "", "", fmt.Errorf("%w: checking %s: %v", shared.ErrIO, name, statErr)
		}
		name = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	return "", "", fmt.Errorf("%w: no free name for %s after %d attempts", shared.ErrIO, filename, maxNameAttempts)
}
