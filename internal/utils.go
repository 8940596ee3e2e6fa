package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GenerateRunID creates a unique ID for a generation run based on timestamp and user input
// Format: epochMillis_md5(input)[:8]
func GenerateRunID(input string) string {
	epochMillis := time.Now().UnixMilli()

	hash := md5.Sum([]byte(input))
	hashStr := hex.EncodeToString(hash[:])[:8]

	return fmt.Sprintf("%d_%s", epochMillis, hashStr)
}

// SanitizeFilename creates a safe filename from a poem title. Title
// brackets are dropped, ASCII word characters and CJK ideographs are kept
// and everything else becomes an underscore.
func SanitizeFilename(s string) string {
	s = strings.NewReplacer("《", "", "》", "").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// isWordRune checks if a rune may appear unchanged in a filename
func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' ||
		(r >= 0x4e00 && r <= 0x9fa5)
}
