package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeberg.org/snonux/poetcard/internal"
)

// Poem is the text part of a generation as written to disk
type Poem struct {
	Title   string
	Content string
	Comment string
}

// PoemText renders a poem as plain text: title, blank line, body and,
// when present, the annotation
func PoemText(p *Poem) string {
	text := fmt.Sprintf("%s\n\n%s", p.Title, p.Content)
	if p.Comment != "" {
		text += fmt.Sprintf("\n\n【注释】%s", p.Comment)
	}
	return text
}

// PoemFilename returns the file name for a poem saved at now
func PoemFilename(title string, now time.Time) string {
	return fmt.Sprintf("%s_%d.txt", internal.SanitizeFilename(title), now.UnixMilli())
}

// ImageFilename returns the file name for an image saved at now
func ImageFilename(now time.Time) string {
	return fmt.Sprintf("poetry_image_%d.jpg", now.UnixMilli())
}

// SavePoemFile writes the poem as UTF-8 text into dir and returns the path
func SavePoemFile(dir string, p *Poem, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, PoemFilename(p.Title, now))
	if err := os.WriteFile(path, []byte(PoemText(p)), 0644); err != nil {
		return "", fmt.Errorf("failed to write poem file: %w", err)
	}

	return path, nil
}
