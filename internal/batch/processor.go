package batch

import (
	"fmt"
	"os"
	"strings"
)

// ReadBatchFile reads prompts from a file, one prompt per line.
// Blank lines and lines starting with '#' are skipped.
func ReadBatchFile(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var prompts []string
	for _, line := range splitLines(string(content)) {
		line = trimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}

	return prompts, nil
}

// splitLines splits a string by newlines
func splitLines(s string) []string {
	var lines []string
	var current strings.Builder
	for _, r := range s {
		if r == '\n' {
			lines = append(lines, current.String())
			current.Reset()
		} else if r != '\r' {
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// trimSpace trims ASCII and ideographic whitespace from a string
func trimSpace(s string) string {
	return strings.TrimFunc(s, isSpace)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
}
