package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ArchiveOutput moves an output directory into a sibling "archive"
// directory, renamed to <name>-<timestamp>, and returns the new path
func ArchiveOutput(outputDir string) (string, error) {
	outputDir = filepath.Clean(outputDir)

	info, err := os.Stat(outputDir)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("output directory does not exist: %s", outputDir)
	}
	if err != nil {
		return "", fmt.Errorf("failed to inspect output directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", outputDir)
	}

	archiveDir := filepath.Join(filepath.Dir(outputDir), "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	base := filepath.Base(outputDir)
	archivePath := filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, time.Now().Format("20060102-150405")))

	// Two archives within the same second get a finer timestamp
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, fmt.Sprintf("%s-%s", base, time.Now().Format("20060102-150405.000000")))
	}

	if err := os.Rename(outputDir, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive output directory: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"from": outputDir,
		"to":   archivePath,
	}).Info("Output directory archived")

	return archivePath, nil
}
