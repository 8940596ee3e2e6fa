package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Fetcher opens a remote resource for reading
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// DownloadOptions configures image download behavior
type DownloadOptions struct {
	OutputDir         string // Directory to save images
	OverwriteExisting bool   // Whether to overwrite existing files
	CreateDir         bool   // Create output directory if it doesn't exist
	MaxSizeBytes      int64  // Maximum file size to download (0 = no limit)
}

// DefaultDownloadOptions returns sensible defaults for image downloads
func DefaultDownloadOptions() *DownloadOptions {
	return &DownloadOptions{
		OutputDir:         ".",
		OverwriteExisting: false,
		CreateDir:         true,
		MaxSizeBytes:      10 * 1024 * 1024, // 10MB
	}
}

// Downloader saves remote images to disk
type Downloader struct {
	fetcher Fetcher
	options *DownloadOptions
}

// NewDownloader creates a new image downloader
func NewDownloader(fetcher Fetcher, options *DownloadOptions) *Downloader {
	if options == nil {
		options = DefaultDownloadOptions()
	}
	return &Downloader{
		fetcher: fetcher,
		options: options,
	}
}

// Download saves the resource at url as filename inside the output
// directory and returns the written path
func (d *Downloader) Download(ctx context.Context, url, filename string) (string, error) {
	if d.options.CreateDir {
		if err := os.MkdirAll(d.options.OutputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	outputPath := filepath.Join(d.options.OutputDir, filename)

	if !d.options.OverwriteExisting {
		if _, err := os.Stat(outputPath); err == nil {
			return "", fmt.Errorf("file already exists: %s", outputPath)
		}
	}

	reader, err := d.fetcher.Download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to download image: %w", err)
	}
	defer reader.Close()

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	var written int64
	if d.options.MaxSizeBytes > 0 {
		written, err = io.CopyN(file, reader, d.options.MaxSizeBytes)
		if err != nil && err != io.EOF {
			os.Remove(outputPath)
			return "", fmt.Errorf("failed to write file: %w", err)
		}

		// Hitting the limit exactly means the image may be larger
		if written == d.options.MaxSizeBytes {
			if n, _ := reader.Read(make([]byte, 1)); n > 0 {
				os.Remove(outputPath)
				return "", fmt.Errorf("image exceeds maximum size of %d bytes", d.options.MaxSizeBytes)
			}
		}
	} else {
		written, err = io.Copy(file, reader)
		if err != nil {
			os.Remove(outputPath)
			return "", fmt.Errorf("failed to write file: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"url":   url,
		"path":  outputPath,
		"bytes": written,
	}).Debug("Image saved")

	return outputPath, nil
}
