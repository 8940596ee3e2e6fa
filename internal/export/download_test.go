package export

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/poetcard/internal/testutil"
)

type mockFetcher struct {
	data  string
	err   error
	calls []string
}

func (m *mockFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.data)), nil
}

func TestDownloader_Download(t *testing.T) {
	dir := t.TempDir()
	fetcher := &mockFetcher{data: "jpeg bytes"}
	d := NewDownloader(fetcher, &DownloadOptions{OutputDir: dir, CreateDir: true})

	path, err := d.Download(context.Background(), "/uploads/card.jpg", "poetry_image_1.jpg")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	if path != filepath.Join(dir, "poetry_image_1.jpg") {
		t.Errorf("Unexpected path: %s", path)
	}
	testutil.AssertFileContent(t, path, []byte("jpeg bytes"))

	if len(fetcher.calls) != 1 || fetcher.calls[0] != "/uploads/card.jpg" {
		t.Errorf("Unexpected fetch calls: %v", fetcher.calls)
	}
}

func TestDownloader_SizeLimit(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		data    string
		limit   int64
		wantErr bool
	}{
		{name: "under limit", data: "1234", limit: 10},
		{name: "exactly at limit", data: "1234567890", limit: 10},
		{name: "over limit", data: "12345678901", limit: 10, wantErr: true},
		{name: "no limit", data: strings.Repeat("x", 1000), limit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDownloader(&mockFetcher{data: tt.data}, &DownloadOptions{
				OutputDir:         dir,
				CreateDir:         true,
				OverwriteExisting: true,
				MaxSizeBytes:      tt.limit,
			})

			path, err := d.Download(context.Background(), "u", "img.jpg")
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected size limit error")
				}
				testutil.AssertFileNotExists(t, filepath.Join(dir, "img.jpg"))
				return
			}
			if err != nil {
				t.Fatalf("Download failed: %v", err)
			}
			testutil.AssertFileContent(t, path, []byte(tt.data))
		})
	}
}

func TestDownloader_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "img.jpg")
	testutil.CreateTestFile(t, existing, []byte("old"))

	d := NewDownloader(&mockFetcher{data: "new"}, &DownloadOptions{OutputDir: dir})
	if _, err := d.Download(context.Background(), "u", "img.jpg"); err == nil {
		t.Error("Expected error when file exists and overwrite is disabled")
	}
	testutil.AssertFileContent(t, existing, []byte("old"))
}

func TestDownloader_FetchError(t *testing.T) {
	dir := t.TempDir()
	sentinel := errors.New("connection refused")
	d := NewDownloader(&mockFetcher{err: sentinel}, &DownloadOptions{OutputDir: dir, CreateDir: true})

	_, err := d.Download(context.Background(), "u", "img.jpg")
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped fetch error, got %v", err)
	}
	testutil.AssertFileNotExists(t, filepath.Join(dir, "img.jpg"))
}

func TestNewDownloader_Defaults(t *testing.T) {
	d := NewDownloader(&mockFetcher{}, nil)
	if d.options == nil || d.options.MaxSizeBytes != 10*1024*1024 {
		t.Errorf("Expected default options, got %+v", d.options)
	}
}
