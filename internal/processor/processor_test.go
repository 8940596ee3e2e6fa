package processor

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/poetcard/internal/api"
	"codeberg.org/snonux/poetcard/internal/cli"
	"codeberg.org/snonux/poetcard/internal/history"
	"codeberg.org/snonux/poetcard/internal/testutil"
)

func newTestProcessor(t *testing.T, backend *testutil.FakeBackend, flags *cli.Flags, store *history.Store) (*Processor, *bytes.Buffer) {
	t.Helper()

	client, err := api.NewClient(&api.Config{BaseURL: backend.URL(), Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	var out bytes.Buffer
	return newProcessor(flags, client, store, &out), &out
}

func TestNewProcessor(t *testing.T) {
	t.Run("with history", func(t *testing.T) {
		flags := cli.NewFlags()
		flags.HistoryPath = filepath.Join(t.TempDir(), "history.db")

		p, err := NewProcessor(flags)
		if err != nil {
			t.Fatalf("NewProcessor failed: %v", err)
		}
		defer p.Close()

		if p.flags != flags {
			t.Error("Processor flags not set correctly")
		}
		if p.Session() == nil {
			t.Error("Session not initialized")
		}
		if p.History() == nil {
			t.Error("History store not initialized")
		}
	})

	t.Run("without history", func(t *testing.T) {
		flags := cli.NewFlags()
		flags.NoHistory = true

		p, err := NewProcessor(flags)
		if err != nil {
			t.Fatalf("NewProcessor failed: %v", err)
		}
		defer p.Close()

		if p.History() != nil {
			t.Error("Expected no history store with --no-history")
		}
	})

	t.Run("invalid server URL", func(t *testing.T) {
		flags := cli.NewFlags()
		flags.NoHistory = true
		flags.ServerURL = "ftp://poems.example.com"

		if _, err := NewProcessor(flags); err == nil {
			t.Error("Expected error for invalid server URL")
		}
	})
}

func TestProcessText(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	flags := cli.NewFlags()
	flags.OutputDir = t.TempDir()

	p, out := newTestProcessor(t, backend, flags, nil)

	if err := p.ProcessText(context.Background(), "autumn river"); err != nil {
		t.Fatalf("ProcessText failed: %v", err)
	}

	output := out.String()
	for _, want := range []string{
		"Generating: autumn river",
		"Composing the poem...",
		"Almost finished...",
		"《秋夜》",
		"月落乌啼霜满天",
		"【注释】An autumn night by the river.",
		"Image (poem card): /uploads/card.jpg",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}

	// Nothing is saved without --save / --save-image
	if files := testutil.ListFiles(t, flags.OutputDir); len(files) != 0 {
		t.Errorf("Expected no files, got %v", files)
	}
}

func TestProcessText_Save(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	flags := cli.NewFlags()
	flags.OutputDir = filepath.Join(t.TempDir(), "poems")
	flags.Save = true
	flags.SaveImage = true

	p, out := newTestProcessor(t, backend, flags, nil)

	if err := p.ProcessText(context.Background(), "autumn river"); err != nil {
		t.Fatalf("ProcessText failed: %v", err)
	}

	files := testutil.ListFiles(t, flags.OutputDir)
	if len(files) != 2 {
		t.Fatalf("Expected poem and image files, got %v", files)
	}

	var poemFile, imageFile string
	for _, f := range files {
		switch {
		case strings.HasSuffix(f, ".txt"):
			poemFile = f
		case strings.HasPrefix(f, "poetry_image_"):
			imageFile = f
		}
	}
	if poemFile == "" || imageFile == "" {
		t.Fatalf("Unexpected files: %v", files)
	}

	testutil.AssertFileContains(t, filepath.Join(flags.OutputDir, poemFile), "月落乌啼霜满天")
	testutil.AssertFileContent(t, filepath.Join(flags.OutputDir, imageFile), backend.Files["card.jpg"])

	if backend.LastBody(api.EndpointSavePoem)["user_input"] != "autumn river" {
		t.Errorf("Unexpected save body: %v", backend.LastBody(api.EndpointSavePoem))
	}
	if !strings.Contains(out.String(), "Poem saved to the database") {
		t.Errorf("Expected save confirmation in output:\n%s", out.String())
	}
}

func TestProcessText_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		setup func(b *testutil.FakeBackend)
	}{
		{name: "empty input", input: "   "},
		{name: "too long", input: strings.Repeat("月", MaxInputLength+1)},
		{name: "poem fails", input: "autumn", setup: func(b *testutil.FakeBackend) {
			b.PoemStatus = http.StatusInternalServerError
		}},
		{name: "image fails", input: "autumn", setup: func(b *testutil.FakeBackend) {
			b.ImageStatus = http.StatusBadGateway
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewFakeBackend(t)
			if tt.setup != nil {
				tt.setup(backend)
			}

			flags := cli.NewFlags()
			flags.OutputDir = t.TempDir()
			p, _ := newTestProcessor(t, backend, flags, nil)

			if err := p.ProcessText(context.Background(), tt.input); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestProcessBatch(t *testing.T) {
	backend := testutil.NewFakeBackend(t)

	tmpDir := t.TempDir()
	batchFile := filepath.Join(tmpDir, "prompts.txt")
	content := "# autumn prompts\nmoon over the river\n\n" + strings.Repeat("月", MaxInputLength+1) + "\n秋夜 江边\n"
	if err := os.WriteFile(batchFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write batch file: %v", err)
	}

	store, err := history.Open(filepath.Join(tmpDir, "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	defer store.Close()

	flags := cli.NewFlags()
	flags.BatchFile = batchFile
	flags.OutputDir = tmpDir

	p, out := newTestProcessor(t, backend, flags, store)

	var batchErr error
	_, stderr := testutil.CaptureOutput(t, func() {
		batchErr = p.ProcessBatch(context.Background())
	})
	if batchErr != nil {
		t.Fatalf("ProcessBatch failed: %v", batchErr)
	}
	if !strings.Contains(stderr, "Error processing") {
		t.Errorf("Expected the failed prompt on stderr, got:\n%s", stderr)
	}

	output := out.String()
	for _, want := range []string{
		"Processing 1/3",
		"Processing 3/3",
		"Total prompts: 3",
		"Processed: 2",
		"Errors: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 history records, got %d", count)
	}
}

func TestProcessBatch_Errors(t *testing.T) {
	backend := testutil.NewFakeBackend(t)

	flags := cli.NewFlags()
	flags.BatchFile = filepath.Join(t.TempDir(), "missing.txt")
	p, _ := newTestProcessor(t, backend, flags, nil)

	if err := p.ProcessBatch(context.Background()); err == nil {
		t.Error("Expected error for missing batch file")
	}

	batchFile := filepath.Join(t.TempDir(), "prompts.txt")
	if err := os.WriteFile(batchFile, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatalf("Failed to write batch file: %v", err)
	}
	flags.BatchFile = batchFile

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.ProcessBatch(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(backend.Calls()) != 0 {
		t.Errorf("Expected no backend calls after cancel, got %v", backend.Calls())
	}
}
