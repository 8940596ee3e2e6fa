package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"ServerURL", flags.ServerURL, "http://localhost:5000"},
		{"Timeout", flags.Timeout, 120 * time.Second},
		{"OutputDir", flags.OutputDir, filepath.Join(home, ".local", "state", "poetcard", "poems")},
		{"HistoryPath", flags.HistoryPath, filepath.Join(home, ".local", "state", "poetcard", "history.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Boolean switches are all off by default
	boolTests := []struct {
		name  string
		value bool
	}{
		{"Save", flags.Save},
		{"SaveImage", flags.SaveImage},
		{"NoCard", flags.NoCard},
		{"NoHistory", flags.NoHistory},
		{"Archive", flags.Archive},
		{"Verbose", flags.Verbose},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}

	if flags.CfgFile != "" || flags.BatchFile != "" {
		t.Errorf("Expected empty CfgFile and BatchFile, got %q and %q", flags.CfgFile, flags.BatchFile)
	}
}

func TestDefaultStateDir(t *testing.T) {
	home, _ := os.UserHomeDir()

	got := DefaultStateDir("a", "b")
	want := filepath.Join(home, ".local", "state", "poetcard", "a", "b")
	if got != want {
		t.Errorf("DefaultStateDir() = %s, want %s", got, want)
	}
}
