package cli

import (
	"os"
	"path/filepath"
	"time"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile     string
	OutputDir   string
	HistoryPath string
	BatchFile   string
	Save        bool
	SaveImage   bool
	NoCard      bool
	NoHistory   bool
	Archive     bool
	Verbose     bool

	// Backend flags
	ServerURL string
	Timeout   time.Duration
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		ServerURL:   "http://localhost:5000",
		Timeout:     120 * time.Second,
		OutputDir:   DefaultStateDir("poems"),
		HistoryPath: DefaultStateDir("history.db"),
	}
}

// DefaultStateDir returns a path below ~/.local/state/poetcard
func DefaultStateDir(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	parts := append([]string{home, ".local", "state", "poetcard"}, elem...)
	return filepath.Join(parts...)
}
