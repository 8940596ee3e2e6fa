package gui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/sirupsen/logrus"
)

func TestFormatLogEntry(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2024, 10, 1, 9, 30, 15, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Card composition failed, using the plain image",
		Data: logrus.Fields{
			"run":   "1700000000000_abcd1234",
			"error": errors.New("rejected"),
		},
	}

	got := FormatLogEntry(entry)
	want := "[09:30:15] WARNING: Card composition failed, using the plain image error=rejected run=1700000000000_abcd1234"
	if got != want {
		t.Errorf("FormatLogEntry() =\n%q\nwant\n%q", got, want)
	}
}

func TestLogViewerBuffer(t *testing.T) {
	test.NewTempApp(t)

	v := NewLogViewer()
	v.maxMessages = 3

	for i := 1; i <= 5; i++ {
		v.AddMessage(fmt.Sprintf("message %d", i))
	}

	messages := v.Messages()
	if len(messages) != 3 {
		t.Fatalf("Expected 3 buffered messages, got %d", len(messages))
	}
	if messages[0] != "message 5" || messages[2] != "message 3" {
		t.Errorf("Unexpected order: %v", messages)
	}

	v.Clear()
	if len(v.Messages()) != 0 {
		t.Error("Expected empty buffer after Clear")
	}
}

func TestLogViewerHook(t *testing.T) {
	test.NewTempApp(t)

	v := NewLogViewer()
	logger := logrus.New()
	logger.AddHook(v)
	logger.SetLevel(logrus.DebugLevel)

	logger.Debug("not shown")
	logger.WithField("title", "《秋夜》").Info("Poem generated")

	messages := v.Messages()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d: %v", len(messages), messages)
	}
}
