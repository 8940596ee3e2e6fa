package gui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// LogViewer is a widget that displays log messages. It doubles as a
// logrus hook so pipeline logs show up in the window.
type LogViewer struct {
	widget.BaseWidget

	container  *fyne.Container
	logEntry   *widget.Entry
	scrollView *container.Scroll

	mu          sync.Mutex
	messages    []string
	maxMessages int
}

// NewLogViewer creates a new log viewer widget
func NewLogViewer() *LogViewer {
	v := &LogViewer{
		maxMessages: 500,
		messages:    make([]string, 0),
	}

	// Read-only multiline entry
	v.logEntry = widget.NewMultiLineEntry()
	v.logEntry.Disable()
	v.logEntry.Wrapping = fyne.TextWrapWord

	v.scrollView = container.NewScroll(v.logEntry)
	v.scrollView.SetMinSize(fyne.NewSize(0, 120))

	v.container = container.NewBorder(
		widget.NewLabel("Log messages (newest first):"),
		nil,
		nil,
		nil,
		v.scrollView,
	)

	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *LogViewer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.container)
}

// Levels implements logrus.Hook
func (v *LogViewer) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

// Fire implements logrus.Hook
func (v *LogViewer) Fire(entry *logrus.Entry) error {
	v.AddMessage(FormatLogEntry(entry))
	return nil
}

// FormatLogEntry renders a log entry as a single line
func FormatLogEntry(entry *logrus.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s",
		entry.Time.Format("15:04:05"),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
	)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	return b.String()
}

// AddMessage adds a message to the log
func (v *LogViewer) AddMessage(message string) {
	v.mu.Lock()
	v.messages = append([]string{message}, v.messages...)
	if len(v.messages) > v.maxMessages {
		v.messages = v.messages[:v.maxMessages]
	}
	text := strings.Join(v.messages, "\n")
	v.mu.Unlock()

	// Update UI on main thread
	fyne.Do(func() {
		v.logEntry.SetText(text)
		v.scrollView.Offset = fyne.NewPos(0, 0)
		v.scrollView.Refresh()
	})
}

// Messages returns the buffered messages, newest first
func (v *LogViewer) Messages() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.messages...)
}

// Clear clears all log messages
func (v *LogViewer) Clear() {
	v.mu.Lock()
	v.messages = v.messages[:0]
	v.mu.Unlock()

	fyne.Do(func() {
		v.logEntry.SetText("")
		v.scrollView.Offset = fyne.NewPos(0, 0)
		v.scrollView.Refresh()
	})
}
