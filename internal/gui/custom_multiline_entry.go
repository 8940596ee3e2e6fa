package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// CustomMultiLineEntry extends widget.Entry to handle Escape and
// Ctrl+Enter
type CustomMultiLineEntry struct {
	widget.Entry
	onEscape func()
	onSubmit func()
}

// NewCustomMultiLineEntry creates a new custom multi-line entry
func NewCustomMultiLineEntry() *CustomMultiLineEntry {
	entry := &CustomMultiLineEntry{}
	entry.MultiLine = true
	entry.Wrapping = fyne.TextWrapWord
	entry.ExtendBaseWidget(entry)
	return entry
}

// TypedKey handles key events
func (e *CustomMultiLineEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape && e.onEscape != nil {
		e.onEscape()
		return
	}
	e.Entry.TypedKey(key)
}

// TypedShortcut handles shortcuts while the entry has focus
func (e *CustomMultiLineEntry) TypedShortcut(shortcut fyne.Shortcut) {
	if isSubmitShortcut(shortcut) && e.onSubmit != nil {
		e.onSubmit()
		return
	}
	e.Entry.TypedShortcut(shortcut)
}

// SetOnEscape sets the callback for when Escape is pressed
func (e *CustomMultiLineEntry) SetOnEscape(f func()) {
	e.onEscape = f
}

// SetOnSubmit sets the callback for Ctrl+Enter
func (e *CustomMultiLineEntry) SetOnSubmit(f func()) {
	e.onSubmit = f
}

// isSubmitShortcut reports whether shortcut is Ctrl+Enter
func isSubmitShortcut(shortcut fyne.Shortcut) bool {
	cs, ok := shortcut.(*desktop.CustomShortcut)
	if !ok {
		return false
	}
	if cs.Modifier != fyne.KeyModifierControl {
		return false
	}
	return cs.KeyName == fyne.KeyReturn || cs.KeyName == fyne.KeyEnter
}
