package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/poetcard/internal/history"
)

// historyPageSize is how many entries the history window loads
const historyPageSize = 100

// onShowHistory opens a window listing locally recorded generations
func (a *Application) onShowHistory() {
	if a.store == nil {
		return
	}

	records, err := a.store.List(historyPageSize, 0)
	if err != nil {
		a.showError(fmt.Errorf("failed to load history: %w", err))
		return
	}

	win := a.app.NewWindow("History")
	win.Resize(fyne.NewSize(720, 480))

	detail := widget.NewLabel("Select an entry")
	detail.Wrapping = fyne.TextWrapWord

	selected := -1
	var list *widget.List

	deleteButton := widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), nil)
	deleteButton.Importance = widget.DangerImportance
	deleteButton.Disable()

	list = widget.NewList(
		func() int { return len(records) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			rec := records[id]
			item.(*widget.Label).SetText(fmt.Sprintf("%s  %s", rec.CreatedAt.Format("01-02 15:04"), rec.Title))
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		selected = id
		detail.SetText(FormatRecord(&records[id]))
		deleteButton.Enable()
	}

	deleteButton.OnTapped = func() {
		if selected < 0 || selected >= len(records) {
			return
		}
		rec := records[selected]
		dialog.ShowConfirm("Delete entry", fmt.Sprintf("Delete %s?", rec.Title), func(ok bool) {
			if !ok {
				return
			}
			if err := a.store.Delete(rec.ID); err != nil {
				dialog.ShowError(err, win)
				return
			}
			records = append(records[:selected], records[selected+1:]...)
			selected = -1
			list.UnselectAll()
			list.Refresh()
			detail.SetText("Select an entry")
			deleteButton.Disable()
		}, win)
	}

	split := container.NewHSplit(
		list,
		container.NewBorder(nil, container.NewHBox(deleteButton), nil, nil, container.NewVScroll(detail)),
	)
	split.SetOffset(0.35)

	if len(records) == 0 {
		win.SetContent(container.NewCenter(widget.NewLabel("No generations recorded yet")))
	} else {
		win.SetContent(split)
	}
	win.Show()
}

// FormatRecord renders a history record for the detail pane
func FormatRecord(rec *history.Record) string {
	text := fmt.Sprintf("%s\n\n%s", rec.Title, rec.Content)
	if rec.Comment != "" {
		text += "\n\n【注释】" + rec.Comment
	}

	kind := "plain image"
	if rec.CardComposed {
		kind = "poem card"
	}

	text += fmt.Sprintf("\n\nInput: %s\nImage (%s): %s\nCreated: %s",
		rec.UserInput, kind, rec.ImageURL, rec.CreatedAt.Format("2006-01-02 15:04:05"))
	return text
}
