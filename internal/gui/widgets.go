package gui

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// ImageDisplay shows the generated card or image, or a placeholder when
// it cannot be loaded
type ImageDisplay struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	placeholder *canvas.Image
	imageLabel  *widget.Label

	loaded bool
}

// NewImageDisplay creates a new image display widget
func NewImageDisplay() *ImageDisplay {
	d := &ImageDisplay{}

	d.imageCanvas = canvas.NewImageFromResource(nil)
	d.imageCanvas.FillMode = canvas.ImageFillContain
	d.imageCanvas.SetMinSize(fyne.NewSize(360, 360))

	d.placeholder = canvas.NewImageFromResource(theme.BrokenImageIcon())
	d.placeholder.FillMode = canvas.ImageFillContain
	d.placeholder.SetMinSize(fyne.NewSize(96, 96))
	d.placeholder.Hide()

	d.imageLabel = widget.NewLabel("No image")
	d.imageLabel.Alignment = fyne.TextAlignCenter

	d.container = container.NewBorder(
		nil,
		d.imageLabel,
		nil, nil,
		container.NewStack(d.imageCanvas, container.NewCenter(d.placeholder)),
	)

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer implements fyne.Widget
func (d *ImageDisplay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

// SetImageData decodes and shows data; undecodable data shows the
// placeholder instead
func (d *ImageDisplay) SetImageData(data []byte, caption string) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.SetUnavailable("Image could not be displayed")
		return
	}

	d.placeholder.Hide()
	d.imageCanvas.Image = img
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(caption)
	d.loaded = true
}

// SetUnavailable shows the broken-image placeholder with a message
func (d *ImageDisplay) SetUnavailable(message string) {
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.placeholder.Show()
	d.imageLabel.SetText(message)
	d.loaded = false
}

// Clear clears the display
func (d *ImageDisplay) Clear() {
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.placeholder.Hide()
	d.imageLabel.SetText("No image")
	d.loaded = false
}

// HasImage reports whether an image is currently shown
func (d *ImageDisplay) HasImage() bool {
	return d.loaded
}
