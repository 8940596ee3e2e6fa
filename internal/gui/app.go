package gui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"
	"github.com/sirupsen/logrus"

	"codeberg.org/snonux/poetcard/internal"
	"codeberg.org/snonux/poetcard/internal/history"
	"codeberg.org/snonux/poetcard/internal/processor"
)

// stageInterval is how often the loading message advances on its own
const stageInterval = 3 * time.Second

// Application represents the main GUI application
type Application struct {
	// Fyne components
	app    fyne.App
	window fyne.Window

	// Input section
	input          *CustomMultiLineEntry
	charCount      *widget.Label
	generateButton *ttwidget.Button

	// Loading section
	loadingBox   *fyne.Container
	loadingLabel *widget.Label
	progress     *widget.ProgressBarInfinite

	// Result section
	resultBox    *fyne.Container
	titleLabel   *widget.Label
	contentLabel *widget.Label
	noteLabel    *widget.Label
	imageDisplay *ImageDisplay

	// Action buttons
	tryAgainButton  *ttwidget.Button
	savePoemButton  *ttwidget.Button
	saveImageButton *ttwidget.Button
	historyButton   *ttwidget.Button

	logViewer   *LogViewer
	statusLabel *widget.Label

	// Generation state
	session   *processor.Session
	store     *history.Store
	clock     StageClock
	timerStop chan struct{}

	// Configuration
	config *Config

	// Background processing
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds GUI application configuration
type Config struct {
	OutputDir string
}

// DefaultConfig returns default GUI configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		OutputDir: filepath.Join(homeDir, ".local", "state", "poetcard", "poems"),
	}
}

// New creates a new GUI application driving session. store may be nil
// when local history is disabled.
func New(config *Config, session *processor.Session, store *history.Store) *Application {
	return NewWithApp(app.NewWithID("org.codeberg.snonux.poetcard"), config, session, store)
}

// NewWithApp is New on an existing fyne app
func NewWithApp(fyneApp fyne.App, config *Config, session *processor.Session, store *history.Store) *Application {
	if config == nil {
		config = DefaultConfig()
	} else if config.OutputDir == "" {
		config.OutputDir = DefaultConfig().OutputDir
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Application{
		app:     fyneApp,
		config:  config,
		session: session,
		store:   store,
		ctx:     ctx,
		cancel:  cancel,
	}

	a.setupUI()

	session.SetStageObserver(func(stage processor.Stage) {
		fyne.Do(func() {
			a.showStage(a.clock.Observe(stage.Index))
		})
	})

	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("PoetCard v%s - Poem Card Generator", internal.Version))
	a.window.Resize(fyne.NewSize(760, 820))

	// Input section
	a.input = NewCustomMultiLineEntry()
	a.input.SetPlaceHolder("Describe a scene, a mood or a few words... (Ctrl+Enter to generate)")
	a.input.SetMinRowsVisible(4)
	a.input.SetOnSubmit(a.onGenerate)
	a.input.SetOnEscape(func() { a.window.Canvas().Unfocus() })
	a.input.OnChanged = a.updateCharCount

	a.charCount = widget.NewLabel("")
	a.updateCharCount("")

	a.generateButton = ttwidget.NewButtonWithIcon("Generate", theme.MediaPlayIcon(), a.onGenerate)
	a.generateButton.Importance = widget.HighImportance

	inputSection := container.NewBorder(
		widget.NewLabelWithStyle("Your inspiration", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, a.charCount, a.generateButton),
		nil, nil,
		a.input,
	)

	// Loading section
	a.loadingLabel = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	a.progress = widget.NewProgressBarInfinite()
	a.progress.Stop()
	a.loadingBox = container.NewVBox(a.loadingLabel, a.progress)
	a.loadingBox.Hide()

	// Result section
	a.titleLabel = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	a.contentLabel = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{})
	a.contentLabel.Wrapping = fyne.TextWrapWord
	a.noteLabel = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Italic: true})
	a.noteLabel.Wrapping = fyne.TextWrapWord
	a.imageDisplay = NewImageDisplay()

	a.tryAgainButton = ttwidget.NewButtonWithIcon("Try again", theme.ViewRefreshIcon(), a.onTryAgain)
	a.savePoemButton = ttwidget.NewButtonWithIcon("Save poem", theme.DocumentSaveIcon(), a.onSavePoem)
	a.saveImageButton = ttwidget.NewButtonWithIcon("Save image", theme.FileImageIcon(), a.onSaveImage)

	a.resultBox = container.NewVBox(
		widget.NewSeparator(),
		a.titleLabel,
		a.contentLabel,
		a.noteLabel,
		a.imageDisplay,
		container.NewCenter(container.NewHBox(
			a.tryAgainButton,
			a.savePoemButton,
			a.saveImageButton,
		)),
	)
	a.resultBox.Hide()

	// Toolbar
	a.historyButton = ttwidget.NewButtonWithIcon("", theme.HistoryIcon(), a.onShowHistory)
	if a.store == nil {
		a.historyButton.Disable()
	}
	helpButton := ttwidget.NewButtonWithIcon("", theme.HelpIcon(), a.onShowHotkeys)
	toolbar := container.NewHBox(a.historyButton, helpButton)

	// Status and log
	a.statusLabel = widget.NewLabel("Ready")
	a.logViewer = NewLogViewer()
	logrus.AddHook(a.logViewer)

	logAccordion := widget.NewAccordion(widget.NewAccordionItem("Log", a.logViewer))

	content := container.NewBorder(
		container.NewVBox(toolbar, widget.NewSeparator(), inputSection, a.loadingBox),
		container.NewVBox(widget.NewSeparator(), a.statusLabel, logAccordion),
		nil, nil,
		container.NewVScroll(a.resultBox),
	)

	// Add the tooltip layer to enable tooltips
	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))
	a.setupTooltips()

	a.window.SetOnClosed(func() {
		a.stopStageTimer()
		a.cancel()
		a.wg.Wait()
	})

	a.setupKeyboardShortcuts()
}

// Run starts the GUI application
func (a *Application) Run() {
	a.window.Canvas().Focus(a.input)
	a.window.ShowAndRun()
}

// onGenerate validates the input and starts a generation in the background
func (a *Application) onGenerate() {
	// The button is disabled on the UI thread before the worker starts
	if a.generateButton.Disabled() {
		return
	}

	input, err := processor.ValidateInput(a.input.Text)
	if err != nil {
		dialog.ShowInformation("Input", capitalize(err.Error()), a.window)
		return
	}

	a.setGenerating(true)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		gen, err := a.session.Generate(a.ctx, input)
		if errors.Is(err, processor.ErrBusy) {
			// The run holding the session resets the page when it ends
			return
		}
		if err != nil {
			fyne.Do(func() {
				a.setGenerating(false)
				a.showError(fmt.Errorf("generation failed: %w", err))
			})
			return
		}

		data, imgErr := a.session.FetchImage(a.ctx, gen)
		if imgErr != nil {
			logrus.WithError(imgErr).Warn("Failed to load generated image")
		}

		fyne.Do(func() {
			a.setGenerating(false)
			a.showResult(gen, data, imgErr)
		})
	}()
}

// setGenerating switches the page between idle and generating
func (a *Application) setGenerating(generating bool) {
	if generating {
		a.generateButton.Disable()
		a.generateButton.SetText("Generating...")
		a.resultBox.Hide()
		a.loadingBox.Show()
		a.progress.Start()
		a.showStage(a.clock.Reset())
		a.startStageTimer()
		return
	}

	a.stopStageTimer()
	a.progress.Stop()
	a.loadingBox.Hide()
	a.generateButton.SetText("Generate")
	a.generateButton.Enable()
}

func (a *Application) showStage(stage processor.Stage) {
	a.loadingLabel.SetText(stage.Message)
	a.updateStatus(stage.Message)
}

func (a *Application) startStageTimer() {
	a.stopStageTimer()

	stop := make(chan struct{})
	a.timerStop = stop

	go func() {
		ticker := time.NewTicker(stageInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				fyne.Do(func() {
					if a.timerStop == stop {
						a.showStage(a.clock.Tick())
					}
				})
			case <-stop:
				return
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *Application) stopStageTimer() {
	if a.timerStop != nil {
		close(a.timerStop)
		a.timerStop = nil
	}
}

// showResult fills and reveals the result section
func (a *Application) showResult(gen *processor.Generation, imageData []byte, imageErr error) {
	a.titleLabel.SetText(gen.Title)
	a.contentLabel.SetText(gen.Content)

	if gen.Comment != "" {
		a.noteLabel.SetText("【注释】" + gen.Comment)
		a.noteLabel.Show()
	} else {
		a.noteLabel.Hide()
	}

	caption := "Plain image"
	if gen.CardComposed {
		caption = "Poem card"
	}

	if imageErr != nil {
		a.imageDisplay.SetUnavailable("Image could not be loaded")
	} else {
		a.imageDisplay.SetImageData(imageData, caption)
	}

	a.resultBox.Show()
	a.updateStatus(fmt.Sprintf("Done: %s", gen.Title))
}

// onTryAgain clears the result and returns to the input
func (a *Application) onTryAgain() {
	a.session.Clear()
	a.resultBox.Hide()
	a.imageDisplay.Clear()
	a.updateStatus("Ready")
	a.window.Canvas().Focus(a.input)
}

// onSavePoem stores the poem through the backend and as a text file
func (a *Application) onSavePoem() {
	gen := a.session.Current()
	if gen == nil {
		a.showError(processor.ErrNothingToSave)
		return
	}

	userInput := a.input.Text
	a.savePoemButton.Disable()
	a.updateStatus("Saving poem...")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		path, err := a.session.SavePoem(a.ctx, gen, userInput, a.config.OutputDir)
		fyne.Do(func() {
			a.savePoemButton.Enable()
			if err != nil {
				a.showError(err)
				return
			}
			a.updateStatus("Poem saved to " + path)
			dialog.ShowInformation("Saved", fmt.Sprintf("Poem saved to the database and to\n%s", path), a.window)
		})
	}()
}

// onSaveImage downloads the shown image into the output directory
func (a *Application) onSaveImage() {
	gen := a.session.Current()
	if gen == nil || gen.ImageURL == "" {
		a.showError(processor.ErrNoImage)
		return
	}

	a.saveImageButton.Disable()
	a.updateStatus("Saving image...")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		path, err := a.session.SaveImage(a.ctx, gen, a.config.OutputDir)
		fyne.Do(func() {
			a.saveImageButton.Enable()
			if err != nil {
				a.showError(fmt.Errorf("failed to save image: %w", err))
				return
			}
			a.updateStatus("Image saved to " + path)
		})
	}()
}

func (a *Application) onShowHotkeys() {
	hotkeys := `## Keyboard Shortcuts
**Ctrl+Enter** Generate  
**Esc** Leave the input field  
**Ctrl+S** Save poem  
**Ctrl+I** Save image  
**Ctrl+H** Show history  
**Ctrl+Q** Quit application`

	content := widget.NewRichTextFromMarkdown(hotkeys)
	content.Wrapping = fyne.TextWrapWord

	d := dialog.NewCustom("Keyboard Shortcuts", "Close", container.NewPadded(content), a.window)
	d.Show()
}

func (a *Application) updateStatus(message string) {
	a.statusLabel.SetText(message)
}

func (a *Application) showError(err error) {
	dialog.ShowError(err, a.window)
	a.updateStatus("Error: " + err.Error())
}

func (a *Application) updateCharCount(text string) {
	a.charCount.SetText(fmt.Sprintf("%d/%d", len([]rune(strings.TrimSpace(text))), processor.MaxInputLength))
}

// setupTooltips sets up all tooltips after the tooltip layer has been created
func (a *Application) setupTooltips() {
	a.generateButton.SetToolTip("Generate poem and image (Ctrl+Enter)")
	a.tryAgainButton.SetToolTip("Clear the result and write something new")
	a.savePoemButton.SetToolTip("Save to the poem database and as a text file (Ctrl+S)")
	a.saveImageButton.SetToolTip("Download the image (Ctrl+I)")
	a.historyButton.SetToolTip("Show history (Ctrl+H)")
}

func (a *Application) setupKeyboardShortcuts() {
	canvas := a.window.Canvas()

	ctrl := func(key fyne.KeyName, action func()) {
		canvas.AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
			action()
		})
	}

	ctrl(fyne.KeyReturn, a.onGenerate)
	ctrl(fyne.KeyEnter, a.onGenerate)
	ctrl(fyne.KeyS, func() {
		if a.resultBox.Visible() && !a.savePoemButton.Disabled() {
			a.onSavePoem()
		}
	})
	ctrl(fyne.KeyI, func() {
		if a.resultBox.Visible() && !a.saveImageButton.Disabled() {
			a.onSaveImage()
		}
	})
	ctrl(fyne.KeyH, func() {
		if !a.historyButton.Disabled() {
			a.onShowHistory()
		}
	})
	ctrl(fyne.KeyQ, a.window.Close)
}

// capitalize upper-cases the first letter of a message for display
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
