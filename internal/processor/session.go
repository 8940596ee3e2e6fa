package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"codeberg.org/snonux/poetcard/internal"
	"codeberg.org/snonux/poetcard/internal/api"
	"codeberg.org/snonux/poetcard/internal/export"
	"codeberg.org/snonux/poetcard/internal/history"
)

// MaxInputLength is the longest accepted user input, in characters
const MaxInputLength = 500

var (
	// ErrEmptyInput is returned when the user input is blank
	ErrEmptyInput = errors.New("please enter some text")

	// ErrInputTooLong is returned when the user input exceeds MaxInputLength
	ErrInputTooLong = fmt.Errorf("input too long, keep it within %d characters", MaxInputLength)

	// ErrBusy is returned when a generation is already running
	ErrBusy = errors.New("a generation is already in progress")

	// ErrNothingToSave is returned when there is no poem to save
	ErrNothingToSave = errors.New("no poem to save")

	// ErrNoImage is returned when there is no image to save
	ErrNoImage = errors.New("no image to save")
)

// Backend is the set of backend calls a Session needs
type Backend interface {
	GeneratePoem(ctx context.Context, text string) (*api.Poem, error)
	GenerateImage(ctx context.Context, poemContent string) (string, error)
	ComposeCard(ctx context.Context, title, content, imagePath string) (string, error)
	SavePoem(ctx context.Context, req *api.SaveRequest) error
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Recorder stores completed generations
type Recorder interface {
	Add(rec *history.Record) (int64, error)
}

// Generation is the result of one successful run
type Generation struct {
	Title         string
	Content       string
	Comment       string
	ImageURL      string // Card URL when composed, plain image otherwise
	PlainImageURL string
	CardComposed  bool
	UserInput     string
	CreatedAt     time.Time
}

// Poem returns the text part of the generation
func (g *Generation) Poem() *export.Poem {
	return &export.Poem{Title: g.Title, Content: g.Content, Comment: g.Comment}
}

// SessionOptions configures a Session
type SessionOptions struct {
	ComposeCard bool          // Ask the backend to write the poem onto the image
	Recorder    Recorder      // Optional local history
	OnStage     StageObserver // Optional progress observer
}

// Session runs generations one at a time and keeps the latest result
type Session struct {
	backend     Backend
	recorder    Recorder
	composeCard bool

	// guard is only ever TryLock'ed; a busy session rejects, never queues
	guard      sync.Mutex
	generating atomic.Bool

	mu      sync.RWMutex
	current *Generation
	onStage StageObserver
}

// NewSession creates a new generation session
func NewSession(backend Backend, opts *SessionOptions) *Session {
	if opts == nil {
		opts = &SessionOptions{ComposeCard: true}
	}
	return &Session{
		backend:     backend,
		recorder:    opts.Recorder,
		composeCard: opts.ComposeCard,
		onStage:     opts.OnStage,
	}
}

// ValidateInput trims the input and checks it is usable
func ValidateInput(text string) (string, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return "", ErrEmptyInput
	}
	if utf8.RuneCountInString(input) > MaxInputLength {
		return "", ErrInputTooLong
	}
	return input, nil
}

// SetStageObserver replaces the progress observer
func (s *Session) SetStageObserver(observer StageObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStage = observer
}

// IsGenerating reports whether a generation is running
func (s *Session) IsGenerating() bool {
	return s.generating.Load()
}

// Current returns a copy of the latest successful generation, or nil
func (s *Session) Current() *Generation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	gen := *s.current
	return &gen
}

// Clear forgets the latest generation
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Generate runs poem, image and card generation in sequence. Poem and
// image failures abort the run; a card failure falls back to the plain
// image.
func (s *Session) Generate(ctx context.Context, text string) (*Generation, error) {
	input, err := ValidateInput(text)
	if err != nil {
		return nil, err
	}

	if !s.guard.TryLock() {
		return nil, ErrBusy
	}
	defer s.guard.Unlock()

	s.generating.Store(true)
	defer s.generating.Store(false)

	log := logrus.WithField("run", internal.GenerateRunID(input))
	start := time.Now()

	s.notify(0)
	poem, err := s.backend.GeneratePoem(ctx, input)
	if err != nil {
		log.WithError(err).Error("Poem generation failed")
		return nil, fmt.Errorf("failed to generate poem: %w", err)
	}
	log.WithField("title", poem.Title).Info("Poem generated")

	s.notify(1)
	s.notify(2)
	imageURL, err := s.backend.GenerateImage(ctx, poem.Content)
	if err != nil {
		log.WithError(err).Error("Image generation failed")
		return nil, fmt.Errorf("failed to generate image: %w", err)
	}
	log.WithField("image", imageURL).Info("Image generated")

	gen := &Generation{
		Title:         poem.Title,
		Content:       poem.Content,
		Comment:       poem.Comment,
		ImageURL:      imageURL,
		PlainImageURL: imageURL,
		UserInput:     input,
	}

	s.notify(3)
	if s.composeCard {
		cardURL, err := s.backend.ComposeCard(ctx, poem.Title, poem.Content, imageURL)
		if err != nil {
			log.WithError(err).Warn("Card composition failed, using the plain image")
		} else {
			gen.ImageURL = cardURL
			gen.CardComposed = true
			log.WithField("card", cardURL).Info("Card composed")
		}
	}

	gen.CreatedAt = time.Now()

	s.mu.Lock()
	s.current = gen
	s.mu.Unlock()

	if s.recorder != nil {
		s.record(log, gen)
	}

	log.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).Debug("Generation finished")

	result := *gen
	return &result, nil
}

// SavePoem persists the poem through the backend and, once the backend
// accepted it, writes it as a text file into dir
func (s *Session) SavePoem(ctx context.Context, gen *Generation, userInput, dir string) (string, error) {
	if gen == nil || gen.Title == "" || gen.Content == "" {
		return "", ErrNothingToSave
	}

	req := &api.SaveRequest{
		Title:     gen.Title,
		Content:   gen.Content,
		Comment:   gen.Comment,
		UserInput: strings.TrimSpace(userInput),
	}
	if err := s.backend.SavePoem(ctx, req); err != nil {
		return "", fmt.Errorf("failed to save poem: %w", err)
	}

	path, err := export.SavePoemFile(dir, gen.Poem(), time.Now())
	if err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"title": gen.Title,
		"path":  path,
	}).Info("Poem saved")

	return path, nil
}

// SaveImage downloads the generation's image into dir
func (s *Session) SaveImage(ctx context.Context, gen *Generation, dir string) (string, error) {
	if gen == nil || gen.ImageURL == "" {
		return "", ErrNoImage
	}

	downloader := export.NewDownloader(s.backend, &export.DownloadOptions{
		OutputDir:    dir,
		CreateDir:    true,
		MaxSizeBytes: 20 * 1024 * 1024, // 20MB
	})

	return downloader.Download(ctx, gen.ImageURL, export.ImageFilename(time.Now()))
}

// FetchImage returns the bytes of the generation's image for display
func (s *Session) FetchImage(ctx context.Context, gen *Generation) ([]byte, error) {
	if gen == nil || gen.ImageURL == "" {
		return nil, ErrNoImage
	}

	reader, err := s.backend.Download(ctx, gen.ImageURL)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(io.LimitReader(reader, 20*1024*1024))
}

func (s *Session) notify(index int) {
	s.mu.RLock()
	observer := s.onStage
	s.mu.RUnlock()

	if observer != nil {
		observer(StageAt(index))
	}
}

func (s *Session) record(log *logrus.Entry, gen *Generation) {
	_, err := s.recorder.Add(&history.Record{
		UserInput:    gen.UserInput,
		Title:        gen.Title,
		Content:      gen.Content,
		Comment:      gen.Comment,
		ImageURL:     gen.ImageURL,
		CardComposed: gen.CardComposed,
		CreatedAt:    gen.CreatedAt,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record generation in history")
	}
}
