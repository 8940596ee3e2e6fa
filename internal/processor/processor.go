package processor

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"codeberg.org/snonux/poetcard/internal/api"
	"codeberg.org/snonux/poetcard/internal/batch"
	"codeberg.org/snonux/poetcard/internal/cli"
	"codeberg.org/snonux/poetcard/internal/history"
)

// Processor handles command-line generation runs
type Processor struct {
	flags   *cli.Flags
	session *Session
	store   *history.Store
	out     io.Writer
}

// NewProcessor creates a processor talking to the configured backend
func NewProcessor(flags *cli.Flags) (*Processor, error) {
	client, err := api.NewClient(&api.Config{
		BaseURL: flags.ServerURL,
		Timeout: flags.Timeout,
	})
	if err != nil {
		return nil, err
	}

	var store *history.Store
	if !flags.NoHistory && flags.HistoryPath != "" {
		store, err = history.Open(flags.HistoryPath)
		if err != nil {
			// History is a convenience; generation works without it
			logrus.WithError(err).Warn("Local history disabled")
			store = nil
		}
	}

	return newProcessor(flags, client, store, os.Stdout), nil
}

func newProcessor(flags *cli.Flags, backend Backend, store *history.Store, out io.Writer) *Processor {
	opts := &SessionOptions{ComposeCard: !flags.NoCard}
	if store != nil {
		opts.Recorder = store
	}

	p := &Processor{
		flags: flags,
		store: store,
		out:   out,
	}
	opts.OnStage = func(stage Stage) {
		fmt.Fprintf(p.out, "  %s\n", stage.Message)
	}
	p.session = NewSession(backend, opts)

	return p
}

// Session returns the processor's generation session
func (p *Processor) Session() *Session {
	return p.session
}

// History returns the local history store, or nil when disabled
func (p *Processor) History() *history.Store {
	return p.store
}

// Close releases the history database
func (p *Processor) Close() error {
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

// ProcessText generates a poem card for text and performs the requested saves
func (p *Processor) ProcessText(ctx context.Context, text string) error {
	input, err := ValidateInput(text)
	if err != nil {
		return err
	}

	fmt.Fprintf(p.out, "\nGenerating: %s\n", input)

	gen, err := p.session.Generate(ctx, input)
	if err != nil {
		return err
	}

	p.printGeneration(gen)

	if p.flags.Save {
		path, err := p.session.SavePoem(ctx, gen, input, p.flags.OutputDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.out, "  Poem saved to the database and to %s\n", path)
	}

	if p.flags.SaveImage {
		path, err := p.session.SaveImage(ctx, gen, p.flags.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
		fmt.Fprintf(p.out, "  Image saved to %s\n", path)
	}

	return nil
}

// ProcessBatch generates a card for every prompt in the batch file, one
// after another
func (p *Processor) ProcessBatch(ctx context.Context) error {
	prompts, err := batch.ReadBatchFile(p.flags.BatchFile)
	if err != nil {
		return err
	}

	processedCount := 0
	errorCount := 0

	for i, prompt := range prompts {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(p.out, "\nProcessing %d/%d", i+1, len(prompts))
		if err := p.ProcessText(ctx, prompt); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %q: %v\n", prompt, err)
			errorCount++
			continue
		}
		processedCount++
	}

	fmt.Fprintf(p.out, "\n=== Batch Processing Summary ===\n")
	fmt.Fprintf(p.out, "Total prompts: %d\n", len(prompts))
	fmt.Fprintf(p.out, "Processed: %d\n", processedCount)
	if errorCount > 0 {
		fmt.Fprintf(p.out, "Errors: %d\n", errorCount)
	}
	fmt.Fprintf(p.out, "================================\n")

	return nil
}

func (p *Processor) printGeneration(gen *Generation) {
	fmt.Fprintf(p.out, "\n%s\n\n%s\n", gen.Title, gen.Content)
	if gen.Comment != "" {
		fmt.Fprintf(p.out, "\n【注释】%s\n", gen.Comment)
	}

	kind := "plain image"
	if gen.CardComposed {
		kind = "poem card"
	}
	fmt.Fprintf(p.out, "\nImage (%s): %s\n", kind, gen.ImageURL)
}
