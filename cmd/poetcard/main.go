package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/poetcard/internal/archive"
	"codeberg.org/snonux/poetcard/internal/cli"
	"codeberg.org/snonux/poetcard/internal/gui"
	"codeberg.org/snonux/poetcard/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
		cli.ConfigureLogging(flags.Verbose, false)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, args []string, flags *cli.Flags) error {
	cli.ApplyConfig(cmd, flags)

	// Handle --archive flag
	if flags.Archive {
		path, err := archive.ArchiveOutput(flags.OutputDir)
		if err != nil {
			return fmt.Errorf("failed to archive output directory: %w", err)
		}
		fmt.Printf("Output directory archived to: %s\n", path)
		return nil
	}

	proc, err := processor.NewProcessor(flags)
	if err != nil {
		return err
	}
	defer proc.Close()

	// No input provided - launch GUI mode by default
	if flags.BatchFile == "" && len(args) == 0 {
		cli.ConfigureLogging(flags.Verbose, true)
		app := gui.New(&gui.Config{OutputDir: flags.OutputDir}, proc.Session(), proc.History())
		app.Run()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.BatchFile != "" {
		return proc.ProcessBatch(ctx)
	}

	if err := proc.ProcessText(ctx, strings.Join(args, " ")); err != nil {
		return err
	}

	if flags.Save || flags.SaveImage {
		fmt.Printf("\nDone! Files saved to: %s\n", flags.OutputDir)
	}
	return nil
}
