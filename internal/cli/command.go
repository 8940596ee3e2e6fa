package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/poetcard/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "poetcard [text]",
		Short: "Poem and image card generator",
		Long: `poetcard turns a few words into a classical Chinese poem, paints a
matching ink-style image and composes both into a poem card.

Generation runs on a poetry backend server; poetcard is the desktop
and command-line front end for it.

Examples:
  poetcard                          # Launch interactive GUI (default)
  poetcard "秋夜 江边 明月"           # Generate a poem card via CLI
  poetcard --save "moon over river" # Generate and save the poem
  poetcard --batch prompts.txt      # Process multiple prompts from file
  poetcard history list             # Show locally recorded generations`,
		Args:    cobra.ArbitraryArgs,
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(NewHistoryCommand(flags))

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.poetcard.yaml)")
	cmd.PersistentFlags().StringVar(&flags.HistoryPath, "history-db", flags.HistoryPath, "Local history database")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")

	// Local flags
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Output directory for saved poems and images")
	cmd.Flags().StringVarP(&flags.ServerURL, "server", "s", flags.ServerURL, "Poetry backend URL")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Per-request backend timeout")
	cmd.Flags().StringVar(&flags.BatchFile, "batch", "", "Process prompts from file (one per line)")
	cmd.Flags().BoolVar(&flags.Save, "save", false, "Save the poem to the backend database and as a text file")
	cmd.Flags().BoolVar(&flags.SaveImage, "save-image", false, "Download the generated image into the output directory")
	cmd.Flags().BoolVar(&flags.NoCard, "no-card", false, "Skip composing the poem onto the image")
	cmd.Flags().BoolVar(&flags.NoHistory, "no-history", false, "Do not record generations in the local history")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Move the output directory into the archive and exit")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("server.url", cmd.Flags().Lookup("server"))
	viper.BindPFlag("server.timeout", cmd.Flags().Lookup("timeout"))
	viper.BindPFlag("output.directory", cmd.Flags().Lookup("output"))
	viper.BindPFlag("history.path", cmd.PersistentFlags().Lookup("history-db"))
	viper.SetDefault("generation.compose_card", true)
}

// InitConfig loads .env, the config file and POETCARD_* environment
// variables into viper
func InitConfig(cfgFile string) {
	// A missing .env file is normal
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".poetcard" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".poetcard")
	}

	// Environment variables, e.g. POETCARD_SERVER_URL
	viper.SetEnvPrefix("POETCARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// ApplyConfig copies configured values into flags the user did not set
// explicitly on the command line
func ApplyConfig(cmd *cobra.Command, flags *Flags) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		return f != nil && f.Changed
	}

	if !changed("server") && viper.IsSet("server.url") {
		flags.ServerURL = viper.GetString("server.url")
	}
	if !changed("timeout") && viper.IsSet("server.timeout") {
		if d := viper.GetDuration("server.timeout"); d > 0 {
			flags.Timeout = d
		}
	}
	if !changed("output") && viper.IsSet("output.directory") {
		flags.OutputDir = viper.GetString("output.directory")
	}
	if !changed("history-db") && viper.IsSet("history.path") {
		flags.HistoryPath = viper.GetString("history.path")
	}
	if !changed("no-card") {
		flags.NoCard = !viper.GetBool("generation.compose_card")
	}
}

// ConfigureLogging sets up logrus. The GUI shows info lines in its log
// pane, so interactive runs log at info level.
func ConfigureLogging(verbose, interactive bool) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	logrus.SetLevel(LogLevel(verbose, interactive))
}

// LogLevel picks the logrus level for a run
func LogLevel(verbose, interactive bool) logrus.Level {
	switch {
	case verbose:
		return logrus.DebugLevel
	case interactive:
		return logrus.InfoLevel
	default:
		return logrus.WarnLevel
	}
}
