// Package cli provides command-line interface setup and configuration
// for the poetcard application. It handles flag parsing, command
// creation, the history subcommand and configuration management using
// cobra, viper and godotenv.
package cli
