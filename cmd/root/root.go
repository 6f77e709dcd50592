// Package root contains the root command for the application
package root

import (
	"fmt"

	"fjacquet/statement-csv/internal/config"
	"fjacquet/statement-csv/internal/container"
	"fjacquet/statement-csv/internal/logging"

	"github.com/spf13/cobra"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input        string
	Output       string
	Validate     bool
	ConfigFile   string
	LogLevel     string
	LogFormat    string
	CSVDelimiter string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "statement-csv",
		Short: "A CLI tool to convert bank statement PDFs to CSV and categorize transactions.",
		Long: `statement-csv is a CLI tool that extracts transactions from the PDF
statements of Spanish and Catalan banks and writes them as CSV or XLSX.
Transactions are categorized with keyword rules, the user's learned
corrections and, optionally, the Gemini API.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appContainer == nil {
				return nil
			}
			return appContainer.Close()
		},
	}

	// Common flags accessible to all commands
	SharedFlags = CommonFlags{}

	appContainer     *container.Container
	containerOptions []container.Option
)

// Init initializes the root command and all flags
func Init() {
	// Add persistent flags to root command for common options
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Input, "input", "i", "", "Input file")
	Cmd.PersistentFlags().StringVarP(&SharedFlags.Output, "output", "o", "", "Output file")
	Cmd.PersistentFlags().BoolVarP(&SharedFlags.Validate, "validate", "v", false, "Validate file format before conversion")

	// Configuration overrides, highest priority
	Cmd.PersistentFlags().StringVar(&SharedFlags.ConfigFile, "config", "", "Config file (default searches $HOME/.statement-csv/config.yaml)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogFormat, "log-format", "", "Log format (text, json)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.CSVDelimiter, "csv-delimiter", "", "CSV delimiter character")
}

// SetContainerOptions overrides container dependencies for the next command
// run. Tests use it to inject stores and PDF sources.
func SetContainerOptions(opts ...container.Option) {
	containerOptions = opts
}

// GetContainer returns the container built for the running command.
func GetContainer() *container.Container {
	return appContainer
}

// GetLogger returns the configured logger, or a default one before the
// container exists.
func GetLogger() logging.Logger {
	if appContainer == nil {
		return logging.OrDefault(nil)
	}
	return appContainer.GetLogger()
}

func setup(cmd *cobra.Command, args []string) error {
	config.LoadEnv(nil)

	cfg, err := config.InitializeConfig(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	c, err := container.NewContainer(cfg, containerOptions...)
	if err != nil {
		return fmt.Errorf("error initializing application: %w", err)
	}
	appContainer = c
	return nil
}

func applyFlagOverrides(cfg *config.Config) {
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.LogFormat != "" {
		cfg.Log.Format = SharedFlags.LogFormat
	}
	if SharedFlags.CSVDelimiter != "" {
		cfg.CSV.Delimiter = SharedFlags.CSVDelimiter
	}
}
