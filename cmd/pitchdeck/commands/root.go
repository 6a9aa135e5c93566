package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/pitchdeck-analyzer/cmd/pitchdeck/ui"
	"github.com/spherical/pitchdeck-analyzer/internal/config"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
)

// Set at build time with -ldflags "-X .../commands.Version=..."
var Version = "1.0.0"

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pitchdeck",
	Short: "Pitch deck analyzer - structured startup insights from PDF decks",
	Long: `pitchdeck reads a pitch deck PDF page by page, using embedded text where it is
trustworthy and vision OCR where it is not, extracts structured startup metadata
with a language model and optionally looks up the founders' profiles.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.Init(noColor)

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		} else if cmd.Name() != serveCmd.Name() {
			// progress output owns the terminal; only warnings get through
			level = "warn"
		}
		format := cfg.Observability.LogFormat
		if cmd.Name() != serveCmd.Name() {
			format = "console"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      format,
			ServiceName: cfg.Observability.ServiceName,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
