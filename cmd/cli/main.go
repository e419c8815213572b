package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/rule-resolver/config"
)

// version is set at build time.
var version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rule-resolver",
	Short: "Rule Resolver CLI - inspect the pricelist rules applying to a product",
	Long: `A CLI for resolving a scanned product code against the configured pricing
backend (Odoo over JSON-RPC, or a replicated PostgreSQL schema) and printing the
pricelist rules of all active price lists that apply to it, grouped by scope.`,
	PersistentPreRunE: persistentPreRun,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	cfg, cfgErr = config.Load(cfgFile)
}

// persistentPreRun runs before each command and initializes the logger. Only
// commands talking to the backend require a valid configuration.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	logger = initLogger(cmd.ErrOrStderr())

	if cmd.Name() == "resolve" && cfgErr != nil {
		return fmt.Errorf("config required for %s: %w", cmd.Name(), cfgErr)
	}
	return nil
}

// initLogger writes to stderr so command output on stdout stays parseable.
func initLogger(out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.WarnLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = out
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: out, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
