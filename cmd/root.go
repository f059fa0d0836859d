package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/config"
)

// configOptional marks commands that must still run when the config file is
// broken, e.g. to report or recreate it.
const configOptional = "config-optional"

var (
	flagDebug bool

	appCfg *config.Config
	// cfgErr holds the config load error for configOptional commands.
	cfgErr error
	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:          "imgsearch",
	Short:        "imgsearch — find images by describing what is in them",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `imgsearch describes every image in a directory with a vision model,
embeds the descriptions and ranks images against a natural-language query.

Descriptions and embeddings are cached next to the images, so only the first
search over a directory (or the first after it changes) calls the providers.`,
	PersistentPreRunE: loadRuntime,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging on stderr")
}

// loadRuntime loads the config and configures the logger before any command runs.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		if cmd.Annotations[configOptional] != "true" {
			return fmt.Errorf("cannot load config: %w\nFix the file or run 'imgsearch init'.", err)
		}
		cfgErr = err
		cfg = config.DefaultConfig()
	}
	appCfg = cfg
	configureLogger(logger, cfg.Logging.Level, flagDebug)
	return nil
}

// configureLogger points l at stderr with the configured level.
func configureLogger(l *logrus.Logger, level string, debug bool) {
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.WarnLevel
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	l.SetLevel(lvl)
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
