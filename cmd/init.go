package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create ~/.imgsearch with a default config and credentials template",
	Long: `Initialize imgsearch's app directory at ~/.imgsearch/:

  imgsearch.yaml   default configuration (models, cache file name, Unsplash)
  .env             credentials template for OPENAI_API_KEY and UNSPLASH_ACCESS_KEY

Existing files are left untouched.`,
	Annotations: map[string]string{configOptional: "true"},
	Args:        cobra.NoArgs,
	RunE:        runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.imgsearch directory ─────────────────────────────────────
	appDir, err := config.AppDir()
	if err != nil {
		return err
	}
	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	// ── 2. Create ~/.imgsearch/ if it doesn't exist ───────────────────────────
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", appDir, err)
	}
	printOK("", fmt.Sprintf("imgsearch directory ready: %s", appDir))

	// ── 3. Write imgsearch.yaml if missing ────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Save(config.DefaultConfig()); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 4. Credentials template ───────────────────────────────────────────────
	envPath, err := config.DotEnvPath()
	if err != nil {
		return err
	}
	created, err := config.EnsureDotEnvTemplate()
	if err != nil {
		return err
	}
	if created {
		printOK("", fmt.Sprintf("Credentials template written: %s", envPath))
	} else {
		printSkip("", fmt.Sprintf("Credentials file already exists: %s", envPath))
	}

	// ── 5. Download cache ─────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Unsplash.CacheDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", cfg.Unsplash.CacheDir, err)
	}
	printOK("", fmt.Sprintf("Unsplash download cache: %s", cfg.Unsplash.CacheDir))

	fmt.Println()
	fmt.Printf("  Next: add your keys to %s, then run 'imgsearch doctor'.\n", envPath)
	return nil
}
