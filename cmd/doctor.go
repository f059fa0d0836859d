package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/config"
	"github.com/kamusis/imgsearch/internal/imageindex"
)

var flagDoctorOnline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that imgsearch's credentials, config and images directory are usable.
Run this command when something seems wrong, or before filing a bug report.

With --online, also fetch three photos' metadata from Unsplash to confirm the
access key works.`,
	Annotations: map[string]string{configOptional: "true"},
	Args:        cobra.NoArgs,
	RunE:        runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&flagDoctorOnline, "online", false, "Also run a live Unsplash search with the configured key")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("imgsearch doctor")
	fmt.Println()

	// ── Check 1: config file ──────────────────────────────────────────────────
	fmt.Println("[ imgsearch.yaml ]")
	cfgPath, _ := config.ConfigPath()
	if cfgErr != nil {
		failD("cannot use %s: %v", cfgPath, cfgErr)
	} else if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		printSkip("", fmt.Sprintf("%s not found — using defaults (run 'imgsearch init' to create it)", cfgPath))
	} else {
		printOK("", fmt.Sprintf("valid YAML: %s", cfgPath))
	}
	cfg := appCfg
	fmt.Println()

	// ── Check 2: credentials ──────────────────────────────────────────────────
	fmt.Println("[ Credentials ]")
	if key, err := config.RequireOpenAIKey(); err != nil {
		failD("%s not set — required for describing and searching images", config.OpenAIKeyEnv)
	} else {
		printOK(config.OpenAIKeyEnv, config.KeyPreview(key))
	}
	unsplashKey, unsplashErr := config.RequireUnsplashKey()
	if unsplashErr != nil {
		printMiss(config.UnsplashKeyEnv, "not set — only needed for 'imgsearch unsplash'")
	} else {
		printOK(config.UnsplashKeyEnv, config.KeyPreview(unsplashKey))
	}
	fmt.Println()

	// ── Check 3: images directory and cache ──────────────────────────────────
	fmt.Println("[ Images directory ]")
	paths, loc, err := resolveImages(cfg, cfg.ImagesDir)
	if err != nil {
		printWarn("", err.Error())
	} else {
		printOK("", fmt.Sprintf("%d image(s) in %s", len(paths), cfg.ImagesDir))
		idx, reason, loadErr := imageindex.Status(loc, paths, indexModelID(cfg))
		if idx != nil && cfg.Incremental && imageindex.ContentChanged(idx) != "" {
			idx, reason = nil, "image content changed"
		}
		switch {
		case loadErr != nil:
			printWarn("", fmt.Sprintf("cache unreadable (%v); next search rebuilds it", loadErr))
		case idx == nil:
			printInfo("", fmt.Sprintf("cache not usable (%s); next search describes %d image(s)", reason, len(paths)))
		default:
			printOK("", "cached index is current")
		}
	}
	fmt.Println()

	// ── Check 4: Unsplash connectivity (opt-in) ───────────────────────────────
	fmt.Println("[ Unsplash ]")
	switch {
	case !flagDoctorOnline:
		printSkip("", "connection test skipped (use --online)")
	case unsplashErr != nil:
		printSkip("", "connection test skipped (no access key)")
		fmt.Println(indent(config.UnsplashKeySteps, "     "))
	default:
		if err := checkUnsplash(cfg); err != nil {
			failD("%v", err)
		} else {
			printOK("", "search API reachable and key accepted")
		}
	}
	fmt.Println()

	// ── Summary ──────────────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. imgsearch is ready to use.")
	} else {
		fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// checkUnsplash runs a three-photo search with the configured key.
func checkUnsplash(cfg *config.Config) error {
	client, err := newUnsplashClient(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	photos, _, err := client.SearchPhotos(ctx, "nature", 3, 1)
	if err != nil {
		return explainUnsplashError(err)
	}
	if len(photos) == 0 {
		return fmt.Errorf("Unsplash answered but returned no photos")
	}
	return nil
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
