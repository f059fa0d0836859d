package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/config"
	"github.com/kamusis/imgsearch/internal/imageindex"
)

var flagCacheImagesDir string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the cached index of an images directory",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached index so the next search rebuilds it",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show whether the cached index matches the directory contents",
	Args:  cobra.NoArgs,
	RunE:  runCacheInfo,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&flagCacheImagesDir, "images-dir", "", "Images directory (default: images_dir from config)")
	cacheCmd.AddCommand(cacheClearCmd, cacheInfoCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cacheDirFlag() string {
	if flagCacheImagesDir != "" {
		return flagCacheImagesDir
	}
	return appCfg.ImagesDir
}

func runCacheClear(_ *cobra.Command, _ []string) error {
	dir, err := config.ExpandPath(cacheDirFlag())
	if err != nil {
		return err
	}
	loc := imageindex.CachePath(dir, appCfg.CacheFile)
	_, statErr := os.Stat(loc)
	if err := imageindex.Invalidate(loc); err != nil {
		return err
	}
	if statErr != nil {
		printSkip("", fmt.Sprintf("no cached index at %s", loc))
		return nil
	}
	printOK("", fmt.Sprintf("removed %s", loc))
	return nil
}

func runCacheInfo(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	paths, loc, err := resolveImages(cfg, cacheDirFlag())
	if err != nil {
		return err
	}

	printSection("imgsearch cache")
	fmt.Printf("  File:    %s\n", loc)
	fmt.Printf("  Images:  %d in directory\n", len(paths))

	idx, reason, loadErr := imageindex.Status(loc, paths, indexModelID(cfg))
	if idx != nil && cfg.Incremental && imageindex.ContentChanged(idx) != "" {
		idx, reason = nil, "image content changed"
	}
	switch {
	case loadErr != nil:
		printWarn("", fmt.Sprintf("cache unreadable, next search rebuilds it: %v", loadErr))
	case idx == nil:
		printMiss("", fmt.Sprintf("cache not usable (%s); next search rebuilds it", reason))
	default:
		fmt.Printf("  Model:   %s\n", idx.Manifest.ModelID)
		fmt.Printf("  Dim:     %d\n", idx.Manifest.Dim)
		fmt.Printf("  Created: %s\n", idx.Manifest.CreatedAt)
		printOK("", fmt.Sprintf("cache is current for %d image(s)", idx.Len()))
	}

	if cfg.Incremental {
		store, err := imageindex.OpenBoltStore(cfg.RecordStore)
		if err != nil {
			printWarn("", fmt.Sprintf("record store unavailable: %v", err))
			return nil
		}
		defer store.Close()
		n, err := store.Count()
		if err != nil {
			printWarn("", fmt.Sprintf("cannot read record store: %v", err))
			return nil
		}
		printInfo("", fmt.Sprintf("record store %s holds %d description(s)", cfg.RecordStore, n))
	}
	return nil
}
