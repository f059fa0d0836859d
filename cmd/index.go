package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/config"
	"github.com/kamusis/imgsearch/internal/imageindex"
	"github.com/kamusis/imgsearch/internal/images"
)

var (
	flagIndexImagesDir string
	flagIndexRebuild   bool
	flagIndexWatch     bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Describe and embed a directory of images without searching",
	Long: `Build (or confirm) the cached index for --images-dir so later searches are
served without calling the description provider.

With --watch the command stays running and refreshes the index after the
directory changes. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagIndexImagesDir, "images-dir", "", "Directory of images to index (default: images_dir from config)")
	indexCmd.Flags().BoolVar(&flagIndexRebuild, "rebuild-cache", false, "Discard the cached index and describe every image again")
	indexCmd.Flags().BoolVar(&flagIndexWatch, "watch", false, "Keep running and refresh the index whenever images are added, changed or removed")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	dir := flagIndexImagesDir
	if dir == "" {
		dir = cfg.ImagesDir
	}
	dir, err := config.ExpandPath(dir)
	if err != nil {
		return err
	}
	paths, cacheLoc, err := resolveImages(cfg, dir)
	if err != nil {
		return err
	}
	if flagIndexRebuild {
		if err := imageindex.Invalidate(cacheLoc); err != nil {
			return err
		}
		printInfo("", "cached index discarded")
	}

	p, err := newProviders(cfg)
	if err != nil {
		return err
	}
	cache, closeStore, err := newIndexCache(cfg, p, true)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	printSection("imgsearch index")
	if err := refreshIndex(ctx, cache, paths, cacheLoc); err != nil {
		return err
	}
	if !flagIndexWatch {
		return nil
	}

	watchCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	printInfo("", fmt.Sprintf("watching %s for changes (Ctrl+C to stop)", dir))
	return images.Watch(watchCtx, dir, cfg.ImagePatterns, 2*time.Second, func() {
		paths, cacheLoc, err := resolveImages(cfg, dir)
		if err != nil {
			printWarn("", err.Error())
			return
		}
		ctx, cancel := context.WithTimeout(watchCtx, commandTimeout)
		defer cancel()
		if err := refreshIndex(ctx, cache, paths, cacheLoc); err != nil {
			printErr("", err.Error())
		}
	})
}

// refreshIndex loads or rebuilds the index and reports what happened.
func refreshIndex(ctx context.Context, cache *imageindex.Cache, paths []string, cacheLoc string) error {
	idx, stats, err := cache.Resolve(ctx, paths, cacheLoc)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	if stats.Hit {
		printOK("", fmt.Sprintf("index is current: %d image(s), served from cache", idx.Len()))
	} else {
		printInfo("", fmt.Sprintf("rebuilt (%s)", stats.MissReason))
		printOK("", fmt.Sprintf("%d image(s) described, %d reused", stats.Described, stats.Reused))
	}
	if stats.PersistErr != nil {
		printWarn("", fmt.Sprintf("index cache not saved: %v", stats.PersistErr))
	} else {
		printOK("", fmt.Sprintf("cache: %s", cacheLoc))
	}
	return nil
}
