package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/imageindex"
	"github.com/kamusis/imgsearch/internal/search"
	"github.com/kamusis/imgsearch/internal/unsplash"
)

var (
	flagUnsplashTopic    string
	flagUnsplashCount    int
	flagUnsplashQuery    string
	flagUnsplashK        int
	flagUnsplashShowDesc bool
	flagUnsplashRebuild  bool
)

var unsplashCmd = &cobra.Command{
	Use:   "unsplash",
	Short: "Download photos for a topic from Unsplash and search them",
	Long: `Fetch up to --count photos matching --topic from Unsplash into the local
download cache (~/.imgsearch/unsplash/<topic>/), index them and rank them
against --query. Photos already on disk are not downloaded again.

Requires UNSPLASH_ACCESS_KEY in addition to OPENAI_API_KEY.`,
	Args: cobra.NoArgs,
	RunE: runUnsplash,
}

func init() {
	unsplashCmd.Flags().StringVar(&flagUnsplashTopic, "topic", "", "Unsplash search term for the photos to fetch (required)")
	unsplashCmd.Flags().IntVar(&flagUnsplashCount, "count", 0, "Number of photos to fetch (default: unsplash.count from config)")
	unsplashCmd.Flags().StringVarP(&flagUnsplashQuery, "query", "q", "", "Natural-language description to rank the photos against (required)")
	unsplashCmd.Flags().IntVarP(&flagUnsplashK, "top-k", "k", 0, "Number of results to show (default: search.top_k from config)")
	unsplashCmd.Flags().BoolVar(&flagUnsplashShowDesc, "show-description", false, "Print the generated description of each match")
	unsplashCmd.Flags().BoolVar(&flagUnsplashRebuild, "rebuild-cache", false, "Discard the cached index for this topic")
	_ = unsplashCmd.MarkFlagRequired("topic")
	_ = unsplashCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(unsplashCmd)
}

func runUnsplash(cmd *cobra.Command, _ []string) error {
	cfg := appCfg
	count := flagUnsplashCount
	if !cmd.Flags().Changed("count") {
		count = cfg.Unsplash.Count
	}
	k := flagUnsplashK
	if !cmd.Flags().Changed("top-k") {
		k = cfg.Search.TopK
	}
	if count < 1 || k < 1 {
		return fmt.Errorf("--count and --top-k must be at least 1")
	}

	client, err := newUnsplashClient(cfg)
	if err != nil {
		return err
	}
	p, err := newProviders(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	printSection("Unsplash")
	var bar *progressbar.ProgressBar
	acquired, err := unsplash.SearchAndDownload(ctx, client, flagUnsplashTopic, count, cfg.Unsplash.CacheDir, unsplash.AcquireOptions{
		OnProgress: func(done, total int, _ unsplash.Photo) {
			if bar == nil {
				bar = newBar(total, "[cyan]Downloading[reset]")
			}
			_ = bar.Set(done)
		},
	})
	if err != nil {
		return explainUnsplashError(err)
	}
	if len(acquired) == 0 {
		return fmt.Errorf("Unsplash returned no photos for %q", flagUnsplashTopic)
	}
	cached := 0
	for _, a := range acquired {
		if a.Cached {
			cached++
		}
	}
	printOK("", fmt.Sprintf("%d photo(s) for %q (%d already on disk)", len(acquired), flagUnsplashTopic, cached))

	paths := make([]string, len(acquired))
	credits := make(map[string]unsplash.Acquired, len(acquired))
	for i, a := range acquired {
		paths[i] = a.Path
		credits[a.Path] = a
	}
	sort.Strings(paths)

	cacheLoc := imageindex.CachePath(topicDir(cfg, flagUnsplashTopic), cfg.CacheFile)
	if flagUnsplashRebuild {
		if err := imageindex.Invalidate(cacheLoc); err != nil {
			return err
		}
	}

	cache, closeStore, err := newIndexCache(cfg, p, true)
	if err != nil {
		return err
	}
	defer closeStore()

	idx, stats, err := cache.Resolve(ctx, paths, cacheLoc)
	if err != nil {
		return fmt.Errorf("cannot build image index: %w", err)
	}
	if stats.PersistErr != nil {
		printWarn("", fmt.Sprintf("index cache not saved: %v", stats.PersistErr))
	}

	results, err := search.Search(ctx, idx, p.embedder, flagUnsplashQuery, k)
	if err != nil {
		return err
	}

	fmt.Println()
	if err := renderResults(os.Stdout, flagUnsplashQuery, results, flagUnsplashShowDesc, false); err != nil {
		return err
	}
	printCredits(results, credits)
	return nil
}

// printCredits attributes every shown photo to its photographer.
func printCredits(results []search.Result, credits map[string]unsplash.Acquired) {
	fmt.Println("\nPhotos from Unsplash:")
	for _, r := range results {
		a, ok := credits[r.Path]
		if !ok {
			continue
		}
		name := strings.TrimSpace(a.Photographer)
		if name == "" {
			name = "unknown photographer"
		}
		line := fmt.Sprintf("  %s by %s", filepath.Base(r.Path), name)
		if a.PhotographerURL != "" {
			line += " (" + a.PhotographerURL + ")"
		}
		fmt.Println(line)
	}
}
