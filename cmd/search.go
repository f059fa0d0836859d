package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamusis/imgsearch/internal/imageindex"
	"github.com/kamusis/imgsearch/internal/search"
)

var (
	flagSearchImagesDir string
	flagSearchQuery     string
	flagSearchRebuild   bool
	flagSearchShowDesc  bool
	flagSearchK         int
	flagSearchMinScore  float64
	flagSearchKeyword   bool
	flagSearchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find the images in a directory that best match a description",
	Long: `Describe and embed every image in --images-dir (once; results are cached in the
directory) and rank them against the query by cosine similarity.

Examples:
  imgsearch search --images-dir ./photos --query "a dog on a beach"
  imgsearch search -k 5 --show-description "red car at night"
  imgsearch search --keyword sunset        # offline match over cached descriptions`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchImagesDir, "images-dir", "", "Directory of images to search (default: images_dir from config)")
	searchCmd.Flags().StringVarP(&flagSearchQuery, "query", "q", "", "Natural-language description of the image to find")
	searchCmd.Flags().BoolVar(&flagSearchRebuild, "rebuild-cache", false, "Discard the cached index and describe every image again")
	searchCmd.Flags().BoolVar(&flagSearchShowDesc, "show-description", false, "Print the generated description of each match")
	searchCmd.Flags().IntVarP(&flagSearchK, "top-k", "k", 0, "Number of results to show (default: search.top_k from config)")
	searchCmd.Flags().Float64Var(&flagSearchMinScore, "min-score", 0, "Minimum cosine similarity score to include")
	searchCmd.Flags().BoolVar(&flagSearchKeyword, "keyword", false, "Match query words against cached descriptions without calling any provider")
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := appCfg
	query := strings.TrimSpace(flagSearchQuery)
	if query == "" {
		query = strings.TrimSpace(strings.Join(args, " "))
	}
	if query == "" {
		return cmd.Help()
	}

	k := flagSearchK
	if !cmd.Flags().Changed("top-k") {
		k = cfg.Search.TopK
	}
	if k < 1 {
		return fmt.Errorf("--top-k must be at least 1, got %d", k)
	}
	minScore := flagSearchMinScore
	if !cmd.Flags().Changed("min-score") {
		minScore = cfg.Search.MinScore
	}

	dir := flagSearchImagesDir
	if dir == "" {
		dir = cfg.ImagesDir
	}
	paths, cacheLoc, err := resolveImages(cfg, dir)
	if err != nil {
		return err
	}
	if flagSearchRebuild {
		if err := imageindex.Invalidate(cacheLoc); err != nil {
			return err
		}
	}

	// Keyword mode works offline when the cache is current.
	if flagSearchKeyword {
		idx, _, _ := imageindex.Status(cacheLoc, paths, indexModelID(cfg))
		if idx != nil && !(cfg.Incremental && imageindex.ContentChanged(idx) != "") {
			return renderResults(os.Stdout, query, search.KeywordSearch(idx, query, k), flagSearchShowDesc, flagSearchJSON)
		}
	}

	p, err := newProviders(cfg)
	if err != nil {
		return err
	}
	cache, closeStore, err := newIndexCache(cfg, p, !flagSearchJSON)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	idx, stats, err := cache.Resolve(ctx, paths, cacheLoc)
	if err != nil {
		return fmt.Errorf("cannot build image index: %w", err)
	}
	if stats.PersistErr != nil && !flagSearchJSON {
		printWarn("", fmt.Sprintf("index cache not saved: %v", stats.PersistErr))
	}

	var results []search.Result
	if flagSearchKeyword {
		results = search.KeywordSearch(idx, query, k)
	} else {
		results, err = search.SearchMinScore(ctx, idx, p.embedder, query, k, minScore)
		if err != nil {
			return err
		}
	}
	return renderResults(os.Stdout, query, results, flagSearchShowDesc, flagSearchJSON)
}

type jsonResult struct {
	Path        string  `json:"path"`
	Score       float64 `json:"score"`
	Description string  `json:"description,omitempty"`
}

// roundScore rounds to 4 decimal places for display.
func roundScore(s float64) float64 {
	return math.Round(s*1e4) / 1e4
}

// renderResults prints results as JSON, as a single best match, or as a
// ranked table.
func renderResults(w io.Writer, query string, results []search.Result, showDesc, asJSON bool) error {
	if asJSON {
		out := make([]jsonResult, 0, len(results))
		for _, r := range results {
			jr := jsonResult{Path: r.Path, Score: roundScore(r.Score)}
			if showDesc {
				jr.Description = r.Description
			}
			out = append(out, jr)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(results) == 0 {
		fmt.Fprintf(w, "No images matched %q.\n", query)
		return nil
	}

	if len(results) == 1 {
		r := results[0]
		fmt.Fprintf(w, "Best match: %s\n", r.Path)
		if r.Why == "semantic" {
			fmt.Fprintf(w, "Score:      %.4f\n", roundScore(r.Score))
		}
		if showDesc {
			fmt.Fprintf(w, "Description: %s\n", strings.TrimSpace(r.Description))
		}
		return nil
	}

	fmt.Fprintf(w, "Results for %q (%d):\n", query, len(results))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, r := range results {
		score := ""
		if r.Why == "semantic" {
			score = fmt.Sprintf("[%.4f]", roundScore(r.Score))
		}
		fmt.Fprintf(tw, "  %d.\t%s\t%s\n", i+1, score, r.Path)
		if showDesc {
			fmt.Fprintf(tw, "  - %s\n", strings.TrimSpace(r.Description))
		}
	}
	return tw.Flush()
}
