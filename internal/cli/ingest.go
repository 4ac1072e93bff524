package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from extracted documents",
	Long: `Normalize, chunk and embed all extracted documents in the configured
directory, then upsert the embeddings into the vector store.

Examples:
  regrag ingest                      # Ingest the configured documents directory
  regrag ingest --dir ./data/batch2  # Ingest a specific directory`,
	RunE: runIngest,
}

var ingestDir string

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "documents directory (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if ingestDir != "" {
		cfg.Documents.Dir = ingestDir
	}

	info, err := os.Stat(cfg.Documents.Dir)
	if err != nil {
		return fmt.Errorf("documents directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", cfg.Documents.Dir)
	}

	ctx := cmd.Context()
	pipeline, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer pipeline.Close()

	fmt.Printf("Scanning %s...\n", cfg.Documents.Dir)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var initialized bool

	progress := func(processed, total int, current string) {
		barMu.Lock()
		defer barMu.Unlock()

		if !initialized {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
			initialized = true
		}
		bar.Set(processed)
	}

	result, err := pipeline.BuildIndex(ctx, progress)
	if result != nil {
		fmt.Printf("Documents: %d loaded, %d skipped\n", result.DocumentsLoaded, result.DocumentsSkipped)
		fmt.Printf("Chunks:    %d\n", result.ChunksCreated)
		fmt.Printf("Records:   %d upserted\n", result.RecordsUpserted)
		for _, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}
