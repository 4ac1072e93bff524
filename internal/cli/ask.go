package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"regrag/internal/domain"
	"regrag/internal/usecase"
)

var (
	askQuery       string
	askTopK        int
	askSummarize   bool
	askJSON        bool
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question grounded in the indexed documents",
	Long: `Embed the question, retrieve the most relevant chunks from the vector
store, rerank them and synthesize an answer from the retrieved content only.

Examples:
  regrag ask -q "¿Qué establece el artículo 5?"
  regrag ask -q "límites de aditivos" --top-k 10 --summarize --show-sources`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askSummarize, "summarize", false, "also produce a theme summary and summarized answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askShowSources, "show-sources", false, "list the sources behind the answer")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	pipeline, err := newPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer pipeline.Close()

	opts := usecase.AnswerOptions{
		TopK:      cfg.Retrieve.TopK,
		Summarize: cfg.Retrieve.Summarize || askSummarize,
	}
	if askTopK > 0 {
		opts.TopK = askTopK
	}

	result, err := pipeline.Answer(ctx, askQuery, opts)
	if err != nil {
		if errors.Is(err, domain.ErrNoRetrievableContext) {
			return fmt.Errorf("no indexed content matches this question; run 'regrag ingest' first")
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if usecase.IsUngrounded(result.Answer) {
		fmt.Println("The indexed documents contain no information relevant to this question.")
		return nil
	}

	fmt.Println(result.Answer)
	if result.Themes != "" {
		fmt.Printf("\n--- Themes ---\n%s\n", result.Themes)
	}
	if result.SummarizedAnswer != "" && !usecase.IsUngrounded(result.SummarizedAnswer) {
		fmt.Printf("\n--- Answer over summarized context ---\n%s\n", result.SummarizedAnswer)
	}
	if askShowSources {
		fmt.Println("\nSources:")
		for i, s := range result.Sources {
			line := fmt.Sprintf("  [%d] %s", i+1, s.SourceFile)
			if s.Section != "" {
				line += ", " + s.Section
			}
			fmt.Printf("%s (%s, score %.3f)\n", line, s.Type, s.Score)
		}
	}
	return nil
}
