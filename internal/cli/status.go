package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"regrag/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the index is ready to answer questions",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	pipeline, err := newPipeline(ctx, cfg)
	if err != nil {
		if errors.Is(err, domain.ErrDatabaseUnavailable) {
			fmt.Println("Vector store: unreachable")
			return err
		}
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	defer pipeline.Close()

	ready, err := pipeline.IsReady(ctx)
	if err != nil {
		return fmt.Errorf("readiness check failed: %w", err)
	}
	if ready {
		fmt.Println("Index: ready")
	} else {
		fmt.Println("Index: empty (run 'regrag ingest')")
	}
	return nil
}
