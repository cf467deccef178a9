package main

import (
	"fmt"

	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/spf13/cobra"
)

func NewGenerateCmd(job func() usecase.EmbeddingJobUC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate name and description embeddings",
		Long: `Generate embeddings for products without them, for every product (--force)
or for an explicit list (--ids). Failed products are reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: makeGenerateRunner(job),
	}

	cmd.Flags().Bool("force", false, "Regenerate embeddings for all products")
	cmd.Flags().Int("batch-size", 10, "Products per batch")
	cmd.Flags().Int64Slice("ids", nil, "Only these product ids")

	return cmd
}

func makeGenerateRunner(job func() usecase.EmbeddingJobUC) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		ids, _ := cmd.Flags().GetInt64Slice("ids")

		if batchSize <= 0 {
			return fmt.Errorf("--batch-size must be positive, got %d", batchSize)
		}

		out := cmd.OutOrStdout()
		summary, err := job().Run(cmd.Context(), &usecase.JobReq{
			Force:      force,
			BatchSize:  batchSize,
			ProductIDs: ids,
			Progress: func(p usecase.JobProgress) {
				fmt.Fprintf(out, "batch %d: %d/%d processed, %d failed, %d skipped\n",
					p.Batch, p.Done, p.Total, p.Failed, p.Skipped)
			},
		})
		if err != nil {
			return fmt.Errorf("generate embeddings: %w", err)
		}

		if summary.Total == 0 {
			fmt.Fprintln(out, "nothing to do")
			return nil
		}

		fmt.Fprintf(out, "done: %d succeeded, %d failed, %d skipped of %d\n",
			summary.Success, summary.Failed, summary.Skipped, summary.Total)
		return nil
	}
}
