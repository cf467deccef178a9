package main

import (
	"fmt"

	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/spf13/cobra"
)

func NewImportCmd(importer func() usecase.ImportUC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the product catalog from CSV",
		Long: `Import products from a local CSV file or an s3://bucket/key object.
Existing products are updated in place and keep their embeddings.`,
		Args: cobra.NoArgs,
		RunE: makeImportRunner(importer),
	}

	cmd.Flags().String("file", "", "Path or s3://bucket/key of the CSV file")
	cmd.Flags().Bool("truncate", false, "Delete all products before importing")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func makeImportRunner(importer func() usecase.ImportUC) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		file, _ := cmd.Flags().GetString("file")
		truncate, _ := cmd.Flags().GetBool("truncate")

		summary, err := importer().Import(cmd.Context(), &usecase.ImportReq{Location: file, Truncate: truncate})
		if err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "imported: %d created, %d updated, %d failed\n",
			summary.Created, summary.Updated, summary.Failed)
		return nil
	}
}
