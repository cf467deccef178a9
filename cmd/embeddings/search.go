package main

import (
	"fmt"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func NewSearchCmd(search func() usecase.SearchUC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find products similar to a text",
		Args:  cobra.ExactArgs(1),
		RunE:  makeSearchRunner(search),
	}

	cmd.Flags().Int("limit", 5, "Maximum number of results")
	cmd.Flags().Bool("affiliated-only", false, "Only affiliated products")
	cmd.Flags().StringSlice("category", nil, "Allowed categories")
	cmd.Flags().Int64Slice("exclude", nil, "Product ids to exclude")

	return cmd
}

func makeSearchRunner(search func() usecase.SearchUC) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		affiliated, _ := cmd.Flags().GetBool("affiliated-only")
		categories, _ := cmd.Flags().GetStringSlice("category")
		exclude, _ := cmd.Flags().GetInt64Slice("exclude")

		results, err := search().Search(cmd.Context(), &usecase.SearchReq{
			Query:          args[0],
			Limit:          limit,
			ExcludeIDs:     exclude,
			AffiliatedOnly: affiliated,
			Categories:     categories,
		})
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		return printResults(cmd, results)
	}
}

func NewRecommendCmd(recommend func() usecase.RecommendUC) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend products for a set of product ids",
		Args:  cobra.NoArgs,
		RunE:  makeRecommendRunner(recommend),
	}

	cmd.Flags().Int64Slice("ids", nil, "Source product ids")
	cmd.Flags().Int("limit", 0, "Maximum number of results (0 = default)")
	cmd.Flags().Bool("affiliated-only", true, "Only affiliated products")
	cmd.Flags().Bool("use-categories", true, "Restrict to categories of the source products")
	_ = cmd.MarkFlagRequired("ids")

	return cmd
}

func makeRecommendRunner(recommend func() usecase.RecommendUC) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ids, _ := cmd.Flags().GetInt64Slice("ids")
		limit, _ := cmd.Flags().GetInt("limit")
		affiliated, _ := cmd.Flags().GetBool("affiliated-only")
		useCategories, _ := cmd.Flags().GetBool("use-categories")

		req := usecase.NewRecommendReq(ids, limit)
		req.AffiliatedOnly = affiliated
		req.UseCategories = useCategories

		results, err := recommend().RecommendForIDs(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("recommend: %w", err)
		}

		return printResults(cmd, results)
	}
}

func printResults(cmd *cobra.Command, results []domain.SimilarityResult) error {
	if results == nil {
		results = []domain.SimilarityResult{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
