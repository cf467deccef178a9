package main

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/app"
	config "github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/spf13/cobra"
)

// cli держит зависимости команд; контейнер собирается лениво, чтобы --help работал без БД.
type cli struct {
	logger    logger.Logger
	container *app.Container

	job       usecase.EmbeddingJobUC
	importer  usecase.ImportUC
	search    usecase.SearchUC
	recommend usecase.RecommendUC
}

func (a *cli) init(ctx context.Context) error {
	if a.job != nil {
		return nil
	}

	cfg, err := config.Load(a.logger)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	c, err := app.NewContainer(ctx, cfg, a.logger)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	a.container = c
	a.job, a.importer, a.search, a.recommend = c.Job, c.Import, c.Search, c.Recommend
	return nil
}

func (a *cli) close() {
	if a.container == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.container.Closer.Close(ctx); err != nil {
		a.logger.Warnf("%v", err)
	}
	a.container = nil
}

func NewRootCmd(a *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "embeddings",
		Short:         "Embedding maintenance for the product catalog",
		Long:          `Generate product embeddings, import the catalog from CSV and run ad-hoc similarity searches.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.AddCommand(
		NewGenerateCmd(func() usecase.EmbeddingJobUC { return a.job }),
		NewImportCmd(func() usecase.ImportUC { return a.importer }),
		NewSearchCmd(func() usecase.SearchUC { return a.search }),
		NewRecommendCmd(func() usecase.RecommendUC { return a.recommend }),
	)

	return rootCmd
}
