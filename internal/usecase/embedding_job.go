package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/domain"
	"github.com/DRSN-tech/shop-recommender/internal/metrics"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/google/uuid"
)

type itemOutcome int

const (
	itemSuccess itemOutcome = iota
	itemFailed
	itemSkipped
)

// EmbeddingJob генерирует эмбеддинги товаров пачками, по одному товару за раз.
// Сбой отдельного товара не прерывает задачу; повторный запуск безопасен.
type EmbeddingJob struct {
	productRepo ProductRepository
	versionRepo EmbeddingVersionRepository
	trManager   tr.Manager
	embedder    Embedder
	index       VectorIndex
	publisher   EventPublisher
	lockRepo    LockRepository
	cacheRepo   CacheRepository
	batchSize   int
	lockTTL     time.Duration
	logger      logger.Logger
}

func NewEmbeddingJob(
	productRepo ProductRepository,
	versionRepo EmbeddingVersionRepository,
	trManager tr.Manager,
	embedder Embedder,
	index VectorIndex,
	publisher EventPublisher,
	lockRepo LockRepository,
	cacheRepo CacheRepository,
	batchSize int,
	lockTTL time.Duration,
	logger logger.Logger,
) *EmbeddingJob {
	return &EmbeddingJob{
		productRepo: productRepo,
		versionRepo: versionRepo,
		trManager:   trManager,
		embedder:    embedder,
		index:       index,
		publisher:   publisher,
		lockRepo:    lockRepo,
		cacheRepo:   cacheRepo,
		batchSize:   batchSize,
		lockTTL:     lockTTL,
		logger:      logger,
	}
}

// Run обрабатывает выбранные товары: явный список, все (Force) или только без эмбеддингов.
// Ошибка возвращается, только если не удалось выбрать товары или отменён контекст.
func (j *EmbeddingJob) Run(ctx context.Context, req *JobReq) (*JobSummary, error) {
	const op = "EmbeddingJob.Run"

	ids, err := j.selectIDs(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	summary := &JobSummary{Total: len(ids)}
	if len(ids) == 0 {
		j.logger.Warnf("no products to process")
		return summary, nil
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = j.batchSize
	}

	j.logger.Infof("processing %d products in batches of %d (force=%t)", len(ids), batchSize, req.Force)

	done := 0
	for batch, start := 1, 0; start < len(ids); batch, start = batch+1, start+batchSize {
		end := min(start+batchSize, len(ids))
		batchIDs := ids[start:end]

		products, err := j.productRepo.GetByIDs(ctx, batchIDs)
		if err != nil {
			if ctx.Err() != nil {
				return summary, e.Wrap(op, ctx.Err())
			}

			j.logger.Errorf(err, "failed to load batch %d, counting %d products as failed", batch, len(batchIDs))
			summary.Failed += len(batchIDs)
			done += len(batchIDs)
			metrics.EmbeddingJobItems.WithLabelValues(metrics.OutcomeFailure).Add(float64(len(batchIDs)))
			j.report(req, batch, done, summary)
			continue
		}

		byID := make(map[int64]*domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		for _, id := range batchIDs {
			if err := ctx.Err(); err != nil {
				return summary, e.Wrap(op, err)
			}

			done++
			product, ok := byID[id]
			if !ok {
				j.logger.Warnf("[%d/%d] product %d disappeared from catalog, skipping", done, len(ids), id)
				summary.Skipped++
				metrics.EmbeddingJobItems.WithLabelValues(metrics.OutcomeSkipped).Inc()
				continue
			}

			switch j.processItem(ctx, product, done, len(ids)) {
			case itemSuccess:
				summary.Success++
				metrics.EmbeddingJobItems.WithLabelValues(metrics.OutcomeSuccess).Inc()
			case itemFailed:
				summary.Failed++
				metrics.EmbeddingJobItems.WithLabelValues(metrics.OutcomeFailure).Inc()
			case itemSkipped:
				summary.Skipped++
				metrics.EmbeddingJobItems.WithLabelValues(metrics.OutcomeSkipped).Inc()
			}
		}

		j.logger.Infof("batch %d done: %d/%d", batch, done, len(ids))
		j.report(req, batch, done, summary)
	}

	j.logger.Infof(
		"embedding job finished: success=%d failed=%d skipped=%d total=%d",
		summary.Success, summary.Failed, summary.Skipped, summary.Total,
	)

	return summary, nil
}

// selectIDs выбирает товары заранее, чтобы сохранение эмбеддингов не сдвигало выборку между пачками.
func (j *EmbeddingJob) selectIDs(ctx context.Context, req *JobReq) ([]int64, error) {
	switch {
	case len(req.ProductIDs) > 0:
		return j.productRepo.FilterIDs(ctx, domain.ProductFilter{IDs: uniqueIDs(req.ProductIDs)})
	case req.Force:
		return j.productRepo.FilterIDs(ctx, domain.ProductFilter{})
	default:
		return j.productRepo.FilterIDs(ctx, domain.ProductFilter{MissingEmbedding: true})
	}
}

func (j *EmbeddingJob) processItem(ctx context.Context, product *domain.Product, n, total int) itemOutcome {
	const op = "EmbeddingJob.processItem"

	token, ok, err := j.lockRepo.Acquire(ctx, product.ID, j.lockTTL)
	if err != nil {
		j.logger.Errorf(err, "[%d/%d] %s: failed to claim product %d", n, total, product.Name, product.ID)
		return itemFailed
	}
	if !ok {
		j.logger.Infof("[%d/%d] %s: claimed by another run, skipping", n, total, product.Name)
		return itemSkipped
	}
	defer func() {
		// Освобождение не должно зависеть от отмены контекста задачи
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		if err := j.lockRepo.Release(releaseCtx, product.ID, token); err != nil {
			j.logger.Warnf("failed to release claim on product %d: %v", product.ID, e.Wrap(op, err))
		}
	}()

	j.logger.Debugf("[%d/%d] %s: generating embeddings", n, total, product.Name)

	embeddings := j.embedder.EmbedProduct(ctx, product)
	if !embeddings.OK() {
		j.logger.Warnf(
			"[%d/%d] %s: embedding generation failed (name: %v, description: %v)",
			n, total, product.Name, embeddings.Name.Err, embeddings.Description.Err,
		)
		return itemFailed
	}

	var version *domain.ProductEmbeddingVersion
	err = j.trManager.Do(ctx, func(ctx context.Context) error {
		if err := j.productRepo.SaveEmbeddings(ctx, product.ID, embeddings.Name.Vector, embeddings.Description.Vector); err != nil {
			return err
		}

		v, err := j.versionRepo.Bump(ctx, product.ID, j.embedder.Model())
		if err != nil {
			return err
		}

		version = v
		return nil
	})
	if err != nil {
		j.logger.Errorf(e.Wrap(op, err), "[%d/%d] %s: failed to save embeddings", n, total, product.Name)
		return itemFailed
	}

	product.NameEmbedding = embeddings.Name.Vector
	product.DescriptionEmbedding = embeddings.Description.Vector
	product.EmbeddingVersion = version.EmbeddingVersion

	j.afterSave(ctx, product)

	j.logger.Infof("[%d/%d] %s: done (version %d)", n, total, product.Name, version.EmbeddingVersion)
	return itemSuccess
}

// afterSave синхронизирует побочные хранилища. Их сбои не отменяют успешное сохранение.
func (j *EmbeddingJob) afterSave(ctx context.Context, product *domain.Product) {
	const op = "EmbeddingJob.afterSave"

	if err := j.cacheRepo.DeleteProducts(ctx, []int64{product.ID}); err != nil {
		j.logger.Warnf("Failed to delete products: %v", e.Wrap(op, err))
	}

	if err := j.index.Upsert(ctx, []domain.IndexPoint{*domain.NewIndexPoint(product)}); err != nil {
		j.logger.Warnf("failed to sync vector index for product %d: %v", product.ID, e.Wrap(op, err))
	}

	event := domain.EmbeddingsUpdated{
		EventID:   uuid.NewString(),
		ProductID: product.ID,
		Version:   product.EmbeddingVersion,
		Model:     j.embedder.Model(),
		Dimension: product.NameEmbedding.Dim(),
		CreatedAt: time.Now().UTC(),
	}
	if err := j.publisher.PublishEmbeddingsUpdated(ctx, event); err != nil {
		j.logger.Warnf("failed to publish embeddings event for product %d: %v", product.ID, e.Wrap(op, err))
	}
}

func (j *EmbeddingJob) report(req *JobReq, batch, done int, summary *JobSummary) {
	if req.Progress == nil {
		return
	}

	req.Progress(JobProgress{
		Batch:   batch,
		Done:    done,
		Total:   summary.Total,
		Success: summary.Success,
		Failed:  summary.Failed,
		Skipped: summary.Skipped,
	})
}
