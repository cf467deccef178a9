package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/DRSN-tech/shop-recommender/db/migrations"
	config "github.com/DRSN-tech/shop-recommender/internal/cfg"
	v1Http "github.com/DRSN-tech/shop-recommender/internal/delivery/v1/http"
	"github.com/DRSN-tech/shop-recommender/internal/infrastructure/embedder"
	"github.com/DRSN-tech/shop-recommender/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/shop-recommender/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/shop-recommender/internal/repository/minio"
	"github.com/DRSN-tech/shop-recommender/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/shop-recommender/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/shop-recommender/internal/repository/qdrant"
	"github.com/DRSN-tech/shop-recommender/internal/repository/redis"
	redisConv "github.com/DRSN-tech/shop-recommender/internal/repository/redis/converter"
	"github.com/DRSN-tech/shop-recommender/internal/repository/sqlite"
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/clients"
	"github.com/DRSN-tech/shop-recommender/pkg/closer"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/DRSN-tech/shop-recommender/pkg/postgres"
	"github.com/DRSN-tech/shop-recommender/pkg/tr"
	"github.com/jimlawless/whereami"
)

const startupTimeout = 15 * time.Second

// Container — зависимости, общие для сервера и CLI.
type Container struct {
	Cfg       *config.Config
	Logger    logger.Logger
	Closer    *closer.Closer
	Search    *usecase.SearchUseCase
	Recommend *usecase.RecommendUseCase
	Job       *usecase.EmbeddingJob
	Import    *usecase.ImportUseCase
	Checks    map[string]v1Http.HealthCheck
	Producer  *kafka.Producer // nil, если Kafka не настроена
}

// store — выбранное хранилище каталога вместе с зависимыми компонентами.
type store struct {
	products  usecase.ProductRepository
	versions  usecase.EmbeddingVersionRepository
	trManager tr.Manager
	native    map[string]usecase.VectorBackend
}

// NewContainer подключает хранилища и собирает usecase-слой. При ошибке уже открытые
// ресурсы закрываются.
func NewContainer(ctx context.Context, cfg *config.Config, log logger.Logger) (*Container, error) {
	return newContainer(ctx, cfg, log, closer.NewCloser(0))
}

func newContainer(ctx context.Context, cfg *config.Config, log logger.Logger, cl *closer.Closer) (_ *Container, err error) {
	defer func() {
		if err != nil {
			if closeErr := cl.Close(context.Background()); closeErr != nil {
				log.Warnf("cleanup after failed start: %v", closeErr)
			}
		}
	}()

	c := &Container{
		Cfg:    cfg,
		Logger: log,
		Closer: cl,
		Checks: make(map[string]v1Http.HealthCheck),
	}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	st, err := c.openStore(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var (
		index     usecase.VectorIndex     = usecase.NoopIndex{}
		cacheRepo usecase.CacheRepository = usecase.NoopCache{}
		lockRepo  usecase.LockRepository  = usecase.NewLocalLocker()
		publisher usecase.EventPublisher  = usecase.NoopPublisher{}
		objects   usecase.ObjectRepository
	)

	if cfg.Qdrant != nil {
		qdrantClient, err := clients.NewQdrantClient(cfg.Qdrant)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		c.Closer.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

		embRepo := qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg.Qdrant, cfg.Search.Distance)
		if err := embRepo.EnsureCollection(ctx); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		index = embRepo
		st.native[qdrantRepo.QdrantName] = embRepo
		c.Checks["qdrant"] = qdrantClient.Ping
	}

	if cfg.Redis != nil {
		redisClient := clients.NewRedisClient(cfg.Redis)
		c.Closer.Add("redis", func(context.Context) error { return redisClient.Close() })

		if err := redisClient.Ping(ctx); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		cacheRepo = redis.NewCacheRepo(redisClient, redisConv.NewProductCardConverter(), cfg.Redis, log)
		lockRepo = redis.NewLockRepo(redisClient)
		c.Checks["redis"] = redisClient.Ping
	}

	if cfg.Kafka != nil {
		producer := kafka.NewProducer(log, cfg.Kafka)
		c.Closer.Add("kafka", func(context.Context) error { return producer.Close() })

		if err := producer.EnsureTopic(5 * time.Second); err != nil {
			log.Warnf("kafka topic check failed, events may be lost: %v", err)
		}

		publisher = producer
		c.Producer = producer
	}

	if cfg.Minio != nil {
		minioClient, err := clients.NewMinIOClient(cfg.Minio)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		c.Closer.AddQuiet("minio", minioClient.Close)
		c.Checks["minio"] = minioClient.Ping
		objects = s3Repo.NewObjectRepo(minioClient.Client)
	}

	client, err := embedder.NewClient(cfg.Embedding, log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	provider := usecase.NewEmbeddingProvider(client, cfg.Embedding.Model, cfg.Embedding.Dimensions, embedder.CallBudget(cfg.Embedding), log)

	backend, err := SelectBackend(ctx, cfg.Search.Backend, st.native, usecase.NewBruteForceBackend(st.products, log), log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	log.Infof("vector backend: %s (%s distance)", backend.Name(), cfg.Search.Distance)

	c.Search = usecase.NewSearchUC(provider, backend, cfg.Search.DefaultLimit, cfg.Search.MaxLimit, log)
	c.Recommend = usecase.NewRecommendUC(st.products, cacheRepo, c.Search, cfg.Search.RecommendLimit, log)
	c.Job = usecase.NewEmbeddingJob(
		st.products,
		st.versions,
		st.trManager,
		provider,
		index,
		publisher,
		lockRepo,
		cacheRepo,
		cfg.Job.BatchSize,
		cfg.Job.LockTTL,
		log,
	)
	c.Import = usecase.NewImportUC(st.products, index, cacheRepo, minioInfra.NewCatalogSource(objects, log), log)

	return c, nil
}

func (c *Container) openStore(ctx context.Context) (*store, error) {
	switch c.Cfg.Db.Driver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, c.Cfg.Db.Postgres, migrations.FS, "postgres", c.Logger)
		if err != nil {
			return nil, err
		}
		c.Closer.AddQuiet("postgres", db.Close)
		c.Checks["postgres"] = db.Ping

		trManager, err := tr.NewPgxManager(db.Pool)
		if err != nil {
			return nil, err
		}

		return &store{
			products:  pgdb.NewProductRepo(db.Pool, pgdbConv.NewProductConverter()),
			versions:  pgdb.NewProductEmbeddingVersionRepo(db.Pool, pgdbConv.NewProductEmbeddingVersionConverter()),
			trManager: trManager,
			native: map[string]usecase.VectorBackend{
				pgdb.PgvectorName: pgdb.NewVectorSearchRepo(db.Pool, c.Cfg.Search.Distance),
			},
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, c.Cfg.Db.SQLitePath, c.Logger)
		if err != nil {
			return nil, err
		}
		c.Closer.Add("sqlite", func(context.Context) error { return db.Close() })
		c.Checks["sqlite"] = pingSQL(db)

		trManager, err := tr.NewSQLManager(db)
		if err != nil {
			return nil, err
		}

		repo := sqlite.NewProductRepo(db, c.Logger)
		return &store{
			products:  repo,
			versions:  repo,
			trManager: trManager,
			native:    map[string]usecase.VectorBackend{},
		}, nil

	default:
		return nil, fmt.Errorf("%w: DB_DRIVER=%q", e.ErrIncorrectEnvVariable, c.Cfg.Db.Driver)
	}
}

func pingSQL(db *sql.DB) v1Http.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

// SelectBackend выбирает бэкенд поиска один раз при старте.
// auto: pgvector, если он есть и расширение установлено, иначе полный перебор.
// Явно заданный бэкенд обязан быть доступен.
func SelectBackend(
	ctx context.Context,
	mode string,
	native map[string]usecase.VectorBackend,
	fallback usecase.VectorBackend,
	log logger.Logger,
) (usecase.VectorBackend, error) {
	switch mode {
	case config.BackendBruteForce:
		return fallback, nil

	case config.BackendAuto, "":
		b, ok := native[config.BackendPgvector]
		if !ok {
			return fallback, nil
		}
		if err := available(ctx, b); err != nil {
			log.Warnf("pgvector unavailable, falling back to %s: %v", fallback.Name(), err)
			return fallback, nil
		}
		return b, nil

	default:
		b, ok := native[mode]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not configured", e.ErrBackendUnavailable, mode)
		}
		if err := available(ctx, b); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", e.ErrBackendUnavailable, mode, err)
		}
		return b, nil
	}
}

func available(ctx context.Context, b usecase.VectorBackend) error {
	if checker, ok := b.(usecase.CapabilityChecker); ok {
		return checker.Available(ctx)
	}

	return nil
}
