package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/jimlawless/whereami"
)

// Драйверы каталога
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Бэкенды векторного поиска
const (
	BackendAuto       = "auto"
	BackendPgvector   = "pgvector"
	BackendQdrant     = "qdrant"
	BackendBruteForce = "bruteforce"
)

// Метрики расстояния pgvector
const (
	DistanceCosine = "cosine"
	DistanceL2     = "l2"
)

// Провайдеры эмбеддингов
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config — конфигурация приложения. Необязательные интеграции равны nil, если не настроены.
type Config struct {
	Http            *HTTPConfig
	Grpc            *GRPCConfig
	Db              *DBCfg
	Embedding       *EmbeddingCfg
	Search          *SearchCfg
	Job             *JobCfg
	Qdrant          *QdrantCfg
	Redis           *RedisCfg
	Kafka           *KafkaCfg
	Minio           *MinIOCfg
	ShutdownTimeout time.Duration
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type GRPCConfig struct {
	Port        string
	NetworkMode string
}

type DBCfg struct {
	Driver     string
	Postgres   *PGDBCfg // nil для sqlite
	SQLitePath string
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// DSN собирает строку подключения в формате key=value.
func (c *PGDBCfg) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
	)
}

type EmbeddingCfg struct {
	Provider        string
	APIKey          string
	BaseURL         string // пусто — адрес по умолчанию
	Model           string
	Dimensions      int
	Timeout         time.Duration // таймаут одного вызова
	MaxRetries      int
	RetryBase       time.Duration
	RetryMax        time.Duration
	RPS             float64 // 0 — без ограничения
	Burst           int
	BreakerFailures uint32 // подряд идущих ошибок до размыкания
	BreakerTimeout  time.Duration
}

type SearchCfg struct {
	Backend        string
	Distance       string
	DefaultLimit   int
	MaxLimit       int
	RecommendLimit int
}

type JobCfg struct {
	BatchSize int
	LockTTL   time.Duration
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	ProductTTL  time.Duration
}

type KafkaCfg struct {
	Topic             string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

type MinIOCfg struct {
	MinioEndpoint     string
	MinioRootUser     string
	MinioRootPassword string
	MinioUseSSL       bool
}

// Load безопасно загружает конфигурацию и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	db, err := loadDBCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	embedding, err := loadEmbeddingCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	search, err := loadSearchCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	job, err := loadJobCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	minio, err := loadMinIOCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log, embedding.Dimensions)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	kafka, err := loadKafkaCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if search.Backend == BackendQdrant && qdrant == nil {
		return nil, e.Wrap("SEARCH_BACKEND", fmt.Errorf("%w: qdrant backend requires QDRANT_HOST", e.ErrMissingEnvVariable))
	}

	if search.Backend == BackendPgvector && db.Driver != DriverPostgres {
		return nil, e.Wrap("SEARCH_BACKEND", fmt.Errorf("%w: pgvector backend requires DB_DRIVER=postgres", e.ErrIncorrectEnvVariable))
	}

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		log.Errorf(err, "invalid SHUTDOWN_TIMEOUT")
		return nil, err
	}

	return &Config{
		Http:            http,
		Grpc:            loadGRPCConfig(),
		Db:              db,
		Embedding:       embedding,
		Search:          search,
		Job:             job,
		Qdrant:          qdrant,
		Redis:           redis,
		Kafka:           kafka,
		Minio:           minio,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func loadDBCfg(log logger.Logger) (*DBCfg, error) {
	const defaultSQLitePath = "shop.db"

	driver := strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverPostgres))
	switch driver {
	case DriverSQLite:
		return &DBCfg{
			Driver:     DriverSQLite,
			SQLitePath: getEnvOrDefault("SQLITE_PATH", defaultSQLitePath),
		}, nil
	case DriverPostgres:
		pg, err := loadPGDBCfg(log)
		if err != nil {
			return nil, err
		}

		return &DBCfg{Driver: DriverPostgres, Postgres: pg}, nil
	default:
		err := fmt.Errorf("%w: DB_DRIVER=%q", e.ErrIncorrectEnvVariable, driver)
		log.Errorf(err, "invalid DB_DRIVER")
		return nil, err
	}
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost     = "localhost"
		defaultPort     = "5432"
		defaultSSLMode  = "disable"
		defaultMaxConns = 10
	)

	user, err := requireEnv(log, "POSTGRES_USER")
	if err != nil {
		return nil, err
	}

	password, err := requireEnv(log, "POSTGRES_PASSWORD")
	if err != nil {
		return nil, err
	}

	dbName, err := requireEnv(log, "POSTGRES_DB")
	if err != nil {
		return nil, err
	}

	maxConns, err := parseIntEnv("POSTGRES_MAX_CONNS", defaultMaxConns)
	if err != nil || maxConns <= 0 {
		log.Errorf(err, "invalid POSTGRES_MAX_CONNS")
		return nil, e.Wrap("POSTGRES_MAX_CONNS", e.ErrIncorrectEnvVariable)
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),
		MaxConns: int32(maxConns),
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 30 * time.Second
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("HTTP_PORT", defaultPort)

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadGRPCConfig() *GRPCConfig {
	const (
		defaultPort        = "8091"
		defaultNetworkMode = "tcp"
	)

	return &GRPCConfig{
		Port:        getEnvOrDefault("GRPC_PORT", defaultPort),
		NetworkMode: getEnvOrDefault("GRPC_NETWORK_MODE", defaultNetworkMode),
	}
}

func loadEmbeddingCfg(log logger.Logger) (*EmbeddingCfg, error) {
	const (
		defaultModel           = "text-embedding-3-small"
		defaultDimensions      = 1536
		defaultTimeout         = 10 * time.Second
		defaultMaxRetries      = 2
		defaultRetryBase       = 200 * time.Millisecond
		defaultRetryMax        = 2 * time.Second
		defaultRPS             = 5.0
		defaultBurst           = 1
		defaultBreakerFailures = 5
		defaultBreakerTimeout  = 30 * time.Second
	)

	provider := strings.ToLower(getEnvOrDefault("EMBEDDING_PROVIDER", ProviderOpenAI))
	if provider != ProviderOpenAI && provider != ProviderHash {
		err := fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", e.ErrIncorrectEnvVariable, provider)
		log.Errorf(err, "invalid EMBEDDING_PROVIDER")
		return nil, err
	}

	apiKey := getEnv("OPENAI_API_KEY")
	if provider == ProviderOpenAI && apiKey == "" {
		err := fmt.Errorf("%w: OPENAI_API_KEY", e.ErrMissingEnvVariable)
		log.Errorf(err, "missing OPENAI_API_KEY")
		return nil, err
	}

	dimensions, err := parseIntEnv("EMBEDDING_DIMENSIONS", defaultDimensions)
	if err != nil || dimensions <= 0 {
		log.Errorf(err, "invalid EMBEDDING_DIMENSIONS")
		return nil, e.Wrap("EMBEDDING_DIMENSIONS", e.ErrIncorrectEnvVariable)
	}

	timeout, err := parseDurationEnv("EMBEDDING_TIMEOUT", defaultTimeout)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_TIMEOUT")
		return nil, err
	}

	maxRetries, err := parseIntEnv("EMBEDDING_MAX_RETRIES", defaultMaxRetries)
	if err != nil || maxRetries < 0 {
		log.Errorf(err, "invalid EMBEDDING_MAX_RETRIES")
		return nil, e.Wrap("EMBEDDING_MAX_RETRIES", e.ErrIncorrectEnvVariable)
	}

	retryBase, err := parseDurationEnv("EMBEDDING_RETRY_BASE", defaultRetryBase)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_RETRY_BASE")
		return nil, err
	}

	retryMax, err := parseDurationEnv("EMBEDDING_RETRY_MAX", defaultRetryMax)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_RETRY_MAX")
		return nil, err
	}

	rps, err := parseFloatEnv("EMBEDDING_RPS", defaultRPS)
	if err != nil || rps < 0 {
		log.Errorf(err, "invalid EMBEDDING_RPS")
		return nil, e.Wrap("EMBEDDING_RPS", e.ErrIncorrectEnvVariable)
	}

	burst, err := parseIntEnv("EMBEDDING_BURST", defaultBurst)
	if err != nil || burst <= 0 {
		log.Errorf(err, "invalid EMBEDDING_BURST")
		return nil, e.Wrap("EMBEDDING_BURST", e.ErrIncorrectEnvVariable)
	}

	breakerFailures, err := parseIntEnv("EMBEDDING_BREAKER_FAILURES", defaultBreakerFailures)
	if err != nil || breakerFailures <= 0 {
		log.Errorf(err, "invalid EMBEDDING_BREAKER_FAILURES")
		return nil, e.Wrap("EMBEDDING_BREAKER_FAILURES", e.ErrIncorrectEnvVariable)
	}

	breakerTimeout, err := parseDurationEnv("EMBEDDING_BREAKER_TIMEOUT", defaultBreakerTimeout)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_BREAKER_TIMEOUT")
		return nil, err
	}

	return &EmbeddingCfg{
		Provider:        provider,
		APIKey:          apiKey,
		BaseURL:         getEnv("OPENAI_BASE_URL"),
		Model:           getEnvOrDefault("EMBEDDING_MODEL", defaultModel),
		Dimensions:      dimensions,
		Timeout:         timeout,
		MaxRetries:      maxRetries,
		RetryBase:       retryBase,
		RetryMax:        retryMax,
		RPS:             rps,
		Burst:           burst,
		BreakerFailures: uint32(breakerFailures),
		BreakerTimeout:  breakerTimeout,
	}, nil
}

func loadSearchCfg(log logger.Logger) (*SearchCfg, error) {
	const (
		defaultLimit          = 5
		defaultMaxLimit       = 50
		defaultRecommendLimit = 8
	)

	backend := strings.ToLower(getEnvOrDefault("SEARCH_BACKEND", BackendAuto))
	switch backend {
	case BackendAuto, BackendPgvector, BackendQdrant, BackendBruteForce:
	default:
		err := fmt.Errorf("%w: SEARCH_BACKEND=%q", e.ErrUnknownBackend, backend)
		log.Errorf(err, "invalid SEARCH_BACKEND")
		return nil, err
	}

	distance := strings.ToLower(getEnvOrDefault("SEARCH_DISTANCE", DistanceCosine))
	if distance != DistanceCosine && distance != DistanceL2 {
		err := fmt.Errorf("%w: SEARCH_DISTANCE=%q", e.ErrIncorrectEnvVariable, distance)
		log.Errorf(err, "invalid SEARCH_DISTANCE")
		return nil, err
	}

	limit, err := parseIntEnv("SEARCH_DEFAULT_LIMIT", defaultLimit)
	if err != nil || limit <= 0 {
		log.Errorf(err, "invalid SEARCH_DEFAULT_LIMIT")
		return nil, e.Wrap("SEARCH_DEFAULT_LIMIT", e.ErrIncorrectEnvVariable)
	}

	maxLimit, err := parseIntEnv("SEARCH_MAX_LIMIT", defaultMaxLimit)
	if err != nil || maxLimit < limit {
		log.Errorf(err, "invalid SEARCH_MAX_LIMIT")
		return nil, e.Wrap("SEARCH_MAX_LIMIT", e.ErrIncorrectEnvVariable)
	}

	recommendLimit, err := parseIntEnv("RECOMMEND_DEFAULT_LIMIT", defaultRecommendLimit)
	if err != nil || recommendLimit <= 0 || recommendLimit > maxLimit {
		log.Errorf(err, "invalid RECOMMEND_DEFAULT_LIMIT")
		return nil, e.Wrap("RECOMMEND_DEFAULT_LIMIT", e.ErrIncorrectEnvVariable)
	}

	return &SearchCfg{
		Backend:        backend,
		Distance:       distance,
		DefaultLimit:   limit,
		MaxLimit:       maxLimit,
		RecommendLimit: recommendLimit,
	}, nil
}

func loadJobCfg(log logger.Logger) (*JobCfg, error) {
	const (
		defaultBatchSize = 10
		defaultLockTTL   = 2 * time.Minute
	)

	batchSize, err := parseIntEnv("EMBEDDING_BATCH_SIZE", defaultBatchSize)
	if err != nil || batchSize <= 0 {
		log.Errorf(err, "invalid EMBEDDING_BATCH_SIZE")
		return nil, e.Wrap("EMBEDDING_BATCH_SIZE", e.ErrIncorrectEnvVariable)
	}

	lockTTL, err := parseDurationEnv("EMBEDDING_LOCK_TTL", defaultLockTTL)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_LOCK_TTL")
		return nil, err
	}

	return &JobCfg{BatchSize: batchSize, LockTTL: lockTTL}, nil
}

func loadQdrantCfg(log logger.Logger, dimensions int) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = 6334
		defaultCollection     = "products"
	)

	host := getEnv("QDRANT_HOST")
	if host == "" {
		return nil, nil
	}

	port, err := parseIntEnv("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_GRPC_PORT")
		return nil, err
	}

	useTLS, err := parseBoolEnv("QDRANT_USE_TLS", false)
	if err != nil {
		log.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 host,
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           uint64(dimensions),
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultProductTTL   = 3 * time.Minute
	)

	addr := getEnv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	db, err := parseIntEnv("REDIS_DB_ID", defaultDB)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	productTTL, err := parseDurationEnv("PRODUCT_TTL", defaultProductTTL)
	if err != nil {
		log.Errorf(err, "invalid PRODUCT_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        addr,
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		ProductTTL:  productTTL,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultTopic             = "product.embeddings.updated"
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultWriteTimeout      = 5 * time.Second
	)

	brokerStr := getEnv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, nil
	}

	brokers := make([]string, 0)
	for _, b := range strings.Split(brokerStr, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	writeTimeout, err := parseDurationEnv("KAFKA_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		return nil, e.Wrap("KAFKA_WRITE_TIMEOUT", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             getEnvOrDefault("KAFKA_TOPIC", defaultTopic),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),
		WriteTimeout:      writeTimeout,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	endpoint := getEnv("MINIO_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", false)
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     endpoint,
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func requireEnv(log logger.Logger, key string) (string, error) {
	value := getEnv(key)
	if value == "" {
		err := fmt.Errorf("%w: %s", e.ErrMissingEnvVariable, key)
		log.Errorf(err, "missing %s", key)
		return "", err
	}

	return value, nil
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return f, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return b, nil
}
