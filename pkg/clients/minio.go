package clients

import (
	"context"
	"errors"
	"time"

	config "github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioHealthInterval = 10 * time.Second

var errMinIOOffline = errors.New("minio is offline")

// MinIOClient — клиент объектного хранилища с фоновой проверкой доступности.
type MinIOClient struct {
	Client     *minio.Client
	stopHealth context.CancelFunc
}

func NewMinIOClient(cfg *config.MinIOCfg) (*MinIOClient, error) {
	mc, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioRootUser, cfg.MinioRootPassword, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	stop, err := mc.HealthCheck(minioHealthInterval)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &MinIOClient{Client: mc, stopHealth: stop}, nil
}

// Ping сообщает результат последней фоновой проверки.
func (m *MinIOClient) Ping(context.Context) error {
	if m.Client.IsOffline() {
		return e.Wrap(whereami.WhereAmI(), errMinIOOffline)
	}

	return nil
}

func (m *MinIOClient) Close() {
	m.stopHealth()
}
