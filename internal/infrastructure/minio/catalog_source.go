package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/e"
	"github.com/DRSN-tech/shop-recommender/pkg/jitter"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/minio/minio-go/v7"
)

const s3Scheme = "s3"

// Ошибки, после которых повтор бессмысленен
var permanentCodes = map[string]struct{}{
	"NoSuchKey":    {},
	"NoSuchBucket": {},
	"AccessDenied": {},
}

// CatalogSource открывает CSV каталога: локальный файл или объект s3://bucket/key в MinIO.
type CatalogSource struct {
	objects usecase.ObjectRepository // nil, если MinIO не настроен
	backoff jitter.Backoff
	logger  logger.Logger
}

func NewCatalogSource(objects usecase.ObjectRepository, logger logger.Logger) *CatalogSource {
	return &CatalogSource{
		objects: objects,
		backoff: jitter.Backoff{
			Base:       200 * time.Millisecond,
			Max:        2 * time.Second,
			MaxRetries: 3,
			Factor:     0.2,
		},
		logger: logger,
	}
}

func (c *CatalogSource) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	const op = "CatalogSource.Open"

	location = strings.TrimSpace(location)
	if location == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: empty location", e.ErrUnsupportedURL))
	}

	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || isWindowsDrive(u.Scheme) {
		return c.openFile(op, location)
	}

	switch u.Scheme {
	case "file":
		return c.openFile(op, u.Path)
	case s3Scheme:
		return c.openObject(ctx, op, u)
	default:
		return nil, e.Wrap(op, fmt.Errorf("%w: %s", e.ErrUnsupportedURL, u.Scheme))
	}
}

func (c *CatalogSource) openFile(op, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return f, nil
}

func (c *CatalogSource) openObject(ctx context.Context, op string, u *url.URL) (io.ReadCloser, error) {
	if c.objects == nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: object storage is not configured", e.ErrUnsupportedURL))
	}

	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, e.Wrap(op, fmt.Errorf("%w: expected s3://bucket/key, got %s", e.ErrUnsupportedURL, u.String()))
	}

	var rc io.ReadCloser
	err := c.backoff.Retry(ctx, retryable, func(ctx context.Context) error {
		obj, err := c.objects.Get(ctx, bucket, key)
		if err != nil {
			c.logger.Warnf("failed to open s3://%s/%s: %v", bucket, key, err)
			return err
		}

		rc = obj
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return rc, nil
}

func retryable(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return true
	}

	_, permanent := permanentCodes[resp.Code]
	return !permanent
}

// isWindowsDrive отличает путь вида C:\catalog.csv от схемы URL.
func isWindowsDrive(scheme string) bool {
	return len(scheme) == 1
}
