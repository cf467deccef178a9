package e

import "fmt"

var (
	// Внешний сервис эмбеддингов не вернул вектор
	ErrProviderFailure = fmt.Errorf("embedding provider failure")
	ErrEmptyText       = fmt.Errorf("text to embed is empty")
	ErrCircuitOpen     = fmt.Errorf("embedding provider circuit is open")

	// Внутренние ошибки с векторами
	ErrEmptyVectors         = fmt.Errorf("empty vectors")
	ErrVectorEmbeddingEmpty = fmt.Errorf("vector embedding is empty")
	ErrUnknownBackend       = fmt.Errorf("unknown vector backend")
	ErrBackendUnavailable   = fmt.Errorf("vector backend is not available")

	// Каталог
	ErrProductNotFound = fmt.Errorf("product not found")
	ErrNoProducts      = fmt.Errorf("no products requested")
	ErrItemClaimed     = fmt.Errorf("product is being processed by another run")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
	ErrMissingEnvVariable   = fmt.Errorf("missing environment variable")

	// Импорт каталога
	ErrInvalidPrice     = fmt.Errorf("invalid price")
	ErrInvalidProductID = fmt.Errorf("invalid product id")
	ErrMissingColumn    = fmt.Errorf("missing required csv column")
	ErrUnsupportedURL   = fmt.Errorf("unsupported catalog source")

	// 400 Bad Request
	ErrStatusBadRequest = fmt.Errorf("bad request")
	ErrEmptyQuery       = fmt.Errorf("query is required")
	ErrInvalidLimit     = fmt.Errorf("limit must be a positive integer")
	ErrInvalidCart      = fmt.Errorf("invalid cart")
	ErrInvalidQuantity  = fmt.Errorf("quantity must be positive")
	ErrInvalidBody      = fmt.Errorf("invalid request body")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
