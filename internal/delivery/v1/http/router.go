package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	_ "github.com/DRSN-tech/shop-recommender/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/shop-recommender/internal/usecase"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const healthTimeout = 2 * time.Second

// HealthCheck проверяет одну зависимость (БД, Redis, Qdrant).
type HealthCheck func(ctx context.Context) error

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(searchUC usecase.SearchUC, recommendUC usecase.RecommendUC, checks map[string]HealthCheck) {
	r.router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.router.Handle("/metrics", promhttp.Handler())
	r.router.Get("/healthz", healthHandler(checks, r.logger))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		prHandler := NewProductHandler(searchUC, recommendUC, r.logger)
		registerProductRoutes(v1, prHandler)
	})
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Get("/products/search", prHandler.searchProducts)
	router.Post("/recommendations", prHandler.recommendForProducts)
	router.Post("/cart/recommendations", prHandler.recommendForCart)
}

type healthResponse struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks"`
}

func healthHandler(checks map[string]HealthCheck, log logger.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{OK: true, Checks: make(map[string]string, len(names))}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.Warnf("health check %s failed: %v", name, err)
				resp.OK = false
				resp.Checks[name] = err.Error()
				continue
			}
			resp.Checks[name] = "ok"
		}

		status := http.StatusOK
		if !resp.OK {
			status = http.StatusServiceUnavailable
		}
		WriteJSON(w, status, resp)
	}
}
