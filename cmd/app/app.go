package main

import (
	"os"

	"github.com/DRSN-tech/shop-recommender/internal/app"
	config "github.com/DRSN-tech/shop-recommender/internal/cfg"
	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

// main запускает HTTP и gRPC серверы.
//
//	@title			Shop recommender API
//	@version		1.0
//	@description	Поиск похожих товаров и рекомендации по эмбеддингам.
//	@BasePath		/api/v1
func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
