// Command embeddings — обслуживание каталога: генерация эмбеддингов, импорт CSV и пробный поиск.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DRSN-tech/shop-recommender/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewSlogLogger()
	a := &cli{logger: log}
	defer a.close()

	if err := NewRootCmd(a).ExecuteContext(ctx); err != nil {
		log.Errorf(err, "command failed")
		stop()
		a.close()
		os.Exit(1)
	}
}
