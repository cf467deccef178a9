// Package tr описывает менеджер транзакций, через который usecase-слой
// объединяет несколько операций репозиториев в одну транзакцию.
package tr

import (
	"context"
	"database/sql"

	"github.com/DRSN-tech/shop-recommender/pkg/e"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// Manager выполняет fn в транзакции, доступной репозиториям через ctx.
type Manager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewPgxManager создаёт менеджер транзакций поверх пула pgx.
// Репозитории получают транзакцию через trmpgx.DefaultCtxGetter.
func NewPgxManager(pool *pgxpool.Pool) (*manager.Manager, error) {
	m, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return m, nil
}

// NewSQLManager создаёт менеджер транзакций поверх database/sql (SQLite).
// Репозитории получают транзакцию через SQLTrOrDB.
func NewSQLManager(db *sql.DB) (*manager.Manager, error) {
	m, err := manager.New(trmsql.NewDefaultFactory(db))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return m, nil
}

// TrOrDB возвращает транзакцию из ctx, если она открыта менеджером, иначе сам пул.
func TrOrDB(ctx context.Context, pool *pgxpool.Pool) trmpgx.Tr {
	return trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, pool)
}

// SQLTrOrDB — то же для database/sql.
func SQLTrOrDB(ctx context.Context, db *sql.DB) trmsql.Tr {
	return trmsql.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
}
