package enrichment

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/aijobs"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/assets"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/database"
)

// TxStores are the stores bound to one transaction.
type TxStores struct {
	Assets AssetStore
	Jobs   JobStore
}

// TxRunner runs fn in a single transaction; an error from fn rolls it back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(TxStores) error) error
}

// PgTx runs orchestrator writes that must land together in a pgx transaction.
type PgTx struct {
	pool   *pgxpool.Pool
	assets *assets.Repository
	jobs   *aijobs.Repository
}

// NewPgTx creates a TxRunner backed by pool.
func NewPgTx(pool *pgxpool.Pool, assetRepo *assets.Repository, jobRepo *aijobs.Repository) *PgTx {
	return &PgTx{pool: pool, assets: assetRepo, jobs: jobRepo}
}

// InTx implements TxRunner.
func (p *PgTx) InTx(ctx context.Context, fn func(TxStores) error) error {
	return database.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(TxStores{Assets: p.assets.WithTx(tx), Jobs: p.jobs.WithTx(tx)})
	})
}
