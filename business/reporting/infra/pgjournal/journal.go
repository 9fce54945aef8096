// Package pgjournal stores journal rows in PostgreSQL.
package pgjournal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-executor/business/reporting/app"
	"github.com/fd1az/arbitrage-executor/business/reporting/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/asset"
)

const schema = `
CREATE TABLE IF NOT EXISTS arb_trades (
	trade_index  BIGINT PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	amount_in    NUMERIC(78, 18) NOT NULL,
	profit       NUMERIC(78, 18) NOT NULL,
	gas_used     BIGINT NOT NULL,
	gas_cost     NUMERIC(78, 18) NOT NULL,
	net_profit   NUMERIC(78, 18) NOT NULL,
	block_number BIGINT NOT NULL,
	tx_hash      TEXT NOT NULL,
	withdrawn    BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE TABLE IF NOT EXISTS arb_ticks (
	tick       BIGINT NOT NULL,
	ts         TIMESTAMPTZ NOT NULL,
	offchain   NUMERIC(78, 18) NOT NULL,
	onchain    NUMERIC(78, 18) NOT NULL,
	onchain_ok BOOLEAN NOT NULL
);`

// Journal implements app.Journal on a pgx pool.
type Journal struct {
	pool     *pgxpool.Pool
	decimals uint8
	owned    bool
}

var _ app.Journal = (*Journal)(nil)

// Open connects to dsn and creates the tables if needed.
func Open(ctx context.Context, dsn string, decimals uint8) (*Journal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err), apperror.WithContext("connect postgres"))
	}
	j := &Journal{pool: pool, decimals: decimals, owned: true}
	if err := j.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an existing pool. The caller keeps ownership of it.
func New(pool *pgxpool.Pool, decimals uint8) *Journal {
	return &Journal{pool: pool, decimals: decimals}
}

// Migrate creates the journal tables.
func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.pool.Exec(ctx, schema); err != nil {
		return apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err), apperror.WithContext("create tables"))
	}
	return nil
}

func (j *Journal) WriteDebug(ctx context.Context, r domain.DebugRecord) error {
	_, err := j.pool.Exec(ctx,
		`INSERT INTO arb_ticks (tick, ts, offchain, onchain, onchain_ok) VALUES ($1, $2, $3::numeric, $4::numeric, $5)`,
		int64(r.Tick), r.Timestamp.UTC(),
		asset.FormatUnits(r.Offchain, j.decimals),
		asset.FormatUnits(r.Onchain, j.decimals),
		r.OnchainOK,
	)
	if err != nil {
		return apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("insert tick %d", r.Tick)))
	}
	return nil
}

// WriteTrade inserts the trade. A trade index already present is left as is.
func (j *Journal) WriteTrade(ctx context.Context, t arbDomain.TradeRecord) error {
	txHash := ""
	if len(t.TxHashes) > 0 {
		txHash = t.TxHashes[0].Hex()
	}
	_, err := j.pool.Exec(ctx,
		`INSERT INTO arb_trades
			(trade_index, ts, amount_in, profit, gas_used, gas_cost, net_profit, block_number, tx_hash, withdrawn)
		 VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6::numeric, $7::numeric, $8, $9, $10)
		 ON CONFLICT (trade_index) DO NOTHING`,
		int64(t.Index), t.Timestamp.UTC(),
		asset.FormatUnits(t.AmountIn, j.decimals),
		asset.FormatUnits(t.Profit, j.decimals),
		int64(t.GasUsed),
		asset.FormatUnits(t.GasCost, j.decimals),
		asset.FormatUnits(t.NetProfit, j.decimals),
		int64(t.BlockNumber),
		txHash,
		t.Withdrawn,
	)
	if err != nil {
		return apperror.New(apperror.CodeJournalWriteFailed, apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("insert trade %d", t.Index)))
	}
	return nil
}

// Close releases the pool when the journal opened it.
func (j *Journal) Close() error {
	if j.owned {
		j.pool.Close()
	}
	return nil
}
