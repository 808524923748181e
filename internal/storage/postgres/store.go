package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RevelationOfTuring/v3-periphery/internal/model"
)

// Store provides Postgres persistence for pools and mint receipts.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	chain_id         BIGINT  NOT NULL,
	pool_address     TEXT    NOT NULL,
	token0           TEXT    NOT NULL,
	token1           TEXT    NOT NULL,
	fee              INTEGER NOT NULL,
	tick_spacing     INTEGER NOT NULL,
	first_seen_block BIGINT  NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address)
);

CREATE TABLE IF NOT EXISTS mint_receipts (
	chain_id       BIGINT  NOT NULL,
	block_number   BIGINT  NOT NULL,
	step           INTEGER NOT NULL,
	block_ts       BIGINT  NOT NULL,
	action         TEXT    NOT NULL,
	caller         TEXT    NOT NULL,
	pool_address   TEXT,
	token0         TEXT,
	token1         TEXT,
	fee            INTEGER,
	tick_lower     INTEGER,
	tick_upper     INTEGER,
	sqrt_price_x96 NUMERIC,
	liquidity      NUMERIC,
	amount0        NUMERIC,
	amount1        NUMERIC,
	status         TEXT    NOT NULL,
	error          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, block_number, step)
);
`

// EnsureSchema creates the tables the store writes to.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				chain_id, pool_address, token0, token1, fee, tick_spacing, first_seen_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tick_spacing = EXCLUDED.tick_spacing,
				first_seen_block = LEAST(pools.first_seen_block, EXCLUDED.first_seen_block),
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.Address,
			pool.Token0,
			pool.Token1,
			pool.Fee,
			pool.TickSpacing,
			int64(pool.FirstSeenBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertMintReceipts stores receipts. Replaying a run overwrites receipts
// with the same (chain, block, step).
func (s *Store) InsertMintReceipts(ctx context.Context, receipts []model.MintReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range receipts {
		batch.Queue(`
			INSERT INTO mint_receipts (
				chain_id, block_number, step, block_ts, action, caller, pool_address, token0, token1, fee,
				tick_lower, tick_upper, sqrt_price_x96, liquidity, amount0, amount1, status, error, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13::text::numeric,$14::text::numeric,$15::text::numeric,$16::text::numeric,$17,$18,now())
			ON CONFLICT (chain_id, block_number, step)
			DO UPDATE SET
				block_ts = EXCLUDED.block_ts,
				action = EXCLUDED.action,
				caller = EXCLUDED.caller,
				pool_address = EXCLUDED.pool_address,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tick_lower = EXCLUDED.tick_lower,
				tick_upper = EXCLUDED.tick_upper,
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				liquidity = EXCLUDED.liquidity,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				status = EXCLUDED.status,
				error = EXCLUDED.error
		`,
			int64(r.ChainID),
			int64(r.BlockNumber),
			r.Step,
			int64(r.Timestamp),
			r.Action,
			r.Caller,
			nullable(r.Pool),
			nullable(r.Token0),
			nullable(r.Token1),
			r.Fee,
			r.TickLower,
			r.TickUpper,
			nullable(r.SqrtPriceX96),
			nullable(r.Liquidity),
			nullable(r.Amount0),
			nullable(r.Amount1),
			r.Status,
			nullable(r.Error),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range receipts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// CountMintReceipts returns how many receipts a chain has with the given status.
func (s *Store) CountMintReceipts(ctx context.Context, chainID uint64, status string) (int64, error) {
	var n int64
	row := s.pool.QueryRow(ctx, `SELECT count(*) FROM mint_receipts WHERE chain_id=$1 AND status=$2`, int64(chainID), status)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
