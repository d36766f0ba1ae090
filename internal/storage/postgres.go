package storage

import (
	"context"
	"errors"

	"gadget-storefront/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresBridge struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Bridge backed by the storage_entries table.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresBridge{pool: pool, logger: logger}
}

func (r *postgresBridge) Load(ctx context.Context, key string) ([]byte, error) {
	const q = `
SELECT value
FROM storage_entries
WHERE key = $1
`
	var raw []byte
	if err := r.pool.QueryRow(ctx, q, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("storage repo: load", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return raw, nil
}

func (r *postgresBridge) Save(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO storage_entries (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = EXCLUDED.updated_at
`
	if _, err := r.pool.Exec(ctx, q, key, string(value)); err != nil {
		r.logger.Error("storage repo: save", zap.String("key", key), zap.Error(err))
		return err
	}
	r.logger.Debug("storage repo: saved", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (r *postgresBridge) Delete(ctx context.Context, key string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM storage_entries WHERE key = $1`, key)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
