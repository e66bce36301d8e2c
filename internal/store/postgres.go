package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/greenhaul/route-planner/internal/db"
	"github.com/greenhaul/route-planner/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgRunColumns = `id, order_sheet, departure, status, COALESCE(summary::text, ''), path, COALESCE(error, ''), created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, order_sheet, departure, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_run":           `SELECT ` + pgRunColumns + ` FROM runs WHERE id = $1`,
	"list_stops":        `SELECT stop_rank, customer, country, postal_code, lat, lon, distance_km, hours FROM run_stops WHERE run_id = $1 ORDER BY stop_rank`,
	"get_cached_postal": `SELECT place_name, lat, lon FROM postal_cache WHERE country = $1 AND postal_code = $2`,
	"set_cached_postal": pgPostalUpsert,
}

const pgPostalUpsert = `INSERT INTO postal_cache (country, postal_code, place_name, lat, lon, cached_at) VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (country, postal_code) DO UPDATE SET place_name = EXCLUDED.place_name, lat = EXCLUDED.lat, lon = EXCLUDED.lon, cached_at = EXCLUDED.cached_at`

var stopColumns = []string{"run_id", "stop_rank", "customer", "country", "postal_code", "lat", "lon", "distance_km", "hours"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				// Tables may not exist before the first migration.
				zap.L().Debug("postgres: prepare skipped", zap.String("statement", name), zap.Error(err))
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	order_sheet TEXT NOT NULL,
	departure   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'planning',
	summary     JSONB,
	path        BYTEA,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_stops (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	stop_rank   INTEGER NOT NULL,
	customer    TEXT NOT NULL,
	country     TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
	hours       DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, stop_rank)
);

CREATE TABLE IF NOT EXISTS postal_cache (
	country     TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	place_name  TEXT NOT NULL DEFAULT '',
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	cached_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (country, postal_code)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, orderSheet, departure string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, order_sheet, departure, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, orderSheet, departure, string(model.RunStatusPlanning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:         id,
		OrderSheet: orderSheet,
		Departure:  departure,
		Status:     model.RunStatusPlanning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, stops []model.RunStop, path *geom.LineString) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	pathWKB, err := encodePath(path)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, path = $3, error = NULL, updated_at = $4 WHERE id = $5`,
		string(model.RunStatusComplete), summaryJSON, pathWKB, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM run_stops WHERE run_id = $1`, runID); err != nil {
		return eris.Wrapf(err, "postgres: clear stops %s", runID)
	}

	rows := make([][]any, len(stops))
	for i, st := range stops {
		rows[i] = []any{runID, st.Rank, st.Customer, st.Country, st.PostalCode, st.Lat, st.Lon, st.DistanceKm, st.Hours}
	}
	if _, err := db.CopyFrom(ctx, tx, "run_stops", stopColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert stops %s", runID)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errorText(cause), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT stop_rank, customer, country, postal_code, lat, lon, distance_km, hours FROM run_stops WHERE run_id = $1 ORDER BY stop_rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list stops %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var st model.RunStop
		if err := rows.Scan(&st.Rank, &st.Customer, &st.Country, &st.PostalCode, &st.Lat, &st.Lon, &st.DistanceKm, &st.Hours); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stop")
		}
		r.Stops = append(r.Stops, st)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list stops iterate")
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status, summaryJSON string
	var pathWKB []byte

	if err := row.Scan(&r.ID, &r.OrderSheet, &r.Departure, &status, &summaryJSON, &pathWKB, &r.Error, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	if summaryJSON != "" && summaryJSON != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON), r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	path, err := decodePath(pathWKB)
	if err != nil {
		return nil, err
	}
	r.Path = path
	return &r, nil
}

func (s *PostgresStore) GetCachedPostal(ctx context.Context, country, postalCode string) (*model.PostalLocation, error) {
	loc := model.PostalLocation{Country: country, PostalCode: postalCode}
	err := s.pool.QueryRow(ctx,
		`SELECT place_name, lat, lon FROM postal_cache WHERE country = $1 AND postal_code = $2`,
		country, postalCode,
	).Scan(&loc.PlaceName, &loc.Lat, &loc.Lon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached postal")
	}
	return &loc, nil
}

func (s *PostgresStore) SetCachedPostal(ctx context.Context, loc model.PostalLocation) error {
	_, err := s.pool.Exec(ctx, pgPostalUpsert,
		loc.Country, loc.PostalCode, loc.PlaceName, loc.Lat, loc.Lon, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: set cached postal")
}

// ImportPostal bulk-loads a dataset through a COPY into a temp table.
func (s *PostgresStore) ImportPostal(ctx context.Context, locs []model.PostalLocation) (int64, error) {
	rows := make([][]any, len(locs))
	for i, loc := range locs {
		rows[i] = []any{loc.Country, loc.PostalCode, loc.PlaceName, loc.Lat, loc.Lon}
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "postal_cache",
		Columns:      []string{"country", "postal_code", "place_name", "lat", "lon"},
		ConflictKeys: []string{"country", "postal_code"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import postal")
}
