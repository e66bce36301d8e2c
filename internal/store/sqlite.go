package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	_ "modernc.org/sqlite"

	"github.com/greenhaul/route-planner/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	order_sheet TEXT NOT NULL,
	departure   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'planning',
	summary     TEXT,
	path        BLOB,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_stops (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	stop_rank   INTEGER NOT NULL,
	customer    TEXT NOT NULL,
	country     TEXT NOT NULL DEFAULT '',
	postal_code TEXT NOT NULL DEFAULT '',
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	distance_km REAL NOT NULL DEFAULT 0,
	hours       REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, stop_rank)
);

CREATE TABLE IF NOT EXISTS postal_cache (
	country     TEXT NOT NULL,
	postal_code TEXT NOT NULL,
	place_name  TEXT NOT NULL DEFAULT '',
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	cached_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (country, postal_code)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, orderSheet, departure string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, order_sheet, departure, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, orderSheet, departure, string(model.RunStatusPlanning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, stops []model.RunStop, path *geom.LineString) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	pathWKB, err := encodePath(path)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, path = ?, error = NULL, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(summaryJSON), pathWKB, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	if err := checkRowsAffected(res, "run", runID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_stops WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear stops %s", runID)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_stops (run_id, stop_rank, customer, country, postal_code, lat, lon, distance_km, hours)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare stop insert")
	}
	defer stmt.Close() //nolint:errcheck
	for _, st := range stops {
		if _, err := stmt.ExecContext(ctx, runID, st.Rank, st.Customer, st.Country, st.PostalCode, st.Lat, st.Lon, st.DistanceKm, st.Hours); err != nil {
			return eris.Wrapf(err, "sqlite: insert stop %d of run %s", st.Rank, runID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errorText(cause), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, order_sheet, departure, status, summary, path, error, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, err
	}

	stops, err := s.listStops(ctx, runID)
	if err != nil {
		return nil, err
	}
	r.Stops = stops
	return r, nil
}

func (s *SQLiteStore) listStops(ctx context.Context, runID string) ([]model.RunStop, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stop_rank, customer, country, postal_code, lat, lon, distance_km, hours
		 FROM run_stops WHERE run_id = ? ORDER BY stop_rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list stops %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var stops []model.RunStop
	for rows.Next() {
		var st model.RunStop
		if err := rows.Scan(&st.Rank, &st.Customer, &st.Country, &st.PostalCode, &st.Lat, &st.Lon, &st.DistanceKm, &st.Hours); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stop")
		}
		stops = append(stops, st)
	}
	return stops, eris.Wrap(rows.Err(), "sqlite: list stops iterate")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetCachedPostal(ctx context.Context, country, postalCode string) (*model.PostalLocation, error) {
	loc := model.PostalLocation{Country: country, PostalCode: postalCode}
	err := s.db.QueryRowContext(ctx,
		`SELECT place_name, lat, lon FROM postal_cache WHERE country = ? AND postal_code = ?`,
		country, postalCode,
	).Scan(&loc.PlaceName, &loc.Lat, &loc.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached postal")
	}
	return &loc, nil
}

const sqlitePostalUpsert = `INSERT INTO postal_cache (country, postal_code, place_name, lat, lon, cached_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (country, postal_code) DO UPDATE SET
		place_name = excluded.place_name,
		lat = excluded.lat,
		lon = excluded.lon,
		cached_at = excluded.cached_at`

func (s *SQLiteStore) SetCachedPostal(ctx context.Context, loc model.PostalLocation) error {
	_, err := s.db.ExecContext(ctx, sqlitePostalUpsert,
		loc.Country, loc.PostalCode, loc.PlaceName, loc.Lat, loc.Lon, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set cached postal")
}

func (s *SQLiteStore) ImportPostal(ctx context.Context, locs []model.PostalLocation) (int64, error) {
	if len(locs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqlitePostalUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare postal import")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var n int64
	for _, loc := range locs {
		if _, err := stmt.ExecContext(ctx, loc.Country, loc.PostalCode, loc.PlaceName, loc.Lat, loc.Lon, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import postal %s-%s", loc.Country, loc.PostalCode)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit postal import")
	}
	return n, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun returns sql.ErrNoRows unwrapped so callers can map it.
func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON, errText sql.NullString
	var pathWKB []byte

	err := row.Scan(&r.ID, &r.OrderSheet, &r.Departure, &r.Status, &summaryJSON, &pathWKB, &errText, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid && summaryJSON.String != "" && summaryJSON.String != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	r.Error = errText.String
	if r.Path, err = decodePath(pathWKB); err != nil {
		return nil, err
	}
	return &r, nil
}
