package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wayfarer/internal/location"
	"wayfarer/pkg/platform/sentinel"
	txcontext "wayfarer/pkg/platform/tx"
)

// PostgresStore persists location aggregates in PostgreSQL. Reads and writes
// join an ambient sql.Tx from context when present so the claim coordinator's
// discovery check and counter bumps happen inside its transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, cityID string) (*location.Location, error) {
	query := `
		SELECT city_id, city, lat, lon, image_url, total_visits, total_points_awarded, last_visited_at
		FROM locations
		WHERE city_id = $1
	`
	loc, err := scanLocation(s.execer(ctx).QueryRowContext(ctx, query, cityID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

func (s *PostgresStore) Create(ctx context.Context, loc *location.Location) error {
	query := `
		INSERT INTO locations (city_id, city, lat, lon, image_url, total_visits, total_points_awarded, last_visited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		loc.CityID,
		loc.City,
		loc.Coordinate.Lat,
		loc.Coordinate.Lon,
		loc.ImageURL,
		loc.TotalVisits,
		loc.TotalPointsAwarded,
		loc.LastVisitedAt,
	)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordVisit(ctx context.Context, cityID string, award int64, at time.Time) error {
	query := `
		UPDATE locations
		SET total_visits = total_visits + 1,
		    total_points_awarded = total_points_awarded + $2,
		    last_visited_at = $3
		WHERE city_id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, cityID, award, at)
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TopByPoints(ctx context.Context, limit int) ([]location.Location, error) {
	query := `
		SELECT city_id, city, lat, lon, image_url, total_visits, total_points_awarded, last_visited_at
		FROM locations
		ORDER BY total_points_awarded DESC, city_id ASC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top locations: %w", err)
	}
	defer rows.Close()

	var out []location.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("top locations: %w", err)
		}
		out = append(out, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top locations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*location.Location, error) {
	var loc location.Location
	err := row.Scan(
		&loc.CityID,
		&loc.City,
		&loc.Coordinate.Lat,
		&loc.Coordinate.Lon,
		&loc.ImageURL,
		&loc.TotalVisits,
		&loc.TotalPointsAwarded,
		&loc.LastVisitedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
