package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"wayfarer/internal/geo"
	"wayfarer/internal/profile"
	"wayfarer/pkg/platform/sentinel"
	txcontext "wayfarer/pkg/platform/tx"
)

// PostgresStore persists profiles in PostgreSQL. This store is pure I/O; the
// eligibility and scoring rules belong to the claim service.
//
// Reads and writes join an ambient sql.Tx from context when present, which is
// how the claim coordinator gets its snapshot-isolated read-then-write over
// this table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, p *profile.Profile) error {
	query := `
		INSERT INTO profiles (id, username, email, points, visited_cities, cities_visited, image_url, created_at)
		VALUES ($1, $2, $3, 0, '{}', 0, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, p.ID, p.Username, p.Email, p.ImageURL, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	query := `
		SELECT id, username, email, points, home_lat, home_lon, visited_cities, cities_visited, image_url, created_at
		FROM profiles
		WHERE id = $1
	`
	var (
		p                geo.Coordinate
		homeLat, homeLon sql.NullFloat64
		out              profile.Profile
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, userID).Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&out.Points,
		&homeLat,
		&homeLon,
		pq.Array(&out.VisitedCities),
		&out.CitiesVisited,
		&out.ImageURL,
		&out.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if homeLat.Valid && homeLon.Valid {
		p = geo.Coordinate{Lat: homeLat.Float64, Lon: homeLon.Float64}
		out.Home = &p
	}
	return &out, nil
}

// SetHome is a compare-and-set: it only succeeds while home is still unset, so
// two racing requests cannot both establish a home.
func (s *PostgresStore) SetHome(ctx context.Context, userID string, home geo.Coordinate) error {
	query := `
		UPDATE profiles
		SET home_lat = $2, home_lon = $3
		WHERE id = $1 AND home_lat IS NULL
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, userID, home.Lat, home.Lon)
	if err != nil {
		return fmt.Errorf("set home: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Distinguish "missing profile" from "home already set".
		var exists bool
		if err := s.execer(ctx).QueryRowContext(ctx, `SELECT TRUE FROM profiles WHERE id = $1`, userID).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("set home: %w", err)
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) SetImage(ctx context.Context, userID string, imageURL string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `UPDATE profiles SET image_url = $2 WHERE id = $1`, userID, imageURL)
	if err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ApplyClaim performs the combined claim mutation as a single UPDATE so the
// points accumulator, the visited set, and the counter cannot diverge. The
// membership guard makes a replay a no-op at the SQL level as well; the
// coordinator treats the zero-row case as a conflict fact.
func (s *PostgresStore) ApplyClaim(ctx context.Context, userID, cityID string, award int64) error {
	query := `
		UPDATE profiles
		SET points = points + $2,
		    visited_cities = array_append(visited_cities, $3),
		    cities_visited = cities_visited + 1
		WHERE id = $1 AND NOT ($3 = ANY(visited_cities))
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, userID, award, cityID)
	if err != nil {
		return fmt.Errorf("apply claim: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}
