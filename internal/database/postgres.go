// Package database implements TimescaleDB-backed storage for metering
// points.
//
// Both pipelines write through the same PointRepository interface: the
// live bridge inserts one point per message, the usage backfill writes
// a full batch in one transaction.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/calumet/energy-bridge/internal/models"
)

// ErrDatabaseMissing means the configured database name does not exist
// on the server. Treated as a fatal startup assertion by both commands.
var ErrDatabaseMissing = errors.New("database does not exist")

// PointRepository defines the write-side interface to the series store.
type PointRepository interface {
	// WritePoint inserts a single point. Fire-and-forget from the
	// caller's perspective; no retry is performed here.
	WritePoint(ctx context.Context, p models.Point) error

	// WriteBatch inserts multiple points in a single transaction.
	// Either all points are written or none.
	WriteBatch(ctx context.Context, points []models.Point) error

	// Close releases the underlying connection pool.
	Close() error
}

// PostgresRepo implements PointRepository on TimescaleDB. The
// metering_points hypertable holds (time, measurement, tags, fields)
// with tags and fields stored as jsonb.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo opens the connection pool, verifies connectivity,
// and asserts that dbName exists on the server. The repository never
// creates the database implicitly.
func NewPostgresRepo(connStr, dbName string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	var exists bool
	err = db.QueryRow(
		"SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName,
	).Scan(&exists)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !exists {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrDatabaseMissing, dbName)
	}

	return &PostgresRepo{db: db}, nil
}

const insertPoint = `
    INSERT INTO metering_points (time, measurement, tags, fields)
    VALUES ($1, $2, $3, $4)
`

func (s *PostgresRepo) WritePoint(ctx context.Context, p models.Point) error {
	tags, fields, err := encodePoint(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, insertPoint, p.Time.UTC(), p.Measurement, tags, fields)
	return err
}

func (s *PostgresRepo) WriteBatch(ctx context.Context, points []models.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // rollback if not committed

	stmt, err := tx.PrepareContext(ctx, insertPoint)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		tags, fields, err := encodePoint(p)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, p.Time.UTC(), p.Measurement, tags, fields); err != nil {
			return fmt.Errorf("failed to insert point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func encodePoint(p models.Point) (tags, fields []byte, err error) {
	if tags, err = json.Marshal(p.Tags); err != nil {
		return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	if fields, err = json.Marshal(p.Fields); err != nil {
		return nil, nil, fmt.Errorf("failed to encode fields: %w", err)
	}
	return tags, fields, nil
}

func (s *PostgresRepo) Close() error {
	return s.db.Close()
}

// Compile-time interface implementation check
var _ PointRepository = (*PostgresRepo)(nil)
