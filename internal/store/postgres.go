package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/i474232898/weatheriq/internal/weather"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS weather_data (
    id BIGSERIAL PRIMARY KEY,
    city TEXT NOT NULL,
    state TEXT,
    temperature DOUBLE PRECISION,
    humidity DOUBLE PRECISION,
    pressure DOUBLE PRECISION,
    wind_speed DOUBLE PRECISION,
    weather_description TEXT,
    air_quality_index INTEGER,
    recorded_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS weather_embeddings (
    id BIGSERIAL PRIMARY KEY,
    location TEXT NOT NULL,
    description TEXT NOT NULL,
    embedding vector(%d) NOT NULL
);
`

// PostgresStore is a Backend on PostgreSQL with the pgvector extension.
// It opens a fresh connection for every operation and closes it afterwards;
// nothing is pooled between calls.
type PostgresStore struct {
	dsn string
	dim int
}

// NewPostgresStore validates the DSN without connecting.
func NewPostgresStore(dsn string, dim int) (*PostgresStore, error) {
	if dsn == "" {
		return nil, storageErr(weather.OpConnect, errors.New("postgres dsn is empty"))
	}
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return nil, storageErr(weather.OpConnect, err)
	}
	return &PostgresStore{dsn: dsn, dim: dim}, nil
}

// EnsureSchema installs the vector extension and creates both tables.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return storageErr(weather.OpConnect, err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return storageErr(weather.OpSchema, err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf(postgresSchema, s.dim)); err != nil {
		return storageErr(weather.OpSchema, err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return nil }

// InsertObservation appends obs in its own transaction.
func (s *PostgresStore) InsertObservation(ctx context.Context, obs weather.Observation) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO weather_data (
    city, state, temperature, humidity, pressure, wind_speed,
    weather_description, air_quality_index, recorded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			obs.City, obs.State, obs.Temperature, obs.Humidity, obs.Pressure, obs.WindSpeed,
			obs.Description, obs.AirQuality, obs.Timestamp.UTC())
		return err
	})
}

// InsertEmbedding appends rec in its own transaction.
func (s *PostgresStore) InsertEmbedding(ctx context.Context, rec weather.EmbeddingRecord) error {
	if err := checkDimension(rec.Embedding, s.dim); err != nil {
		return storageErr(weather.OpExec, err)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO weather_embeddings (location, description, embedding) VALUES ($1, $2, $3)`,
			rec.Location, rec.Description, pgvector.NewVector(rec.Embedding))
		return err
	})
}

// Nearest orders the embedding table by pgvector L2 distance (<->) to vec.
func (s *PostgresStore) Nearest(ctx context.Context, vec []float32, k int) ([]weather.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := checkDimension(vec, s.dim); err != nil {
		return nil, storageErr(weather.OpQuery, err)
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, `
SELECT location, description, embedding <-> $1 AS distance
FROM weather_embeddings
ORDER BY distance ASC, id ASC
LIMIT $2`, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, storageErr(weather.OpQuery, err)
	}
	defer rows.Close()

	var out []weather.QueryResult
	for rows.Next() {
		var r weather.QueryResult
		if err := rows.Scan(&r.Location, &r.Description, &r.Distance); err != nil {
			return nil, storageErr(weather.OpQuery, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(weather.OpQuery, err)
	}
	return out, nil
}

func (s *PostgresStore) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return nil, storageErr(weather.OpConnect, err)
	}
	if err := pgxvec.RegisterTypes(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, storageErr(weather.OpConnect, err)
	}
	return conn, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return storageErr(weather.OpBegin, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return storageErr(weather.OpExec, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(weather.OpCommit, err)
	}
	return nil
}

var _ Backend = (*PostgresStore)(nil)
