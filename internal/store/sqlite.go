package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"

	sqlite "modernc.org/sqlite"

	"github.com/i474232898/weatheriq/internal/weather"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS weather_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    city TEXT NOT NULL,
    state TEXT,
    temperature REAL,
    humidity REAL,
    pressure REAL,
    wind_speed REAL,
    weather_description TEXT,
    air_quality_index INTEGER,
    recorded_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS weather_embeddings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location TEXT NOT NULL,
    description TEXT NOT NULL,
    embedding BLOB NOT NULL
)`,
}

var (
	registerOnce sync.Once
	registerErr  error
)

// registerVectorFunctions makes vec_l2(a, b) available on connections opened
// afterwards. It must run before the first sql.Open of the process.
func registerVectorFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2)
	})
	return registerErr
}

func vecL2(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_l2: expected 2 arguments, got %d", len(args))
	}
	a, ok := args[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("vec_l2: unsupported argument type %T; want BLOB", args[0])
	}
	b, ok := args[1].([]byte)
	if !ok {
		return nil, fmt.Errorf("vec_l2: unsupported argument type %T; want BLOB", args[1])
	}
	va, err := decodeEmbedding(a)
	if err != nil {
		return nil, err
	}
	vb, err := decodeEmbedding(b)
	if err != nil {
		return nil, err
	}
	return l2Distance(va, vb)
}

// SQLiteStore is a Backend on the pure-Go modernc.org/sqlite driver. It keeps
// a single connection so ":memory:" databases survive between operations.
type SQLiteStore struct {
	db  *sql.DB
	dim int
}

// OpenSQLite opens (or creates) the database at path. Pass ":memory:" for an
// in-memory database.
func OpenSQLite(path string, dim int) (*SQLiteStore, error) {
	if path == "" {
		return nil, storageErr(weather.OpConnect, fmt.Errorf("sqlite path is empty"))
	}
	if err := registerVectorFunctions(); err != nil {
		return nil, storageErr(weather.OpConnect, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr(weather.OpConnect, err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db, dim: dim}, nil
}

// EnsureSchema creates both tables if they do not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr(weather.OpSchema, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertObservation appends obs in its own transaction.
func (s *SQLiteStore) InsertObservation(ctx context.Context, obs weather.Observation) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO weather_data (
    city, state, temperature, humidity, pressure, wind_speed,
    weather_description, air_quality_index, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			obs.City, obs.State, obs.Temperature, obs.Humidity, obs.Pressure, obs.WindSpeed,
			obs.Description, obs.AirQuality, obs.Timestamp.UTC())
		return err
	})
}

// InsertEmbedding appends rec in its own transaction.
func (s *SQLiteStore) InsertEmbedding(ctx context.Context, rec weather.EmbeddingRecord) error {
	if err := checkDimension(rec.Embedding, s.dim); err != nil {
		return storageErr(weather.OpExec, err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO weather_embeddings (location, description, embedding) VALUES (?, ?, ?)`,
			rec.Location, rec.Description, encodeEmbedding(rec.Embedding))
		return err
	})
}

// Nearest orders the embedding table by vec_l2 distance to vec.
func (s *SQLiteStore) Nearest(ctx context.Context, vec []float32, k int) ([]weather.QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := checkDimension(vec, s.dim); err != nil {
		return nil, storageErr(weather.OpQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT location, description, vec_l2(embedding, ?) AS distance
FROM weather_embeddings
ORDER BY distance ASC, id ASC
LIMIT ?`, encodeEmbedding(vec), k)
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

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(weather.OpBegin, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return storageErr(weather.OpExec, err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr(weather.OpCommit, err)
	}
	return nil
}

var _ Backend = (*SQLiteStore)(nil)
