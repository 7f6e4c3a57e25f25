package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ComputeOracle/internal/domain/models"
	applogger "ComputeOracle/pkg/logger"
)

// CHSignalArchive stores every ingested signal in a ClickHouse MergeTree.
type CHSignalArchive struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHSignalArchive(db *sql.DB, database string, l *applogger.Logger) *CHSignalArchive {
	if database == "" {
		database = "oracle"
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHSignalArchive{db: db, database: database, l: l}
}

func (s *CHSignalArchive) table() string {
	return s.database + ".signals"
}

// SchemaStatements returns the idempotent DDL for the archive.
func (s *CHSignalArchive) SchemaStatements() []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    ts            DateTime64(3, 'UTC'),
    source        LowCardinality(String),
    name          String,
    value         Float64,
    unit          LowCardinality(String),
    instance_type String,
    az            String
) ENGINE = ReplacingMergeTree
ORDER BY (source, name, ts)`, s.table()),
	}
}

func (s *CHSignalArchive) Init(ctx context.Context) error {
	for _, stmt := range s.SchemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init archive schema: %w", err)
		}
	}
	return nil
}

func (s *CHSignalArchive) StoreBatch(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	// Multi-row VALUES, chunked to keep statements bounded.
	const chunkSize = 2000
	for start := 0; start < len(signals); start += chunkSize {
		end := start + chunkSize
		if end > len(signals) {
			end = len(signals)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, sig := range signals[start:end] {
			if sig.Source == "" || sig.Name == "" || sig.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, sig.Timestamp.UTC(), sig.Source, sig.Name, sig.Value, sig.Unit, sig.InstanceType, sig.AZ)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, source, name, value, unit, instance_type, az) VALUES %s",
			s.table(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse archive insert error",
				applogger.Int("rows", len(values)),
				applogger.Error(err))
			return fmt.Errorf("archive insert: %w", err)
		}
	}
	return nil
}

// Query returns archived signals in [from, to), oldest first.
func (s *CHSignalArchive) Query(ctx context.Context, from, to time.Time) ([]models.Signal, error) {
	start := time.Now()
	q := fmt.Sprintf(`SELECT ts, source, name, value, unit, instance_type, az
FROM %s
WHERE ts >= ? AND ts < ?
ORDER BY ts ASC, source ASC, name ASC`, s.table())

	rows, err := s.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		s.l.Error("clickhouse archive query error", applogger.Error(err))
		return nil, fmt.Errorf("archive query: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var sig models.Signal
		if err := rows.Scan(&sig.Timestamp, &sig.Source, &sig.Name, &sig.Value, &sig.Unit, &sig.InstanceType, &sig.AZ); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Timestamp = sig.Timestamp.UTC()
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse archive query ok",
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (s *CHSignalArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSignalArchive) Close() error {
	return nil // pool owned by pkg/clickhouse
}
