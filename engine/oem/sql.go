package oem

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
)

// SQLStore keeps definitions in a relational table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	seeds   []Entry
	ready   readiness
	logger  *slog.Logger
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithSeeds replaces the default seed set.
func WithSeeds(seeds []Entry) SQLOption {
	return func(s *SQLStore) { s.seeds = seeds }
}

// OpenSQL opens dsn with the dialect's driver and checks connectivity. The
// schema is created lazily on first use.
func OpenSQL(ctx context.Context, d Dialect, dsn string, logger *slog.Logger, opts ...SQLOption) (*SQLStore, error) {
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("oem: open %s: %w", d.Name, err)
	}
	if d.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("oem: ping %s: %w", d.Name, err)
	}
	return NewSQLStore(db, d, logger, opts...), nil
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB, d Dialect, logger *slog.Logger, opts ...SQLOption) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLStore{db: db, dialect: d, seeds: Seeds, logger: logger}
	s.ready.timeout = 30 * time.Second
	for _, o := range opts {
		o(s)
	}
	return s
}

// EnsureReady creates the table and seeds empty makes. It does work only
// until it has succeeded once.
func (s *SQLStore) EnsureReady(ctx context.Context) error {
	return s.ready.ensure(ctx, s.setup)
}

func (s *SQLStore) setup(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("oem: schema: %w", err)
		}
	}
	makes, byMake := seedsByMake(s.seeds)
	for _, m := range makes {
		var n int64
		if err := s.db.QueryRowContext(ctx, s.dialect.CountMake, m).Scan(&n); err != nil {
			return fmt.Errorf("oem: count %s: %w", m, err)
		}
		if n > 0 {
			continue
		}
		inserted := 0
		for _, e := range byMake[m] {
			ok, err := s.insert(ctx, e)
			if err != nil {
				return fmt.Errorf("oem: seed %s %s: %w", e.Make, e.Code, err)
			}
			if ok {
				inserted++
			}
		}
		s.logger.Info("oem seed applied", "backend", s.dialect.Name, "make", m, "inserted", inserted)
	}
	return nil
}

func (s *SQLStore) insert(ctx context.Context, e Entry) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Insert, e.Make, e.Code, e.Title, e.Description, e.Source)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Lookup implements Store.
func (s *SQLStore) Lookup(ctx context.Context, make_, code string) (*dtc.Definition, error) {
	m, c, ok := lookupKey(make_, code)
	if !ok {
		return nil, nil
	}
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	var e Entry
	err := s.db.QueryRowContext(ctx, s.dialect.Lookup, m, c).
		Scan(&e.Make, &e.Code, &e.Title, &e.Description, &e.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oem: lookup %s %s: %w", m, c, err)
	}
	e.Make, e.Code = m, c
	return e.Definition(), nil
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, e Entry) (bool, error) {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return false, err
	}
	if err := s.EnsureReady(ctx); err != nil {
		return false, err
	}
	created, err := s.insert(ctx, e)
	if err != nil {
		return false, fmt.Errorf("oem: insert %s %s: %w", e.Make, e.Code, err)
	}
	return created, nil
}

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }
