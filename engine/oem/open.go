package oem

import (
	"context"
	"fmt"
	"log/slog"
)

// Config selects and configures a backend.
type Config struct {
	Driver    string // postgres, sqlite or neo4j
	DSN       string // postgres and sqlite
	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string
	// Neo4jDatabase selects a database other than the server default.
	Neo4jDatabase string
	// CacheSize enables the LRU when positive.
	CacheSize int
}

// Open connects the configured backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "postgres":
		s, err = OpenSQL(ctx, Postgres, cfg.DSN, logger)
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file:oem.db"
		}
		s, err = OpenSQL(ctx, SQLite, dsn, logger)
	case "neo4j":
		s, err = OpenGraph(ctx, cfg.Neo4jURL, cfg.Neo4jUser, cfg.Neo4jPass, cfg.Neo4jDatabase, logger)
	default:
		return nil, fmt.Errorf("oem: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCachedStore(s, cfg.CacheSize)
		if err != nil {
			s.Close()
			return nil, err
		}
		return cached, nil
	}
	return s, nil
}
