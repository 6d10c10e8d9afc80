package oem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/pkg/repo"
)

const (
	makeExpr = "toUpper(trim(%s))"
	codeExpr = "replace(replace(toUpper(trim(%s)), ' ', ''), '-', '')"
)

// GraphStore keeps definitions as (:Make)-[:HAS_CODE]->(:FaultCode) in Neo4j.
type GraphStore struct {
	driver neo4j.DriverWithContext
	codes  *repo.Neo4jRepo[Entry]
	seeds  []Entry
	ready  readiness
	logger *slog.Logger
}

// OpenGraph connects to Neo4j and verifies connectivity. An empty database
// uses the server default.
func OpenGraph(ctx context.Context, url, user, pass, database string, logger *slog.Logger) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(url, neo4j.BasicAuth(user, pass, ""))
	if err != nil {
		return nil, fmt.Errorf("oem: neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("oem: neo4j connect: %w", err)
	}
	return NewGraphStore(driver, database, logger), nil
}

// NewGraphStore wraps a driver.
func NewGraphStore(driver neo4j.DriverWithContext, database string, logger *slog.Logger) *GraphStore {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []repo.Neo4jOption[Entry]{
		repo.WithKeyNormalizer[Entry]("make", makeExpr),
		repo.WithKeyNormalizer[Entry]("code", codeExpr),
		repo.WithOwner[Entry](repo.Owner{Label: "Make", Rel: "HAS_CODE", Prop: "name", ChildKey: "make"}),
	}
	if database != "" {
		opts = append(opts, repo.WithDatabase[Entry](database))
	}
	g := &GraphStore{
		driver: driver,
		codes:  repo.NewNeo4jRepo[Entry](driver, "FaultCode", []string{"make", "code"}, entryProps, entryFromRecord, opts...),
		seeds:  Seeds,
		logger: logger,
	}
	g.ready.timeout = 30 * time.Second
	return g
}

func entryProps(e Entry) map[string]any {
	props := map[string]any{
		"make":       e.Make,
		"code":       e.Code,
		"title":      e.Title,
		"created_at": time.Now().UTC(),
	}
	if e.Description != "" {
		props["description"] = e.Description
	}
	if e.Source != "" {
		props["source"] = e.Source
	}
	return props
}

func entryFromRecord(rec *neo4j.Record) (Entry, error) {
	node, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "n")
	if err != nil {
		return Entry{}, err
	}
	str := func(k string) string {
		s, _ := node.Props[k].(string)
		return s
	}
	return Entry{
		Make:        str("make"),
		Code:        str("code"),
		Title:       str("title"),
		Description: str("description"),
		Source:      str("source"),
	}, nil
}

// EnsureReady creates the uniqueness constraint and seeds empty makes.
func (g *GraphStore) EnsureReady(ctx context.Context) error {
	return g.ready.ensure(ctx, g.setup)
}

func (g *GraphStore) setup(ctx context.Context) error {
	if err := g.codes.EnsureUnique(ctx); err != nil {
		return fmt.Errorf("oem: graph schema: %w", err)
	}
	makes, byMake := seedsByMake(g.seeds)
	for _, m := range makes {
		n, err := g.codes.Count(ctx, repo.Key{"make": m})
		if err != nil {
			return fmt.Errorf("oem: count %s: %w", m, err)
		}
		if n > 0 {
			continue
		}
		inserted := 0
		for _, e := range byMake[m] {
			created, err := g.codes.Merge(ctx, e)
			if err != nil {
				return fmt.Errorf("oem: seed %s %s: %w", e.Make, e.Code, err)
			}
			if created {
				inserted++
			}
		}
		g.logger.Info("oem seed applied", "backend", "neo4j", "make", m, "inserted", inserted)
	}
	return nil
}

// Lookup implements Store.
func (g *GraphStore) Lookup(ctx context.Context, make_, code string) (*dtc.Definition, error) {
	m, c, ok := lookupKey(make_, code)
	if !ok {
		return nil, nil
	}
	if err := g.EnsureReady(ctx); err != nil {
		return nil, err
	}
	e, found, err := g.codes.Get(ctx, repo.Key{"make": m, "code": c})
	if err != nil {
		return nil, fmt.Errorf("oem: lookup %s %s: %w", m, c, err)
	}
	if !found {
		return nil, nil
	}
	e.Make, e.Code = m, c
	return e.Definition(), nil
}

// Insert implements Store.
func (g *GraphStore) Insert(ctx context.Context, e Entry) (bool, error) {
	e = e.Normalized()
	if err := e.Validate(); err != nil {
		return false, err
	}
	if err := g.EnsureReady(ctx); err != nil {
		return false, err
	}
	created, err := g.codes.Merge(ctx, e)
	if err != nil {
		return false, fmt.Errorf("oem: insert %s %s: %w", e.Make, e.Code, err)
	}
	return created, nil
}

// Close closes the driver.
func (g *GraphStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.driver.Close(ctx)
}
