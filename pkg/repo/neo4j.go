package repo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the part of a neo4j result the repository reads.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Consume(ctx context.Context) (neo4j.ResultSummary, error)
}

// Runner is the part of a neo4j session the repository uses.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
	Close(ctx context.Context) error
}

// Owner links every merged node to a parent node, e.g. (:Make)-[:HAS_CODE]->.
type Owner struct {
	Label    string // parent label
	Rel      string // relationship type
	Prop     string // parent property holding the value
	ChildKey string // child property copied into the parent
}

// Neo4jRepo stores T as nodes with label, identified by keys.
type Neo4jRepo[T any] struct {
	driver     neo4j.DriverWithContext
	database   string
	label      string
	keys       []string
	normalize  map[string]string
	owner      *Owner
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context, mode neo4j.AccessMode) Runner // for testing
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any] func(*Neo4jRepo[T])

// WithDatabase selects a database other than the server default.
func WithDatabase[T any](name string) Neo4jOption[T] {
	return func(r *Neo4jRepo[T]) { r.database = name }
}

// WithKeyNormalizer compares key against stored values through a cypher
// expression; %s is replaced by the property reference. Callers pass key
// values already normalized the same way.
func WithKeyNormalizer[T any](key, expr string) Neo4jOption[T] {
	return func(r *Neo4jRepo[T]) { r.normalize[key] = expr }
}

// WithOwner links merged nodes to a parent node.
func WithOwner[T any](o Owner) Neo4jOption[T] {
	return func(r *Neo4jRepo[T]) { r.owner = &o }
}

// NewNeo4jRepo creates a repository. keys are the node properties forming
// the natural key; fromRecord receives records with the node bound to "n".
func NewNeo4jRepo[T any](
	driver neo4j.DriverWithContext,
	label string,
	keys []string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T],
) *Neo4jRepo[T] {
	r := &Neo4jRepo[T]{
		driver:     driver,
		label:      label,
		keys:       keys,
		normalize:  map[string]string{},
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ Keyed[any] = (*Neo4jRepo[any])(nil)

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error { return a.sess.Close(ctx) }

func (r *Neo4jRepo[T]) session(ctx context.Context, mode neo4j.AccessMode) Runner {
	if r.newSession != nil {
		return r.newSession(ctx, mode)
	}
	return &sessionAdapter{sess: r.driver.NewSession(ctx, r.sessionConfig(mode))}
}

func (r *Neo4jRepo[T]) sessionConfig(mode neo4j.AccessMode) neo4j.SessionConfig {
	return neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database}
}

// where renders a predicate over filter's properties in sorted order, so the
// same filter always yields the same cypher.
func (r *Neo4jRepo[T]) where(filter Key) (string, map[string]any) {
	props := make([]string, 0, len(filter))
	for k := range filter {
		props = append(props, k)
	}
	sort.Strings(props)

	params := make(map[string]any, len(filter))
	conds := make([]string, 0, len(filter))
	for i, k := range props {
		ref := "n." + k
		if expr, ok := r.normalize[k]; ok {
			ref = fmt.Sprintf(expr, ref)
		}
		p := fmt.Sprintf("k%d", i)
		conds = append(conds, fmt.Sprintf("%s = $%s", ref, p))
		params[p] = filter[k]
	}
	if len(conds) == 0 {
		return "", params
	}
	return " WHERE " + strings.Join(conds, " AND "), params
}

// Get returns the entity matching key.
func (r *Neo4jRepo[T]) Get(ctx context.Context, key Key) (T, bool, error) {
	var zero T
	sess := r.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	where, params := r.where(key)
	cypher := fmt.Sprintf("MATCH (n:%s)%s RETURN n LIMIT 1", r.label, where)
	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return zero, false, fmt.Errorf("repo: get %s: %w", r.label, err)
	}
	if !res.Next(ctx) {
		return zero, false, nil
	}
	v, err := r.fromRecord(res.Record())
	if err != nil {
		return zero, false, fmt.Errorf("repo: decode %s: %w", r.label, err)
	}
	return v, true, nil
}

// Merge creates the entity unless a node with the same key exists. Existing
// nodes are left untouched. The owner link is merged separately so that
// NodesCreated reflects the child alone.
func (r *Neo4jRepo[T]) Merge(ctx context.Context, entity T) (bool, error) {
	sess := r.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	props := r.toMap(entity)
	keyProps := make([]string, len(r.keys))
	params := map[string]any{"props": props}
	for i, k := range r.keys {
		keyProps[i] = fmt.Sprintf("%s: $key_%s", k, k)
		params["key_"+k] = props[k]
	}
	match := fmt.Sprintf("(n:%s {%s})", r.label, strings.Join(keyProps, ", "))

	created, err := r.write(ctx, sess, "MERGE "+match+" ON CREATE SET n += $props", params)
	if err != nil {
		return false, err
	}
	if o := r.owner; o != nil {
		params["owner"] = props[o.ChildKey]
		cypher := fmt.Sprintf("MATCH %s MERGE (o:%s {%s: $owner}) MERGE (o)-[:%s]->(n)", match, o.Label, o.Prop, o.Rel)
		if _, err := r.write(ctx, sess, cypher, params); err != nil {
			return false, err
		}
	}
	return created > 0, nil
}

func (r *Neo4jRepo[T]) write(ctx context.Context, sess Runner, cypher string, params map[string]any) (int, error) {
	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return 0, fmt.Errorf("repo: merge %s: %w", r.label, err)
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return 0, fmt.Errorf("repo: merge %s: %w", r.label, err)
	}
	return summary.Counters().NodesCreated(), nil
}

// Count returns how many nodes match filter.
func (r *Neo4jRepo[T]) Count(ctx context.Context, filter Key) (int64, error) {
	sess := r.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	where, params := r.where(filter)
	res, err := sess.Run(ctx, fmt.Sprintf("MATCH (n:%s)%s RETURN count(n) AS total", r.label, where), params)
	if err != nil {
		return 0, fmt.Errorf("repo: count %s: %w", r.label, err)
	}
	if !res.Next(ctx) {
		return 0, nil
	}
	v, ok := res.Record().Get("total")
	if !ok {
		return 0, fmt.Errorf("repo: count %s: missing total", r.label)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("repo: count %s: unexpected %T", r.label, v)
	}
	return n, nil
}

// EnsureUnique creates the composite uniqueness constraint on the key
// properties if it does not already exist.
func (r *Neo4jRepo[T]) EnsureUnique(ctx context.Context) error {
	sess := r.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	refs := make([]string, len(r.keys))
	for i, k := range r.keys {
		refs[i] = "n." + k
	}
	name := strings.ToLower(r.label) + "_" + strings.Join(r.keys, "_") + "_unique"
	cypher := fmt.Sprintf("CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE (%s) IS UNIQUE",
		name, r.label, strings.Join(refs, ", "))
	res, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return fmt.Errorf("repo: constraint %s: %w", r.label, err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("repo: constraint %s: %w", r.label, err)
	}
	return nil
}
