// Package repo provides a typed node lookup over a Neo4j driver, used for
// catalog-style reads where one label maps onto one Go type.
package repo

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the slice of the driver's result type the repo consumes.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the slice of a driver session the repo consumes.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Neo4jRepo reads nodes of one label as values of T keyed by ID.
type Neo4jRepo[T any, ID comparable] struct {
	driver     neo4j.DriverWithContext
	label      string
	idKey      string
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context) runner
}

// NewNeo4jRepo builds a repo for nodes labeled label. fromRecord translates
// a returned node record into T; the id property is "id".
func NewNeo4jRepo[T any, ID comparable](
	driver neo4j.DriverWithContext,
	label string,
	fromRecord func(*neo4j.Record) (T, error),
) *Neo4jRepo[T, ID] {
	return &Neo4jRepo[T, ID]{
		driver:     driver,
		label:      label,
		idKey:      "id",
		fromRecord: fromRecord,
	}
}

// sessionAdapter narrows neo4j.SessionWithContext to runner.
type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (r *Neo4jRepo[T, ID]) session(ctx context.Context) runner {
	if r.newSession != nil {
		return r.newSession(ctx)
	}
	return &sessionAdapter{sess: r.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// Get returns the node with the given id.
func (r *Neo4jRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var zero T
	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) RETURN n", r.label, r.idKey)
	res, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return zero, err
	}
	if !res.Next(ctx) {
		return zero, fmt.Errorf("%s not found", r.label)
	}
	return r.fromRecord(res.Record())
}
