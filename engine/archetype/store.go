package archetype

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/ArcanaLabs/arcana-engine/pkg/repo"
)

// CypherResult is the minimal read surface of a query result.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// CypherRunner runs a single Cypher statement.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is a session that can also run write transactions.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions against the graph backend.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// Store provides archetype graph operations on top of Neo4j.
type Store struct {
	opener     SessionOpener
	archetypes *repo.Neo4jRepo[Archetype, string]
}

// NewStore creates a Store backed by a Neo4j driver.
func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{
		opener:     &driverOpener{driver: driver},
		archetypes: newArchetypeRepo(driver),
	}
}

// NewWithOpener creates a Store on a custom session opener. The generic
// repository is absent; lookups go through the opener.
func NewWithOpener(opener SessionOpener) *Store {
	return &Store{opener: opener}
}

// Get returns an archetype by ID.
func (s *Store) Get(ctx context.Context, id string) (Archetype, error) {
	if s.archetypes != nil {
		return s.archetypes.Get(ctx, id)
	}

	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Archetype {id: $id}) RETURN n`, map[string]any{"id": id})
	if err != nil {
		return Archetype{}, err
	}
	if !result.Next(ctx) {
		return Archetype{}, fmt.Errorf("archetype %s not found", id)
	}
	node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
	if err != nil {
		return Archetype{}, err
	}
	return archetypeFromProps(node.Props), nil
}

// Save creates or updates an archetype node.
func (s *Store) Save(ctx context.Context, a Archetype) error {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Archetype {id: $id}) SET n += $props`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":    a.ID,
		"props": archetypeToMap(a),
	})
	return err
}

// SaveCrossRef creates or updates a cross-tradition edge. Both endpoints
// must already exist.
func (s *Store) SaveCrossRef(ctx context.Context, ref CrossRef) error {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (a:Archetype {id: $from}), (b:Archetype {id: $to})
	           MERGE (a)-[r:CROSS_REF {relation: $relation}]->(b)
	           SET r.weight = $weight`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"from":     ref.FromID,
		"to":       ref.ToID,
		"relation": sanitizeRelation(ref.Relation),
		"weight":   ref.Weight,
	})
	return err
}

// SaveBatch writes archetypes and cross-refs in one transaction.
func (s *Store) SaveBatch(ctx context.Context, archetypes []Archetype, refs []CrossRef) error {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, a := range archetypes {
			cypher := `MERGE (n:Archetype {id: $id}) SET n += $props`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"id":    a.ID,
				"props": archetypeToMap(a),
			}); err != nil {
				return nil, err
			}
		}
		for _, ref := range refs {
			cypher := `MATCH (a:Archetype {id: $from}), (b:Archetype {id: $to})
			           MERGE (a)-[r:CROSS_REF {relation: $relation}]->(b)
			           SET r.weight = $weight`
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"from":     ref.FromID,
				"to":       ref.ToID,
				"relation": sanitizeRelation(ref.Relation),
				"weight":   ref.Weight,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// CrossRefsForCard returns the archetypes linked to a tarot card, in either
// edge direction.
func (s *Store) CrossRefsForCard(ctx context.Context, cardID string) ([]Linked, error) {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (a:Archetype {card_id: $cardID})-[r:CROSS_REF]-(b:Archetype)
	           RETURN b, r.relation AS relation, r.weight AS weight`
	result, err := sess.Run(ctx, cypher, map[string]any{"cardID": cardID})
	if err != nil {
		return nil, err
	}

	var linked []Linked
	for result.Next(ctx) {
		rec := result.Record()
		node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "b")
		if err != nil {
			return nil, err
		}
		l := Linked{Archetype: archetypeFromProps(node.Props)}
		if v, ok := rec.Get("relation"); ok {
			if rel, ok := v.(string); ok {
				l.Relation = rel
			}
		}
		if v, ok := rec.Get("weight"); ok {
			if w, ok := v.(float64); ok {
				l.Weight = w
			}
		}
		linked = append(linked, l)
	}
	return linked, nil
}

// FindBySystem returns all archetypes of one tradition.
func (s *Store) FindBySystem(ctx context.Context, system System) ([]Archetype, error) {
	sess := s.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	result, err := sess.Run(ctx, `MATCH (n:Archetype {system: $system}) RETURN n`,
		map[string]any{"system": string(system)})
	if err != nil {
		return nil, err
	}

	var items []Archetype
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, err
		}
		items = append(items, archetypeFromProps(node.Props))
	}
	return items, nil
}

// newArchetypeRepo wires the generic Neo4j repository for Archetype nodes.
func newArchetypeRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Archetype, string] {
	return repo.NewNeo4jRepo[Archetype, string](
		driver,
		"Archetype",
		archetypeFromRecord,
	)
}

func archetypeToMap(a Archetype) map[string]any {
	m := map[string]any{
		"id":     a.ID,
		"system": string(a.System),
		"name":   a.Name,
	}
	if a.NameKo != "" {
		m["name_ko"] = a.NameKo
	}
	if a.CardID != "" {
		m["card_id"] = a.CardID
	}
	if a.Element != "" {
		m["element"] = a.Element
	}
	if len(a.Keywords) > 0 {
		m["keywords"] = strings.Join(a.Keywords, ",")
	}
	return m
}

func archetypeFromRecord(rec *neo4j.Record) (Archetype, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Archetype{}, err
	}
	return archetypeFromProps(node.Props), nil
}

func archetypeFromProps(props map[string]any) Archetype {
	a := Archetype{
		ID:      strProp(props, "id"),
		System:  System(strProp(props, "system")),
		Name:    strProp(props, "name"),
		NameKo:  strProp(props, "name_ko"),
		CardID:  strProp(props, "card_id"),
		Element: strProp(props, "element"),
	}
	if kw := strProp(props, "keywords"); kw != "" {
		a.Keywords = strings.Split(kw, ",")
	}
	return a
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// sanitizeRelation restricts relation names to identifier characters so they
// stay queryable.
func sanitizeRelation(rel string) string {
	safe := make([]byte, 0, len(rel))
	for i := range rel {
		c := rel[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "resonates"
	}
	return strings.ToLower(string(safe))
}

// driverOpener adapts a Neo4j driver to the SessionOpener interface.
type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o *driverOpener) OpenSession(ctx context.Context) CypherSession {
	return &driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&txRunner{tx: tx})
	})
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r *txRunner) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return r.tx.Run(ctx, cypher, params)
}
