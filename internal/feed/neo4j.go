package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rohankatakam/smelltracker/internal/models"
)

// GraphFeed reads snapshots from the analyzer's Neo4j database, where each
// analyzed commit is a (:Commit {project, sha}) node linked to its smells by
// [:HAS_SMELL].
type GraphFeed struct {
	driver   neo4j.DriverWithContext
	database string
	project  string
	logger   *slog.Logger
}

// NewGraphFeed connects to Neo4j and verifies connectivity
func NewGraphFeed(ctx context.Context, uri, user, password, database, project string) (*GraphFeed, error) {
	if uri == "" || user == "" || password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", uri, user)
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 20
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = time.Hour
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger := slog.Default().With("component", "neo4j", "project", project)
	logger.Info("smell feed connected", "uri", uri, "database", database)

	return &GraphFeed{
		driver:   driver,
		database: database,
		project:  project,
		logger:   logger,
	}, nil
}

const snapshotQuery = `
	MATCH (c:Commit {project: $project, sha: $sha})
	OPTIONAL MATCH (c)-[:HAS_SMELL]->(s:Smell)
	RETURN s.type AS type, s.instance AS instance, s.file AS file
`

const coverageQuery = `
	MATCH (c:Commit {project: $project})
	RETURN c.sha AS sha
`

func (g *GraphFeed) SnapshotAt(ctx context.Context, sha string) (models.Snapshot, error) {
	result, err := neo4j.ExecuteQuery(ctx, g.driver, snapshotQuery,
		map[string]any{"project": g.project, "sha": sha},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("snapshot query failed for %s: %w", sha, err)
	}
	if len(result.Records) == 0 {
		return nil, notCovered(sha)
	}
	return snapshotFromRecords(result.Records)
}

// snapshotFromRecords decodes snapshot rows. The OPTIONAL MATCH yields a
// single all-null row for a covered commit without smells.
func snapshotFromRecords(records []*neo4j.Record) (models.Snapshot, error) {
	snap := models.Snapshot{}
	for _, rec := range records {
		typ, isNil, err := neo4j.GetRecordValue[string](rec, "type")
		if err != nil {
			return nil, fmt.Errorf("bad smell type: %w", err)
		}
		if isNil {
			continue
		}
		instance, isNil, err := neo4j.GetRecordValue[string](rec, "instance")
		if err != nil {
			return nil, fmt.Errorf("bad smell instance: %w", err)
		}
		if isNil || instance == "" {
			return nil, fmt.Errorf("smell of type %s has no instance", typ)
		}
		file, _, err := neo4j.GetRecordValue[string](rec, "file")
		if err != nil {
			return nil, fmt.Errorf("bad smell file: %w", err)
		}
		s := models.SmellInstance{Type: typ, Instance: instance, File: file}
		snap[s.Key()] = s
	}
	return snap, nil
}

func (g *GraphFeed) CoveredSHAs(ctx context.Context) (map[string]bool, error) {
	result, err := neo4j.ExecuteQuery(ctx, g.driver, coverageQuery,
		map[string]any{"project": g.project},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("coverage query failed: %w", err)
	}
	covered := make(map[string]bool, len(result.Records))
	for _, rec := range result.Records {
		sha, isNil, err := neo4j.GetRecordValue[string](rec, "sha")
		if err != nil || isNil {
			continue
		}
		covered[sha] = true
	}
	g.logger.Debug("coverage loaded", "commits", len(covered))
	return covered, nil
}

// Close releases the driver
func (g *GraphFeed) Close(ctx context.Context) error {
	if err := g.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	return nil
}
