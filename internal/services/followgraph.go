package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Neo4jFollowGraph reads the social follow graph. The graph is written by
// the user subsystem; this side only ever traverses it.
type Neo4jFollowGraph struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewNeo4jFollowGraph(driver neo4j.DriverWithContext, logger *logrus.Logger) *Neo4jFollowGraph {
	return &Neo4jFollowGraph{
		driver: driver,
		logger: logger,
	}
}

func (g *Neo4jFollowGraph) FollowedCreators(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {id: $userId})-[:FOLLOWS]->(creator:User)
		RETURN creator.id AS creatorId`,
		map[string]interface{}{"userId": userID.String()})
	if err != nil {
		return nil, fmt.Errorf("follow graph query failed: %w", err)
	}

	var creators []uuid.UUID
	for result.Next(ctx) {
		value, ok := result.Record().Get("creatorId")
		if !ok {
			continue
		}
		idStr, ok := value.(string)
		if !ok {
			continue
		}
		creatorID, err := uuid.Parse(idStr)
		if err != nil {
			g.logger.WithField("creator_id", idStr).Warn("Skipping malformed creator id in follow graph")
			continue
		}
		creators = append(creators, creatorID)
	}

	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("follow graph result failed: %w", err)
	}

	return creators, nil
}
