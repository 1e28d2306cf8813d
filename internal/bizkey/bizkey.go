package bizkey

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator hands out product business keys.
type Generator interface {
	Next() string
}

type SnowflakeGenerator struct {
	node *snowflake.Node
}

var _ Generator = (*SnowflakeGenerator)(nil)

// NewSnowflakeGenerator returns a generator for the given node. Keys from
// distinct nodes never collide; nodeID must be within 0-1023.
func NewSnowflakeGenerator(nodeID int64) (*SnowflakeGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeGenerator{node: node}, nil
}

// Next returns a time-ordered decimal key.
func (g *SnowflakeGenerator) Next() string {
	return g.node.Generate().String()
}
