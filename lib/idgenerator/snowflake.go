package idgenerator

import (
	"hash/fnv"

	"github.com/bwmarrin/snowflake"
)

// IDGenerator generates unique int64 ID using snowflake algorithm
type IDGenerator struct {
	node *snowflake.Node
}

// MakeGenerator creates a new IDGenerator whose ids carry a node number
// hashed from the given name
func MakeGenerator(node string) *IDGenerator {
	fnv64 := fnv.New64()
	_, _ = fnv64.Write([]byte(node))
	nodeID := int64(fnv64.Sum64()) & int64(-1^(-1<<snowflake.NodeBits))
	n, _ := snowflake.NewNode(nodeID)
	return &IDGenerator{node: n}
}

// NextID returns next unique ID
func (w *IDGenerator) NextID() int64 {
	return w.node.Generate().Int64()
}
