// Package idgen issues time-ordered 64-bit ids backed by a snowflake node.
// Comments use them so "ORDER BY id" is also creation order.
package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	initOnce sync.Once
	initErr  error
)

// Init configures the generator with the given node id (0..1023).
// Only the first call has an effect.
func Init(nodeID int64) error {
	initOnce.Do(func() {
		node, initErr = snowflake.NewNode(nodeID)
		if initErr != nil {
			initErr = fmt.Errorf("init snowflake node %d: %w", nodeID, initErr)
		}
	})
	return initErr
}

// New returns a fresh id. It panics if Init has not succeeded.
func New() int64 {
	if node == nil {
		panic("idgen: Init was not called")
	}
	return node.Generate().Int64()
}

// Generator is the function shape services depend on.
type Generator func() int64
