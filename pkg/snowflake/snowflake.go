// Package snowflake generates the int64 identifiers used for stored records.
package snowflake

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	mu   sync.RWMutex
	node *snowflake.Node
)

// Init configures the generator for the given node (0..1023).
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	mu.Lock()
	node = n
	mu.Unlock()
	return nil
}

// NextID returns a new unique, time-ordered ID. Init(0) is applied lazily
// when the generator has not been initialized.
func NextID() int64 {
	mu.RLock()
	n := node
	mu.RUnlock()
	if n == nil {
		mu.Lock()
		if node == nil {
			node, _ = snowflake.NewNode(0)
		}
		n = node
		mu.Unlock()
	}
	return n.Generate().Int64()
}
