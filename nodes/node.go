// Package nodes assembles the gateway's feed components into a runnable node
package nodes

import "context"

// Node represents the basic node interface
type Node interface {
	Run(ctx context.Context) error
	Close() error
}
