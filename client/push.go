package client

import "github.com/nussjustin/resp3client"

// PushMessage is one materialized server push (spec §3's PushChannel payload): a concrete node tree
// rather than a typed destination, since the application consumes it asynchronously and out of band
// with respect to command responses.
type PushMessage struct {
	// Nodes is the decoded node tree, in traversal order, starting with the push header itself at
	// depth 0.
	Nodes []resp3.Node
}
