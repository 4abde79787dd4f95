package topology

import "errors"

// ErrDuplicateEdge indicates that an edge with the same source and target
// ports is already present in the store.
var ErrDuplicateEdge = errors.New("duplicate edge")
