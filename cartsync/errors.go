package cartsync

import (
	"errors"
	"fmt"
)

// ErrNotOnline is returned by SyncWithServer when the client is offline.
// The caller should retry after connectivity returns; no network I/O is
// attempted while offline.
var ErrNotOnline = errors.New("cartsync: not online")

// WriteError reports a failed insert, update or delete against the remote
// cart store. Operations failing with a WriteError are queued for bounded
// retry rather than surfaced as fatal.
type WriteError struct {
	Op        string // "insert", "update", "delete", "clear"
	ProductID string
	Err       error
}

func (e *WriteError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("cartsync: %s product %s: %v", e.Op, e.ProductID, e.Err)
	}
	return fmt.Sprintf("cartsync: %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
