// Package cartsync implements the offline-tolerant cart synchronization
// used by Naaz Book Depot clients: a durable local snapshot, a queue of
// mutations recorded while disconnected, and a last-modified-wins merge
// against the remote cart API.
package cartsync

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CartItem is a single product entry in the client-side cart. Name, Price
// and Image are denormalized display data and may be stale relative to the
// catalog.
type CartItem struct {
	// ID is the remote row identifier. It is empty until the item has been
	// confirmed by the server and picked up by a sync.
	ID           string `json:"id,omitempty"`
	ProductID    string `json:"product_id"`
	Name         string `json:"name"`
	Price        string `json:"price"` // decimal string, e.g. "12.50"
	Image        string `json:"image"`
	Quantity     int    `json:"quantity"` // 0 means the item is marked for removal
	LastModified int64  `json:"last_modified"` // epoch milliseconds
	IsLocal      bool   `json:"is_local"`
}

// CartState is the canonical client cart. TotalItems and Subtotal are always
// derived from Items via CalculateTotals and never set independently.
type CartState struct {
	Items          []CartItem `json:"items"`
	TotalItems     int        `json:"total_items"`
	Subtotal       float64    `json:"subtotal"`
	LastSynced     int64      `json:"last_synced"` // epoch milliseconds
	SyncInProgress bool       `json:"-"`
}

// OperationType identifies a queued cart mutation.
type OperationType string

const (
	OpAdd    OperationType = "add"
	OpUpdate OperationType = "update"
	OpRemove OperationType = "remove"
	OpClear  OperationType = "clear"
)

// OfflineOperation is one not-yet-confirmed cart mutation awaiting replay
// against the remote store.
type OfflineOperation struct {
	ID         string        `json:"id"`
	Type       OperationType `json:"type"`
	ProductID  string        `json:"product_id,omitempty"`
	Quantity   int           `json:"quantity,omitempty"`
	CartItemID string        `json:"cart_item_id,omitempty"`
	Timestamp  int64         `json:"timestamp"` // epoch milliseconds, creation time
	RetryCount int           `json:"retry_count"`
}

// Mutation is the intake form of a cart change handed to the engine. The
// display fields are only used for the optimistic local item; the remote
// store keeps its own product data.
type Mutation struct {
	Type       OperationType
	ProductID  string
	Quantity   int
	CartItemID string
	Name       string
	Price      string
	Image      string
}

// RemoteProduct is the denormalized product data attached to a remote cart
// row.
type RemoteProduct struct {
	Name   string   `json:"name"`
	Price  string   `json:"price"`
	Images []string `json:"images"`
}

// RemoteCartRow is one product-quantity record held by the remote store for
// a user. It is validated at the gateway boundary before entering the merge.
type RemoteCartRow struct {
	ID        string        `json:"id"`
	ProductID string        `json:"product_id"`
	Quantity  int           `json:"quantity"`
	UpdatedAt time.Time     `json:"updated_at"`
	Product   RemoteProduct `json:"product"`
}

// Validate rejects rows missing the identifiers the merge keys on.
func (r *RemoteCartRow) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("remote cart row missing id")
	}
	if r.ProductID == "" {
		return fmt.Errorf("remote cart row %s missing product_id", r.ID)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("remote cart row %s has negative quantity %d", r.ID, r.Quantity)
	}
	return nil
}

// Item converts the row into its client-side CartItem form.
func (r *RemoteCartRow) Item() CartItem {
	image := ""
	if len(r.Product.Images) > 0 {
		image = r.Product.Images[0]
	}
	return CartItem{
		ID:           r.ID,
		ProductID:    r.ProductID,
		Name:         r.Product.Name,
		Price:        r.Product.Price,
		Image:        image,
		Quantity:     r.Quantity,
		LastModified: r.UpdatedAt.UnixMilli(),
		IsLocal:      false,
	}
}

// parsePrice reads a decimal price string. Unparseable prices contribute
// zero to the subtotal rather than failing the whole cart.
func parsePrice(price string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// newOperationID builds a locally unique identifier from the creation time
// and a random suffix.
func newOperationID(now time.Time) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(now.UnixNano(), 10)
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), hex.EncodeToString(buf[:]))
}
