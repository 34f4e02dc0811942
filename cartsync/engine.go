package cartsync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// MaxRetries is the replay ceiling for a queued operation. An operation
// whose retry count exceeds this after a failed replay is moved to the
// dead-letter list instead of being retried forever.
const MaxRetries = 3

// Engine reconciles the device-local cart with the remote store. All
// dependencies are injected; the engine owns no timers and no global state.
type Engine struct {
	store   LocalStore
	gateway Gateway
	online  func() bool
	now     func() time.Time
	logger  *log.Logger

	// syncMu serializes SyncWithServer so a reconnect signal racing a
	// periodic tick cannot drain the queue twice.
	syncMu  sync.Mutex
	stateMu sync.Mutex // guards syncing and failed
	syncing bool
	failed  []OfflineOperation
}

// Option configures an Engine.
type Option func(*Engine)

// WithOnlineCheck supplies the connectivity probe, typically
// Monitor.Online. Without it the engine assumes it is always online.
func WithOnlineCheck(online func() bool) Option {
	return func(e *Engine) { e.online = online }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides the standard logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(store LocalStore, gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		gateway: gateway,
		online:  func() bool { return true },
		now:     time.Now,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Syncing reports whether a sync run is currently in flight.
func (e *Engine) Syncing() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.syncing
}

// FailedOperations returns the operations dropped after exhausting their
// retries, so callers can surface them instead of losing them silently.
func (e *Engine) FailedOperations() []OfflineOperation {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return append([]OfflineOperation(nil), e.failed...)
}

// SyncWithServer drains the offline queue, fetches the remote cart, merges
// it with the local snapshot under last-modified-wins, persists the result
// and returns it. It returns ErrNotOnline without touching the network when
// the client is offline. Concurrent calls are serialized.
func (e *Engine) SyncWithServer(ctx context.Context, userID string) (*CartState, error) {
	if !e.online() {
		return nil, ErrNotOnline
	}

	e.syncMu.Lock()
	defer e.syncMu.Unlock()
	e.setSyncing(true)
	defer e.setSyncing(false)

	e.drainQueue(ctx, userID)

	rows, err := e.gateway.ListCartRows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch remote cart: %w", err)
	}

	local := e.store.LoadCart()
	if local == nil {
		local = &CartState{}
	}

	merged := e.merge(ctx, userID, local.Items, rows)
	totalItems, subtotal := CalculateTotals(merged)

	state := &CartState{
		Items:      merged,
		TotalItems: totalItems,
		Subtotal:   subtotal,
		LastSynced: e.now().UnixMilli(),
	}
	e.store.SaveCart(*state)
	return state, nil
}

// merge reconciles per product key. For a product in both carts the side
// with the newer modification timestamp wins: a newer local item is pushed
// to the remote store, a newer-or-equal remote row replaces the local item.
// Local-only items are inserted remotely; remote-only rows are kept as-is.
func (e *Engine) merge(ctx context.Context, userID string, local []CartItem, rows []RemoteCartRow) []CartItem {
	remote := make(map[string]RemoteCartRow, len(rows))
	for _, row := range rows {
		remote[row.ProductID] = row
	}

	merged := make([]CartItem, 0, len(local)+len(rows))
	for _, item := range local {
		row, exists := remote[item.ProductID]
		if !exists {
			// Quantity zero marks a removal; nothing to insert remotely.
			if item.Quantity <= 0 {
				continue
			}
			if err := e.gateway.InsertCartRow(ctx, userID, item.ProductID, item.Quantity); err != nil {
				e.logger.Printf("cartsync: merge insert failed for %s, queueing: %v", item.ProductID, err)
				e.enqueue(OfflineOperation{Type: OpAdd, ProductID: item.ProductID, Quantity: item.Quantity})
			}
			merged = append(merged, item)
			continue
		}
		delete(remote, item.ProductID)

		if item.LastModified > row.UpdatedAt.UnixMilli() {
			// Local wins.
			if item.Quantity <= 0 {
				if err := e.gateway.DeleteCartRow(ctx, row.ID); err != nil {
					e.logger.Printf("cartsync: merge delete failed for %s, queueing: %v", item.ProductID, err)
					e.enqueue(OfflineOperation{Type: OpRemove, ProductID: item.ProductID, CartItemID: row.ID})
				}
				continue
			}
			if err := e.gateway.UpdateCartRow(ctx, row.ID, item.Quantity); err != nil {
				e.logger.Printf("cartsync: merge update failed for %s, queueing: %v", item.ProductID, err)
				e.enqueue(OfflineOperation{Type: OpUpdate, ProductID: item.ProductID, Quantity: item.Quantity, CartItemID: row.ID})
			}
			item.ID = row.ID
			item.IsLocal = false
			merged = append(merged, item)
		} else {
			// Remote wins or ties.
			merged = append(merged, row.Item())
		}
	}

	// Remaining remote rows have no local counterpart. Iterate the slice
	// rather than the map so the order is stable across syncs.
	for _, row := range rows {
		if _, still := remote[row.ProductID]; still {
			delete(remote, row.ProductID)
			merged = append(merged, row.Item())
		}
	}
	return merged
}

// drainQueue replays the offline queue against the gateway. A failed
// operation is kept with an incremented retry count until it exceeds
// MaxRetries, after which it is moved to the dead-letter list.
func (e *Engine) drainQueue(ctx context.Context, userID string) {
	ops := e.store.ReadQueue()
	if len(ops) == 0 {
		return
	}

	var requeue []OfflineOperation
	for _, op := range ops {
		err := e.applyRemote(ctx, userID, op)
		if err == nil {
			continue
		}
		op.RetryCount++
		if op.RetryCount <= MaxRetries {
			requeue = append(requeue, op)
			continue
		}
		e.logger.Printf("cartsync: dropping operation %s (%s %s) after %d retries: %v",
			op.ID, op.Type, op.ProductID, MaxRetries, err)
		e.stateMu.Lock()
		e.failed = append(e.failed, op)
		e.stateMu.Unlock()
	}

	// An empty requeued set clears the storage key instead of writing [].
	if len(requeue) == 0 {
		e.store.ClearQueue()
	} else {
		e.store.WriteQueue(requeue)
	}
}

// AddCartOperation is the single entry point for cart mutations. The local
// snapshot is updated optimistically in every case. A guest (empty userID)
// or an offline client only enqueues the operation. An online client
// attempts the remote write immediately; on failure the operation is
// enqueued as a fallback and the error is returned so the caller can react.
func (e *Engine) AddCartOperation(ctx context.Context, userID string, m Mutation) error {
	op := OfflineOperation{
		ID:         newOperationID(e.now()),
		Type:       m.Type,
		ProductID:  m.ProductID,
		Quantity:   m.Quantity,
		CartItemID: m.CartItemID,
		Timestamp:  e.now().UnixMilli(),
	}

	if userID == "" || !e.online() {
		e.applyLocal(m, false)
		e.store.Enqueue(op)
		return nil
	}

	if err := e.applyRemote(ctx, userID, op); err != nil {
		e.applyLocal(m, false)
		e.store.Enqueue(op)
		return err
	}
	e.applyLocal(m, true)
	return nil
}

// applyRemote executes one operation against the remote store.
func (e *Engine) applyRemote(ctx context.Context, userID string, op OfflineOperation) error {
	switch op.Type {
	case OpAdd:
		return e.gateway.InsertCartRow(ctx, userID, op.ProductID, op.Quantity)
	case OpUpdate:
		return e.gateway.UpdateCartRow(ctx, op.CartItemID, op.Quantity)
	case OpRemove:
		return e.gateway.DeleteCartRow(ctx, op.CartItemID)
	case OpClear:
		return e.gateway.DeleteAllCartRows(ctx, userID)
	default:
		e.logger.Printf("cartsync: ignoring operation %s with unknown type %q", op.ID, op.Type)
		return nil
	}
}

// applyLocal applies a mutation to the persisted snapshot and recomputes
// the totals. confirmed marks the touched item as acknowledged by the
// remote store; an unconfirmed item stays flagged IsLocal until a sync
// reconciles it.
func (e *Engine) applyLocal(m Mutation, confirmed bool) {
	state := e.store.LoadCart()
	if state == nil {
		state = &CartState{}
	}
	now := e.now().UnixMilli()

	switch m.Type {
	case OpAdd:
		found := false
		for i := range state.Items {
			if state.Items[i].ProductID == m.ProductID {
				state.Items[i].Quantity += m.Quantity
				state.Items[i].LastModified = now
				state.Items[i].IsLocal = !confirmed
				found = true
				break
			}
		}
		if !found {
			state.Items = append(state.Items, CartItem{
				ProductID:    m.ProductID,
				Name:         m.Name,
				Price:        m.Price,
				Image:        m.Image,
				Quantity:     m.Quantity,
				LastModified: now,
				IsLocal:      !confirmed,
			})
		}
	case OpUpdate:
		for i := range state.Items {
			if e.matches(state.Items[i], m) {
				state.Items[i].Quantity = m.Quantity
				state.Items[i].LastModified = now
				state.Items[i].IsLocal = !confirmed
				break
			}
		}
		state.Items = dropRemoved(state.Items)
	case OpRemove:
		kept := state.Items[:0]
		for _, item := range state.Items {
			if !e.matches(item, m) {
				kept = append(kept, item)
			}
		}
		state.Items = kept
	case OpClear:
		state.Items = nil
	}

	state.TotalItems, state.Subtotal = CalculateTotals(state.Items)
	e.store.SaveCart(*state)
}

// matches locates an item by remote row id when the mutation carries one,
// falling back to the product key for local-only items.
func (e *Engine) matches(item CartItem, m Mutation) bool {
	if m.CartItemID != "" && item.ID != "" {
		return item.ID == m.CartItemID
	}
	return m.ProductID != "" && item.ProductID == m.ProductID
}

func dropRemoved(items []CartItem) []CartItem {
	kept := items[:0]
	for _, item := range items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	return kept
}

func (e *Engine) enqueue(op OfflineOperation) {
	op.ID = newOperationID(e.now())
	op.Timestamp = e.now().UnixMilli()
	e.store.Enqueue(op)
}

func (e *Engine) setSyncing(v bool) {
	e.stateMu.Lock()
	e.syncing = v
	e.stateMu.Unlock()
}
