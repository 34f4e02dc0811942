package cartsync

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LocalStore is the durable device-side persistence for the cart snapshot
// and the offline operation queue. Implementations never surface errors to
// callers: persistence failures are logged and swallowed, and unreadable
// stored data is treated as absence so a corrupt file can never brick the
// cart.
type LocalStore interface {
	// SaveCart overwrites the persisted snapshot.
	SaveCart(cart CartState)
	// LoadCart returns the last persisted snapshot, or nil if none exists
	// or the stored data is unreadable.
	LoadCart() *CartState
	// Enqueue appends one operation to the persisted queue.
	Enqueue(op OfflineOperation)
	// ReadQueue returns the queued operations in order.
	ReadQueue() []OfflineOperation
	// WriteQueue replaces the persisted queue.
	WriteQueue(ops []OfflineOperation)
	// ClearQueue removes the persisted queue entirely.
	ClearQueue()
}

const (
	cartFileName  = "cart.json"
	queueFileName = "offline_ops.json"
)

// persistedCart wraps the snapshot with the time it was written, matching
// what LoadCart discards when the payload cannot be decoded.
type persistedCart struct {
	Cart    CartState `json:"cart"`
	SavedAt int64     `json:"saved_at"`
}

// FileStore persists the cart and queue as JSON files under a directory.
type FileStore struct {
	dir    string
	logger *log.Logger
	mu     sync.Mutex
}

// NewFileStore creates the directory if needed. logger may be nil, in which
// case the standard logger is used.
func NewFileStore(dir string, logger *log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) SaveCart(cart CartState) {
	// The in-progress flag is transient and must never survive a restart.
	cart.SyncInProgress = false
	s.writeFile(cartFileName, persistedCart{Cart: cart, SavedAt: time.Now().UnixMilli()})
}

func (s *FileStore) LoadCart() *CartState {
	var stored persistedCart
	if !s.readFile(cartFileName, &stored) {
		return nil
	}
	stored.Cart.SyncInProgress = false
	return &stored.Cart
}

func (s *FileStore) Enqueue(op OfflineOperation) {
	ops := s.ReadQueue()
	s.WriteQueue(append(ops, op))
}

func (s *FileStore) ReadQueue() []OfflineOperation {
	var ops []OfflineOperation
	if !s.readFile(queueFileName, &ops) {
		return nil
	}
	return ops
}

func (s *FileStore) WriteQueue(ops []OfflineOperation) {
	s.writeFile(queueFileName, ops)
}

func (s *FileStore) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(filepath.Join(s.dir, queueFileName)); err != nil && !os.IsNotExist(err) {
		s.logger.Printf("cartsync: failed to clear offline queue: %v", err)
	}
}

// writeFile marshals v and atomically replaces the named file. Failures are
// logged and leave the previous contents in place.
func (s *FileStore) writeFile(name string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("cartsync: failed to encode %s: %v", name, err)
		return
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logger.Printf("cartsync: failed to write %s: %v", name, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Printf("cartsync: failed to replace %s: %v", name, err)
		os.Remove(tmp)
	}
}

// readFile reports whether the named file existed and decoded cleanly.
// Corrupt data is discarded and treated as absence.
func (s *FileStore) readFile(name string, v interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("cartsync: failed to read %s: %v", name, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Printf("cartsync: discarding corrupt %s: %v", name, err)
		return false
	}
	return true
}

// MemoryStore is an in-memory LocalStore, used in tests and by callers that
// do not want anything written to disk.
type MemoryStore struct {
	mu    sync.Mutex
	cart  *CartState
	queue []OfflineOperation
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) SaveCart(cart CartState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart.SyncInProgress = false
	cart.Items = append([]CartItem(nil), cart.Items...)
	s.cart = &cart
}

func (s *MemoryStore) LoadCart() *CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart == nil {
		return nil
	}
	copied := *s.cart
	copied.Items = append([]CartItem(nil), s.cart.Items...)
	return &copied
}

func (s *MemoryStore) Enqueue(op OfflineOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, op)
}

func (s *MemoryStore) ReadQueue() []OfflineOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OfflineOperation(nil), s.queue...)
}

func (s *MemoryStore) WriteQueue(ops []OfflineOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append([]OfflineOperation(nil), ops...)
}

func (s *MemoryStore) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
}
