package cartsync

import (
	"log"
	"sync"
	"time"
)

// EventType identifies a monitor notification.
type EventType string

const (
	// EventReconnected fires when connectivity returns and queued offline
	// work exists.
	EventReconnected EventType = "cart-reconnection"
	// EventPeriodicSync fires on a fixed interval regardless of queue
	// state, so multi-device drift is corrected even without local
	// mutations.
	EventPeriodicSync EventType = "cart-periodic-sync"
)

// Event is a sync opportunity emitted by the Monitor.
type Event struct {
	Type                 EventType
	HasOfflineOperations bool
}

// DefaultSyncInterval is the periodic sync cadence.
const DefaultSyncInterval = 30 * time.Second

// Monitor observes connectivity transitions and elapsed time and emits
// sync opportunities on its event channel. It replaces the browser-style
// global listeners with an explicit start/stop lifecycle.
type Monitor struct {
	store    LocalStore
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	online  bool
	started bool
	stop    chan struct{}
	events  chan Event
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval overrides the periodic sync cadence.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.interval = d }
}

// WithMonitorLogger overrides the standard logger.
func WithMonitorLogger(logger *log.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// NewMonitor creates a monitor that starts out online.
func NewMonitor(store LocalStore, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		store:    store,
		interval: DefaultSyncInterval,
		logger:   log.Default(),
		online:   true,
		events:   make(chan Event, 8),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events is the channel consumers subscribe to for sync opportunities.
func (m *Monitor) Events() <-chan Event { return m.events }

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity transition. On an offline-to-online
// transition with a non-empty offline queue, a reconnection event is
// emitted.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	m.mu.Unlock()

	if online && !wasOnline {
		if queued := m.store.ReadQueue(); len(queued) > 0 {
			m.emit(Event{Type: EventReconnected, HasOfflineOperations: true})
		}
	}
}

// Start launches the periodic ticker. Calling Start on a running monitor
// is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.emit(Event{Type: EventPeriodicSync})
			}
		}
	}()
}

// Stop releases the ticker goroutine. It is safe to call repeatedly and
// before Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.started = false
	close(m.stop)
}

// emit never blocks; if the consumer has fallen behind the event is
// dropped, since the next tick repeats the signal anyway.
func (m *Monitor) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Printf("cartsync: dropping %s event, subscriber not keeping up", ev.Type)
	}
}
