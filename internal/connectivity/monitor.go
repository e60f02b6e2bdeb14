// Package connectivity observes network reachability transitions and wires
// them into sync queue drainage. The signal is advisory: delivery attempts
// may still be made while reported offline and may still fail while reported
// online; the queue's own failure handling is the final authority.
package connectivity

import "sync"

// Monitor exposes the current reachability signal and transition events.
type Monitor interface {
	Online() bool
	// Subscribe returns a channel receiving the new state on every
	// transition. The caller must invoke the cancel function to avoid leaks.
	Subscribe() (<-chan bool, func())
}

// SignalMonitor is an event-driven Monitor fed by platform adapters calling
// SetOnline. No polling; subscribers only see actual transitions.
type SignalMonitor struct {
	mu          sync.Mutex
	online      bool
	subscribers map[chan bool]struct{}
}

// NewSignalMonitor starts in the given state.
func NewSignalMonitor(online bool) *SignalMonitor {
	return &SignalMonitor{
		online:      online,
		subscribers: make(map[chan bool]struct{}),
	}
}

func (m *SignalMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a reachability report. Repeated reports of the same state
// are absorbed without notifying subscribers.
func (m *SignalMonitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	for ch := range m.subscribers {
		select {
		case ch <- online:
		default:
			// Drop the stale state so a slow subscriber never blocks the
			// transition and always observes the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- online
		}
	}
}

func (m *SignalMonitor) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 4)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// Drainer is the part of the sync queue the monitor triggers.
type Drainer interface {
	TriggerDrain()
}

// BindDrain triggers a drain on every offline-to-online transition. It
// returns a stop function releasing the subscription.
func BindDrain(monitor Monitor, queue Drainer) func() {
	ch, cancel := monitor.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for online := range ch {
			if online {
				queue.TriggerDrain()
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
