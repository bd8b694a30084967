// Package notification provides the notification manager for broadcasting session events.
package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const (
	sendTimeout = 500 * time.Millisecond
	// maxSendFailures consecutive failed or timed out sends drop a subscriber.
	maxSendFailures = 3
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

type subscription struct {
	id       string
	stream   Stream
	failures atomic.Int32
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	// broadcastMu keeps delivery order equal to sequence order
	broadcastMu sync.Mutex

	sequenceNoMu sync.Mutex
	sequenceNo   uint64

	now func() time.Time
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		now:           time.Now,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// NextSequenceNo returns the next sequence number.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps n and sends it to every subscriber in parallel.
// Broadcasts are delivered one at a time in sequence order. A subscriber that does not
// accept a notification within the send timeout is skipped, and dropped after
// maxSendFailures consecutive misses.
func (m *Manager) Broadcast(n *Notification) {
	m.broadcastMu.Lock()
	defer m.broadcastMu.Unlock()

	n.SequenceNo = m.NextSequenceNo()
	if n.Timestamp.IsZero() {
		n.Timestamp = m.now()
	}

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			if err := m.sendWithTimeout(s, n); err != nil {
				m.recordFailure(s, err)
				return
			}
			s.failures.Store(0)
		}(sub)
	}
	wg.Wait()
}

func (m *Manager) sendWithTimeout(s *subscription, n *Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.stream.Send(n)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) recordFailure(s *subscription, err error) {
	failures := s.failures.Add(1)
	zlog.Debug().Msgf("notification: send failed: subscription_id=%s failures=%d err=%v", s.id, failures, err)
	if failures < maxSendFailures {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscriptions[s.id] == s {
		delete(m.subscriptions, s.id)
		zlog.Info().Msgf("notification: subscriber dropped: subscription_id=%s", s.id)
	}
}

// Send sends a notification to one subscriber. Unknown subscriptions are ignored.
func (m *Manager) Send(subscriptionID string, n *Notification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = m.now()
	}
	return sub.stream.Send(n)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
