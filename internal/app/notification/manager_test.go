package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*Notification
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingStream) received() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.got...)
}

func TestManager_SubscribeUnsubscribe(t *testing.T) {
	m := NewManager()

	id1 := m.Subscribe(&recordingStream{})
	id2 := m.Subscribe(&recordingStream{})
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Unsubscribe(id1)
	assert.Equal(t, 1, m.SubscriberCount())

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_BroadcastSequence(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{err: errors.New("client gone")}
	m.Subscribe(a)
	m.Subscribe(b)

	m.Broadcast(&Notification{Type: TypeState})
	m.Broadcast(&Notification{Type: TypeTrack, Track: &TrackInfo{TrackID: "1"}})

	got := a.received()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].SequenceNo)
	assert.Equal(t, uint64(2), got[1].SequenceNo)
	assert.Equal(t, TypeTrack, got[1].Type)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Len(t, b.received(), 2, "send errors do not stop broadcasting")
	assert.Equal(t, 2, m.SubscriberCount())
}

func TestManager_BroadcastDropsFailingSubscriber(t *testing.T) {
	m := NewManager()
	healthy := &recordingStream{}
	gone := &recordingStream{err: errors.New("client gone")}
	m.Subscribe(healthy)
	m.Subscribe(gone)

	for i := 0; i < maxSendFailures; i++ {
		m.Broadcast(&Notification{Type: TypeState})
	}
	assert.Equal(t, 1, m.SubscriberCount())

	m.Broadcast(&Notification{Type: TypeState})
	assert.Len(t, gone.received(), maxSendFailures)
	assert.Len(t, healthy.received(), maxSendFailures+1)
}

func TestManager_BroadcastConcurrentOrder(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	m.Subscribe(s)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Broadcast(&Notification{Type: TypeVolume})
		}()
	}
	wg.Wait()

	got := s.received()
	require.Len(t, got, 20)
	for i, n := range got {
		assert.Equal(t, uint64(i+1), n.SequenceNo)
	}
}

func TestManager_BroadcastSkipsSlowSubscriber(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{block: make(chan struct{})}
	fast := &recordingStream{}
	m.Subscribe(slow)
	m.Subscribe(fast)
	defer close(slow.block)

	start := time.Now()
	m.Broadcast(&Notification{Type: TypeVolume})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, fast.received(), 1)
}

func TestManager_Send(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s)

	require.NoError(t, m.Send(id, &Notification{Type: TypeInitial}))
	require.NoError(t, m.Send("unknown", &Notification{Type: TypeInitial}))

	assert.Len(t, s.received(), 1)
}

func TestType_String(t *testing.T) {
	tests := []struct {
		typ      Type
		expected string
	}{
		{TypeInitial, "initial"},
		{TypeState, "state"},
		{TypeTrack, "track"},
		{TypeVolume, "volume"},
		{Type(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.typ.String())
	}
}

func TestType_TextRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeInitial, TypeState, TypeTrack, TypeVolume} {
		text, err := typ.MarshalText()
		require.NoError(t, err)

		var got Type
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, typ, got)
	}

	var bad Type
	assert.Error(t, bad.UnmarshalText([]byte("bogus")))
}
