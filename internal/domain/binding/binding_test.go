package binding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		bName    string
		clientID string
	}{
		{name: "with client id", id: "b-1", bName: "bedroom", clientID: "phone-1"},
		{name: "anonymous", id: "b-2", bName: "cli", clientID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.id, tt.bName, tt.clientID)

			assert.Equal(t, tt.id, b.ID)
			assert.Equal(t, tt.bName, b.Name)
			assert.Equal(t, tt.clientID, b.ClientID)
			assert.Equal(t, 0, b.Commands)
			assert.WithinDuration(t, time.Now(), b.BoundAt, time.Second)
			assert.Equal(t, b.BoundAt, b.LastSeenAt)
		})
	}
}

func TestBinding_Touch(t *testing.T) {
	b := New("b-1", "bedroom", "")
	first := b.LastSeenAt

	time.Sleep(time.Millisecond)
	b.Touch()
	b.Touch()

	assert.Equal(t, 2, b.Commands)
	assert.True(t, b.LastSeenAt.After(first))
}
