package events

import (
	"testing"

	"uiforge/uiforge/utils/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversPerMessage(t *testing.T) {
	b := NewBroker()
	a, cancelA := b.Subscribe("m1")
	other, cancelOther := b.Subscribe("m2")
	defer cancelOther()

	b.Publish(types.MessageEvent{MessageID: "m1", Status: "completed"})

	ev := <-a
	assert.Equal(t, "completed", ev.Status)
	select {
	case <-other:
		t.Fatal("m2 subscriber got an m1 event")
	default:
	}

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
}

func TestBrokerPublishNeverBlocks(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("m")
	defer cancel()
	for i := 0; i < subscriberBuffer*3; i++ {
		b.Publish(types.MessageEvent{MessageID: "m"})
	}
	require.Len(t, ch, subscriberBuffer)
}
