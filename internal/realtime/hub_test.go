package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vendalab/impact-backend/internal/logger"
)

func testHub(t *testing.T) *SSEHub {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewSSEHub(log)
}

func receive(t *testing.T, c *SSEClient) SSEMessage {
	t.Helper()
	select {
	case msg := <-c.Outbound:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no message received")
		return SSEMessage{}
	}
}

func TestBroadcastReachesSubscribedChannels(t *testing.T) {
	hub := testHub(t)
	alice := hub.NewSSEClient(uuid.New())
	bob := hub.NewSSEClient(uuid.New())
	hub.AddChannel(alice, ChannelEvent)
	hub.AddChannel(bob, ChannelNotifications)

	hub.Broadcast(SSEMessage{Channel: ChannelEvent, Event: SSEEventPhaseChanged})

	msg := receive(t, alice)
	if msg.Event != SSEEventPhaseChanged {
		t.Fatalf("event = %s, want PhaseChanged", msg.Event)
	}
	select {
	case m := <-bob.Outbound:
		t.Fatalf("unsubscribed client received %+v", m)
	default:
	}
}

func TestRemoveChannelStopsDelivery(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, ChannelEvent)
	hub.RemoveChannel(client, ChannelEvent)

	hub.Broadcast(SSEMessage{Channel: ChannelEvent, Event: SSEEventPhaseChanged})

	select {
	case m := <-client.Outbound:
		t.Fatalf("removed client received %+v", m)
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, ChannelEvent)

	// Fill the outbound buffer plus some; the hub must never block.
	for i := 0; i < cap(client.Outbound)+10; i++ {
		hub.Broadcast(SSEMessage{Channel: ChannelEvent, Event: SSEEventPhaseChanged})
	}

	drained := 0
	for {
		select {
		case <-client.Outbound:
			drained++
		default:
			if drained != cap(client.Outbound) {
				t.Fatalf("drained %d, want %d buffered", drained, cap(client.Outbound))
			}
			return
		}
	}
}

func TestRemoveClientClearsAllChannels(t *testing.T) {
	hub := testHub(t)
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, ChannelEvent)
	hub.AddChannel(client, ChannelNotifications)

	hub.RemoveClient(client)

	hub.Broadcast(SSEMessage{Channel: ChannelEvent, Event: SSEEventPhaseChanged})
	hub.Broadcast(SSEMessage{Channel: ChannelNotifications, Event: SSEEventNotificationCreated})
	select {
	case m := <-client.Outbound:
		t.Fatalf("removed client received %+v", m)
	default:
	}
}
