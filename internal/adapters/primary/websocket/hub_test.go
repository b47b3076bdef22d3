package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	go hub.Run()
	return hub
}

func register(t *testing.T, hub *Hub) *Client {
	t.Helper()
	client := NewClient(hub, nil, uuid.New(), testLogger())
	hub.Register <- client
	return client
}

func receive(t *testing.T, client *Client) domain.StreamEvent {
	t.Helper()
	select {
	case ev := <-client.Send:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.StreamEvent{}
	}
}

func assertNoEvent(t *testing.T, client *Client) {
	t.Helper()
	select {
	case ev := <-client.Send:
		t.Fatalf("unexpected event: %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoutesByTrackingID(t *testing.T) {
	hub := newTestHub(t)

	watcher := register(t, hub)
	bystander := register(t, hub)
	hub.subscribeClientToCall(watcher, "track-1")

	require.NoError(t, hub.Broadcast(domain.StreamEvent{
		Kind:       domain.KindTranscript,
		TrackingID: "track-1",
		Frame:      json.RawMessage(`{"type":"transcript","text":"hello"}`),
	}))

	got := receive(t, watcher)
	assert.Equal(t, domain.KindTranscript, got.Kind)
	assert.JSONEq(t, `{"type":"transcript","text":"hello"}`, string(got.Frame))

	assertNoEvent(t, bystander)
}

func TestHub_EventsWithoutTrackingIDReachEveryone(t *testing.T) {
	hub := newTestHub(t)

	a := register(t, hub)
	b := register(t, hub)
	hub.subscribeClientToCall(a, "track-1")

	require.NoError(t, hub.Broadcast(domain.StreamEvent{Kind: domain.KindMetricsUpdate}))

	assert.Equal(t, domain.KindMetricsUpdate, receive(t, a).Kind)
	assert.Equal(t, domain.KindMetricsUpdate, receive(t, b).Kind)
}

func TestHub_EventForEmptyRoomIsDropped(t *testing.T) {
	hub := newTestHub(t)

	client := register(t, hub)

	require.NoError(t, hub.Broadcast(domain.StreamEvent{
		Kind:       domain.KindCallStatus,
		TrackingID: "nobody-watching",
	}))

	assertNoEvent(t, client)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub(t)

	client := register(t, hub)
	hub.subscribeClientToCall(client, "track-9")
	require.Equal(t, 1, hub.GetClientsInRoom("track-9"))

	hub.unsubscribeClientFromCall(client, "track-9")
	assert.Equal(t, 0, hub.GetClientsInRoom("track-9"))
	assert.Equal(t, 0, hub.GetRoomCount())

	require.NoError(t, hub.Broadcast(domain.StreamEvent{
		Kind:       domain.KindTranscript,
		TrackingID: "track-9",
	}))
	assertNoEvent(t, client)
}

func TestHub_UnregisterCleansRoomsAndClosesSend(t *testing.T) {
	hub := newTestHub(t)

	client := register(t, hub)
	hub.subscribeClientToCall(client, "track-2")

	hub.Unregister <- client

	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 0 && hub.GetRoomCount() == 0
	}, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open, "send channel should be closed after unregister")
	assert.False(t, hub.IsUserConnected(client.UserID))
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	hub := newTestHub(t)

	userID := uuid.New()
	first := NewClient(hub, nil, userID, testLogger())
	second := NewClient(hub, nil, userID, testLogger())
	hub.Register <- first
	hub.Register <- second

	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 },
		time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsUserConnected(userID))

	hub.Unregister <- first
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsUserConnected(userID), "second connection should keep the user online")
}

func TestHub_SlowClientDroppedSiblingsUnaffected(t *testing.T) {
	hub := newTestHub(t)

	slow := register(t, hub)
	healthy := register(t, hub)
	hub.subscribeClientToCall(slow, "slow-call")
	hub.subscribeClientToCall(healthy, "healthy-call")

	// Fill the slow client's send buffer without draining it.
	for i := 0; i < cap(slow.Send); i++ {
		slow.Send <- domain.StreamEvent{Kind: domain.KindTranscript, TrackingID: "slow-call"}
	}

	// The next event for the full client gets it dropped, not the hub.
	require.NoError(t, hub.Broadcast(domain.StreamEvent{
		Kind:       domain.KindTranscript,
		TrackingID: "slow-call",
	}))

	require.Eventually(t, func() bool { return !hub.IsUserConnected(slow.UserID) },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.GetClientsInRoom("slow-call"))

	require.NoError(t, hub.Broadcast(domain.StreamEvent{
		Kind:       domain.KindCallStatus,
		TrackingID: "healthy-call",
	}))
	assert.Equal(t, domain.KindCallStatus, receive(t, healthy).Kind)
}

func TestClient_SubscriptionBookkeeping(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient(hub, nil, uuid.New(), testLogger())

	client.AddSubscription("track-a")
	client.AddSubscription("track-b")
	assert.True(t, client.HasSubscription("track-a"))
	assert.ElementsMatch(t, []string{"track-a", "track-b"}, client.GetSubscriptions())

	client.RemoveSubscription("track-a")
	assert.False(t, client.HasSubscription("track-a"))

	// CloseSend is idempotent.
	client.CloseSend()
	client.CloseSend()
}

func TestClient_HandleIncomingMessage(t *testing.T) {
	hub := newTestHub(t)
	client := register(t, hub)

	client.handleIncomingMessage([]byte(`{"type":"subscribe","trackingId":"track-7"}`))
	assert.True(t, client.HasSubscription("track-7"))
	assert.Equal(t, 1, hub.GetClientsInRoom("track-7"))

	client.handleIncomingMessage([]byte(`{"type":"unsubscribe","trackingId":"track-7"}`))
	assert.False(t, client.HasSubscription("track-7"))

	// Subscribe without a tracking id is ignored.
	client.handleIncomingMessage([]byte(`{"type":"subscribe"}`))
	assert.Empty(t, client.GetSubscriptions())

	// Garbage and unknown types are ignored.
	client.handleIncomingMessage([]byte(`not json`))
	client.handleIncomingMessage([]byte(`{"type":"mystery"}`))

	client.handleIncomingMessage([]byte(`{"type":"ping"}`))
	assert.Equal(t, domain.KindPong, receive(t, client).Kind)
}
