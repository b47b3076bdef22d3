package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/realtime"
)

// scriptConn is a scripted stream connection. Frames pushed into the
// frames channel come out of ReadMessage; closing the channel (or the
// connection) ends the read with an error, like a dropped socket.
type scriptConn struct {
	frames chan []byte
	wrote  chan any
	closed chan struct{}
	once   sync.Once
}

func newScriptConn() *scriptConn {
	return &scriptConn{
		frames: make(chan []byte, 16),
		wrote:  make(chan any, 16),
		closed: make(chan struct{}),
	}
}

func (c *scriptConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return 0, nil, errors.New("connection reset by peer")
		}
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *scriptConn) WriteJSON(v any) error {
	select {
	case c.wrote <- v:
	default:
	}
	return nil
}

func (c *scriptConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *scriptConn) drop() {
	close(c.frames)
}

// scriptDialer returns its connections in order; a nil entry is a dial
// failure, and an exhausted script keeps failing.
type scriptDialer struct {
	mu    sync.Mutex
	conns []*scriptConn
	dials int
}

func (d *scriptDialer) DialContext(ctx context.Context, urlStr string) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	if c == nil {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func TestStreamEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		backendURL string
		want       string
		wantErr    bool
	}{
		{name: "https becomes wss", backendURL: "https://api.voxanne.ai", want: "wss://api.voxanne.ai/ws/live-calls"},
		{name: "http becomes ws", backendURL: "http://localhost:8000", want: "ws://localhost:8000/ws/live-calls"},
		{name: "query and fragment stripped", backendURL: "https://api.voxanne.ai/?x=1#y", want: "wss://api.voxanne.ai/ws/live-calls"},
		{name: "unsupported scheme", backendURL: "ftp://api.voxanne.ai", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := realtime.StreamEndpoint(tt.backendURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func startBus(t *testing.T, bus *realtime.Bus) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("bus did not shut down")
		}
	}
}

func TestBus_SendsSubscribeHandshakeOnOpen(t *testing.T) {
	conn := newScriptConn()
	dialer := &scriptDialer{conns: []*scriptConn{conn}}

	bus, err := realtime.New(realtime.Config{
		BackendURL: "https://api.voxanne.ai",
		TrackingID: "track-42",
	}, realtime.WithDialer(dialer))
	require.NoError(t, err)

	stop := startBus(t, bus)
	defer stop()

	select {
	case msg := <-conn.wrote:
		assert.Equal(t, domain.SubscribeMessage{Type: "subscribe", TrackingID: "track-42"}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("handshake was never written")
	}

	require.Eventually(t, func() bool {
		return bus.Status().State == realtime.StateOpen
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, bus.Available())
	assert.Equal(t, 0, bus.Status().Attempts)
}

func TestBus_DispatchesToExactAndWildcardSubscribers(t *testing.T) {
	conn := newScriptConn()
	dialer := &scriptDialer{conns: []*scriptConn{conn}}

	bus, err := realtime.New(realtime.Config{BackendURL: "http://localhost:8000"},
		realtime.WithDialer(dialer))
	require.NoError(t, err)

	transcripts := make(chan domain.StreamEvent, 8)
	everything := make(chan domain.StreamEvent, 8)
	statuses := make(chan domain.StreamEvent, 8)

	bus.Subscribe(domain.KindTranscript, func(ev domain.StreamEvent) { transcripts <- ev })
	bus.Subscribe(domain.KindAny, func(ev domain.StreamEvent) { everything <- ev })
	bus.Subscribe(domain.KindCallStatus, func(ev domain.StreamEvent) { statuses <- ev })

	stop := startBus(t, bus)
	defer stop()

	conn.frames <- []byte(`{"type":"transcript","speaker":"agent","text":"hello","is_final":true,"ts":1}`)
	conn.frames <- []byte(`{"type":"call_status","call_id":"c-1","status":"completed"}`)

	ev := waitFor(t, transcripts)
	assert.Equal(t, domain.KindTranscript, ev.Kind)
	assert.Equal(t, "hello", ev.Transcript.Text)

	ev = waitFor(t, statuses)
	assert.Equal(t, domain.KindCallStatus, ev.Kind)

	// The wildcard subscriber sees both events.
	assert.Equal(t, domain.KindTranscript, waitFor(t, everything).Kind)
	assert.Equal(t, domain.KindCallStatus, waitFor(t, everything).Kind)

	// The typed subscriber never sees the other type.
	select {
	case ev := <-transcripts:
		t.Fatalf("transcript subscriber received %s event", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_PanickingSubscriberDoesNotStopSiblings(t *testing.T) {
	conn := newScriptConn()
	dialer := &scriptDialer{conns: []*scriptConn{conn}}

	bus, err := realtime.New(realtime.Config{BackendURL: "http://localhost:8000"},
		realtime.WithDialer(dialer))
	require.NoError(t, err)

	received := make(chan domain.StreamEvent, 8)
	bus.Subscribe(domain.KindTranscript, func(domain.StreamEvent) { panic("subscriber bug") })
	bus.Subscribe(domain.KindTranscript, func(ev domain.StreamEvent) { received <- ev })
	bus.Subscribe(domain.KindAny, func(domain.StreamEvent) { panic("wildcard bug") })

	stop := startBus(t, bus)
	defer stop()

	conn.frames <- []byte(`{"type":"transcript","speaker":"customer","text":"still here","is_final":false,"ts":2}`)

	ev := waitFor(t, received)
	assert.Equal(t, "still here", ev.Transcript.Text)

	// The bus survives: a second event is still delivered.
	conn.frames <- []byte(`{"type":"transcript","speaker":"customer","text":"again","is_final":true,"ts":3}`)
	assert.Equal(t, "again", waitFor(t, received).Transcript.Text)
}

func TestBus_MalformedFramesAreDropped(t *testing.T) {
	conn := newScriptConn()
	dialer := &scriptDialer{conns: []*scriptConn{conn}}

	bus, err := realtime.New(realtime.Config{BackendURL: "http://localhost:8000"},
		realtime.WithDialer(dialer))
	require.NoError(t, err)

	received := make(chan domain.StreamEvent, 8)
	bus.Subscribe(domain.KindAny, func(ev domain.StreamEvent) { received <- ev })

	stop := startBus(t, bus)
	defer stop()

	conn.frames <- []byte(`{not json`)
	conn.frames <- []byte(`{"speaker":"agent"}`) // no type field
	conn.frames <- []byte(`{"type":"pong"}`)

	// Only the well-formed frame arrives.
	assert.Equal(t, domain.KindPong, waitFor(t, received).Kind)
	select {
	case ev := <-received:
		t.Fatalf("unexpected event %s from malformed frame", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_UnsubscribeRemovesExactlyThatRegistration(t *testing.T) {
	conn := newScriptConn()
	dialer := &scriptDialer{conns: []*scriptConn{conn}}

	bus, err := realtime.New(realtime.Config{BackendURL: "http://localhost:8000"},
		realtime.WithDialer(dialer))
	require.NoError(t, err)

	first := make(chan domain.StreamEvent, 8)
	second := make(chan domain.StreamEvent, 8)
	cancelFirst := bus.Subscribe(domain.KindTranscript, func(ev domain.StreamEvent) { first <- ev })
	cancelSecond := bus.Subscribe(domain.KindTranscript, func(ev domain.StreamEvent) { second <- ev })

	stop := startBus(t, bus)
	defer stop()

	cancelFirst()

	conn.frames <- []byte(`{"type":"transcript","speaker":"agent","text":"one","is_final":true,"ts":1}`)
	assert.Equal(t, "one", waitFor(t, second).Transcript.Text)
	select {
	case <-first:
		t.Fatal("cancelled subscriber still received an event")
	case <-time.After(100 * time.Millisecond):
	}

	// Removing the last registration leaves later events with zero
	// receivers, without error.
	cancelSecond()
	conn.frames <- []byte(`{"type":"transcript","speaker":"agent","text":"two","is_final":true,"ts":2}`)
	select {
	case <-second:
		t.Fatal("cancelled subscriber still received an event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_ReconnectsWithBackoffUntilCeiling(t *testing.T) {
	// Every dial fails, which counts as a close: 16 closes in a row
	// should schedule exactly 15 reconnects and then flip availability.
	fc := clockwork.NewFakeClock()
	dialer := &scriptDialer{}

	bus, err := realtime.New(realtime.Config{
		BackendURL: "http://localhost:8000",
		Policy:     realtime.RetryPolicy{BaseDelay: time.Second, Multiplier: 2, Ceiling: 15},
	}, realtime.WithDialer(dialer), realtime.WithClock(fc))
	require.NoError(t, err)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx)
	}()

	for i := 0; i < 15; i++ {
		require.NoError(t, fc.BlockUntilContext(ctx, 1), "waiting for reconnect timer %d", i+1)
		fc.Advance(time.Duration(1<<i) * time.Second)
	}

	require.Eventually(t, func() bool {
		return !bus.Available()
	}, 2*time.Second, 10*time.Millisecond, "bus should give up after the ceiling")

	assert.Equal(t, 16, dialer.dialCount(), "initial connect plus 15 reconnects")
	assert.Equal(t, realtime.StateClosed, bus.Status().State)

	stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not shut down")
	}
}

func TestBus_SuccessfulOpenResetsAttempts(t *testing.T) {
	fc := clockwork.NewFakeClock()
	first := newScriptConn()
	second := newScriptConn()
	// Open, drop, fail one dial, then open again.
	dialer := &scriptDialer{conns: []*scriptConn{first, nil, second}}

	bus, err := realtime.New(realtime.Config{BackendURL: "http://localhost:8000"},
		realtime.WithDialer(dialer), realtime.WithClock(fc))
	require.NoError(t, err)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return bus.Status().State == realtime.StateOpen
	}, 2*time.Second, 10*time.Millisecond)

	first.drop()

	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second) // reconnect 1: dial fails
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(2 * time.Second) // reconnect 2: opens

	require.Eventually(t, func() bool {
		st := bus.Status()
		return st.State == realtime.StateOpen && st.Attempts == 0
	}, 2*time.Second, 10*time.Millisecond, "open should reset the attempt counter")
	assert.True(t, bus.Available())

	stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not shut down")
	}
}

func waitFor(t *testing.T, ch chan domain.StreamEvent) domain.StreamEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.StreamEvent{}
	}
}
