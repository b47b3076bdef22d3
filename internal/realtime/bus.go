package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/Odiabackend099/voxanne-console/internal/core/domain"
	"github.com/Odiabackend099/voxanne-console/internal/core/ports"
)

// streamPath is the backend's live-call event stream endpoint.
const streamPath = "/ws/live-calls"

// State is the bus connection state.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// Status is a point-in-time snapshot of the connection for UI and ops
// surfaces.
type Status struct {
	State     State `json:"state"`
	Attempts  int   `json:"attempts"`
	Available bool  `json:"available"`
}

// Conn is the subset of a WebSocket connection the bus uses. Tests plug
// in scripted connections; production uses gorilla via the default
// dialer.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Dialer establishes one stream connection.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string) (Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) DialContext(ctx context.Context, urlStr string) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, urlStr, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config holds bus construction parameters.
type Config struct {
	// BackendURL is the backend's http(s) base URL. The stream scheme
	// (ws/wss) follows the URL's scheme.
	BackendURL string

	// TrackingID, when set, is sent in the subscribe handshake right
	// after each successful open.
	TrackingID string

	Policy RetryPolicy
}

// Option customizes a Bus.
type Option func(*Bus)

// WithClock injects the clock used for reconnect timers.
func WithClock(clock clockwork.Clock) Option {
	return func(b *Bus) { b.clock = clock }
}

// WithDialer injects the connection dialer.
func WithDialer(d Dialer) Option {
	return func(b *Bus) { b.dialer = d }
}

// WithLogger injects the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) { b.logger = logger.With("component", "realtime_bus") }
}

// Bus maintains the single persistent connection to the backend's
// live-call event stream and dispatches decoded events to subscribers.
// Construct with New and drive with Run; cancelling Run's context is
// teardown. A bus that has exhausted its reconnect budget stays terminal
// until torn down and a new one is constructed.
type Bus struct {
	endpoint   string
	trackingID string
	policy     RetryPolicy

	clock  clockwork.Clock
	dialer Dialer
	logger *slog.Logger

	mu        sync.Mutex
	subs      map[domain.EventKind]map[int]func(domain.StreamEvent)
	nextSubID int
	state     State
	attempts  int
	available bool
}

// Ensure Bus implements the EventSource interface.
var _ ports.EventSource = (*Bus)(nil)

// StreamEndpoint derives the ws(s) stream URL from the backend's http(s)
// base URL.
func StreamEndpoint(backendURL string) (string, error) {
	u, err := url.Parse(backendURL)
	if err != nil {
		return "", fmt.Errorf("parsing backend url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("backend url has unsupported scheme %q", u.Scheme)
	}

	u.Path = streamPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// New creates a Bus. It does not connect; call Run.
func New(cfg Config, opts ...Option) (*Bus, error) {
	endpoint, err := StreamEndpoint(cfg.BackendURL)
	if err != nil {
		return nil, err
	}

	policy := cfg.Policy
	if policy.Ceiling == 0 {
		policy = DefaultRetryPolicy()
	}

	b := &Bus{
		endpoint:   endpoint,
		trackingID: cfg.TrackingID,
		policy:     policy,
		clock:      clockwork.NewRealClock(),
		dialer:     gorillaDialer{},
		logger:     slog.Default().With("component", "realtime_bus"),
		subs:       make(map[domain.EventKind]map[int]func(domain.StreamEvent)),
		state:      StateClosed,
		available:  true,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Subscribe registers fn for one event kind, or for domain.KindAny to
// receive every event. The returned cancel removes exactly this
// registration; removing the last registration for a kind frees the
// kind's entry.
func (b *Bus) Subscribe(kind domain.EventKind, fn func(domain.StreamEvent)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++

	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]func(domain.StreamEvent))
	}
	b.subs[kind][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[kind]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(b.subs, kind)
			}
		}
	}
}

// Status returns a snapshot of the connection state.
func (b *Bus) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{State: b.state, Attempts: b.attempts, Available: b.available}
}

// Available reports whether the backend stream is considered reachable.
// It flips to false only when the reconnect ceiling has been exhausted.
func (b *Bus) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Run connects and keeps the stream alive until ctx is cancelled,
// reconnecting with the configured backoff after every close. Once the
// ceiling is exhausted the bus marks the backend unavailable and parks
// until teardown.
func (b *Bus) Run(ctx context.Context) error {
	for {
		b.setState(StateConnecting)

		conn, err := b.dialer.DialContext(ctx, b.endpoint)
		if ctx.Err() != nil {
			b.setState(StateClosed)
			return ctx.Err()
		}
		if err != nil {
			b.logger.Warn("stream dial failed", "endpoint", b.endpoint, "error", err)
		} else {
			b.onOpen(conn)
			b.readLoop(ctx, conn)
			_ = conn.Close()
			if ctx.Err() != nil {
				b.setState(StateClosed)
				return ctx.Err()
			}
		}

		b.setState(StateClosed)

		b.mu.Lock()
		attempt := b.attempts
		if !b.policy.ShouldRetry(attempt) {
			b.available = false
			b.mu.Unlock()
			b.logger.Error("reconnect ceiling exhausted, marking backend unavailable",
				"attempts", attempt,
			)
			<-ctx.Done()
			return ctx.Err()
		}
		b.attempts++
		delay := b.policy.DelayFor(attempt)
		b.mu.Unlock()

		b.logger.Info("scheduling stream reconnect",
			"attempt", attempt+1,
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.clock.After(delay):
		}
	}
}

func (b *Bus) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// onOpen marks the stream healthy and sends the subscribe handshake.
func (b *Bus) onOpen(conn Conn) {
	b.mu.Lock()
	b.state = StateOpen
	b.attempts = 0
	b.available = true
	b.mu.Unlock()

	b.logger.Info("stream connected", "endpoint", b.endpoint)

	if b.trackingID != "" {
		if err := conn.WriteJSON(domain.NewSubscribeMessage(b.trackingID)); err != nil {
			b.logger.Warn("failed to send subscribe handshake", "error", err)
		}
	}
}

// readLoop pumps frames until the connection drops or ctx is cancelled.
// A helper goroutine closes the connection on cancellation so the
// blocking read unwinds promptly.
func (b *Bus) readLoop(ctx context.Context, conn Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("stream closed", "error", err)
			}
			return
		}
		b.dispatch(frame)
	}
}

// dispatch decodes one frame and delivers it to matching subscribers.
// Malformed frames are logged and dropped; a panicking subscriber never
// stops its siblings.
func (b *Bus) dispatch(frame []byte) {
	ev, err := domain.ParseStreamEvent(frame)
	if err != nil {
		if errors.Is(err, domain.ErrMissingEventType) {
			b.logger.Debug("dropping frame without type field")
		} else {
			b.logger.Warn("dropping malformed frame", "error", err)
		}
		return
	}

	b.mu.Lock()
	callbacks := make([]func(domain.StreamEvent), 0, len(b.subs[ev.Kind])+len(b.subs[domain.KindAny]))
	for _, fn := range b.subs[ev.Kind] {
		callbacks = append(callbacks, fn)
	}
	for _, fn := range b.subs[domain.KindAny] {
		callbacks = append(callbacks, fn)
	}
	b.mu.Unlock()

	for _, fn := range callbacks {
		b.invoke(fn, ev)
	}
}

func (b *Bus) invoke(fn func(domain.StreamEvent), ev domain.StreamEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked", "kind", ev.Kind, "panic", r)
		}
	}()
	fn(ev)
}
