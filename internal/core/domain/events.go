package domain

import (
	"encoding/json"
	"errors"
)

// Pre-defined errors for stream event parsing.
var (
	ErrMalformedEvent   = errors.New("malformed stream event")
	ErrMissingEventType = errors.New("stream event has no type field")
)

// EventKind identifies one kind of live-call stream event.
type EventKind string

const (
	KindTranscript    EventKind = "transcript"
	KindCallStatus    EventKind = "call_status"
	KindMetricsUpdate EventKind = "metrics_update"
	KindConnected     EventKind = "connected"
	KindPong          EventKind = "pong"
	KindError         EventKind = "error"

	// KindRaw is the escape hatch for event types the console does not
	// recognize; the original type string is kept in StreamEvent.RawType.
	KindRaw EventKind = "raw"

	// KindAny matches every event kind when subscribing.
	KindAny EventKind = "*"
)

// StreamEvent is a single decoded message from the live-call stream.
// Frame keeps the original bytes so relays can forward events unchanged.
// At most one payload pointer is set, matching Kind.
type StreamEvent struct {
	Kind       EventKind
	RawType    string
	TrackingID string
	Transcript *TranscriptPayload
	CallStatus *CallStatusPayload
	Metrics    *MetricsPayload
	Error      *ErrorPayload
	Frame      json.RawMessage
}

// TranscriptPayload is a live transcript line.
type TranscriptPayload struct {
	Speaker    string  `json:"speaker"` // "agent" or "customer"
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Confidence float64 `json:"confidence,omitempty"`
	TS         float64 `json:"ts"`
}

// CallStatusPayload reports a call lifecycle change.
type CallStatusPayload struct {
	CallID   string  `json:"call_id,omitempty"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration,omitempty"`
}

// MetricsPayload is the periodic operational snapshot the backend pushes
// to dashboards. The backend nests it under a "data" member.
type MetricsPayload struct {
	Timestamp    string  `json:"timestamp"`
	ActiveCalls  int     `json:"active_calls"`
	TotalCalls   int     `json:"total_calls"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	P95LatencyMS float64 `json:"p95_latency_ms"`
	ErrorRate    float64 `json:"error_rate"`
}

// ErrorPayload carries a backend-reported stream error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// streamFrame is the superset of members the backend puts on a frame.
// Transcript fields live at the top level; metrics nest under "data".
type streamFrame struct {
	Type       string          `json:"type"`
	TrackingID string          `json:"trackingId"`
	CallID     string          `json:"call_id"`
	Speaker    string          `json:"speaker"`
	Text       string          `json:"text"`
	IsFinal    bool            `json:"is_final"`
	Confidence float64         `json:"confidence"`
	TS         float64         `json:"ts"`
	Status     string          `json:"status"`
	Duration   float64         `json:"duration"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// ParseStreamEvent decodes one frame from the live-call stream.
// Unrecognized types return a KindRaw event rather than an error, so new
// backend event types pass through untouched.
func ParseStreamEvent(frame []byte) (StreamEvent, error) {
	var f streamFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return StreamEvent{}, errors.Join(ErrMalformedEvent, err)
	}
	if f.Type == "" {
		return StreamEvent{}, ErrMissingEventType
	}

	ev := StreamEvent{
		TrackingID: f.TrackingID,
		Frame:      append(json.RawMessage(nil), frame...),
	}
	if ev.TrackingID == "" {
		ev.TrackingID = f.CallID
	}

	switch EventKind(f.Type) {
	case KindTranscript:
		ev.Kind = KindTranscript
		ev.Transcript = &TranscriptPayload{
			Speaker:    f.Speaker,
			Text:       f.Text,
			IsFinal:    f.IsFinal,
			Confidence: f.Confidence,
			TS:         f.TS,
		}

	case KindCallStatus:
		ev.Kind = KindCallStatus
		ev.CallStatus = &CallStatusPayload{
			CallID:   f.CallID,
			Status:   f.Status,
			Duration: f.Duration,
		}

	case KindMetricsUpdate:
		ev.Kind = KindMetricsUpdate
		ev.Metrics = &MetricsPayload{}
		if len(f.Data) > 0 {
			if err := json.Unmarshal(f.Data, ev.Metrics); err != nil {
				return StreamEvent{}, errors.Join(ErrMalformedEvent, err)
			}
		}

	case KindConnected:
		ev.Kind = KindConnected

	case KindPong:
		ev.Kind = KindPong

	case KindError:
		ev.Kind = KindError
		ev.Error = &ErrorPayload{Message: f.Message}

	default:
		ev.Kind = KindRaw
		ev.RawType = f.Type
	}

	return ev, nil
}

// SubscribeMessage is the handshake a stream consumer sends right after the
// connection opens to scope the stream to one tracking id.
type SubscribeMessage struct {
	Type       string `json:"type"`
	TrackingID string `json:"trackingId"`
}

// NewSubscribeMessage builds the initial handshake frame.
func NewSubscribeMessage(trackingID string) SubscribeMessage {
	return SubscribeMessage{Type: "subscribe", TrackingID: trackingID}
}
