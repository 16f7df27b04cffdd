package eval

import (
	"encoding/json"
	"fmt"
	"math"
)

// Event locates a named capture event on the timeline, either as a direct
// frame index or as a millisecond timestamp that needs the capture FPS to
// resolve.
type Event struct {
	Frame    *int
	TSMillis *float64
}

// FrameEvent builds an event pinned to a frame index.
func FrameEvent(frame int) Event {
	return Event{Frame: &frame}
}

// TimestampEvent builds an event pinned to a millisecond timestamp.
func TimestampEvent(tsMillis float64) Event {
	return Event{TSMillis: &tsMillis}
}

// ResolveFrame returns the frame index of the event, converting timestamps
// with the given FPS.
func (e Event) ResolveFrame(fps float64) (int, error) {
	if e.Frame != nil {
		return *e.Frame, nil
	}
	if e.TSMillis != nil {
		return int(math.Round(*e.TSMillis * fps / 1000.0)), nil
	}
	return 0, fmt.Errorf("%w: event has neither frame nor ts_ms", ErrInvalidCondition)
}

// UnmarshalJSON accepts the three wire forms of an event: a bare number
// (taken as a frame index), {"frame": n}, or {"ts_ms": t}.
func (e *Event) UnmarshalJSON(data []byte) error {
	var direct float64
	if err := json.Unmarshal(data, &direct); err == nil {
		frame := int(direct)
		*e = Event{Frame: &frame}
		return nil
	}

	var payload struct {
		Frame    *float64 `json:"frame"`
		TSMillis *float64 `json:"ts_ms"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	switch {
	case payload.Frame != nil:
		frame := int(*payload.Frame)
		*e = Event{Frame: &frame}
	case payload.TSMillis != nil:
		*e = Event{TSMillis: payload.TSMillis}
	default:
		return fmt.Errorf("decode event: expected keys \"frame\" or \"ts_ms\"")
	}
	return nil
}

// MarshalJSON writes the compact wire form back out.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Frame != nil {
		return json.Marshal(*e.Frame)
	}
	if e.TSMillis != nil {
		return json.Marshal(map[string]float64{"ts_ms": *e.TSMillis})
	}
	return nil, fmt.Errorf("encode event: empty event")
}

// Context carries the capture-level facts conditions may consult: the named
// event table and the capture rate.
type Context struct {
	Events map[string]Event
	FPS    float64
}

// HasEvent reports whether a named event is present.
func (c Context) HasEvent(name string) bool {
	_, ok := c.Events[name]
	return ok
}
