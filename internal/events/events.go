// Package events provides an event system for probe and fault-injection notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventProbeSuccess is emitted when a probe receives a 200 response
	EventProbeSuccess EventType = "probe_success"
	// EventProbeFailure is emitted when a probe fails (transport or non-200)
	EventProbeFailure EventType = "probe_failure"
	// EventKillSent is emitted when the pinger embeds a kill instruction
	EventKillSent EventType = "kill_sent"
	// EventKillReceived is emitted when the receiver sees a kill instruction
	EventKillReceived EventType = "kill_received"
	// EventTerminationStarted is emitted when the terminator is invoked
	EventTerminationStarted EventType = "termination_started"
	// EventTerminationSuppressed is emitted when a redundant kill is dropped
	EventTerminationSuppressed EventType = "termination_suppressed"
)

// Event represents a probe or fault-injection event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	StatusCode int    `json:"status_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Latency    string `json:"latency,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
}

// NewProbeSuccessEvent creates a probe success event
func NewProbeSuccessEvent(target string, latency time.Duration) Event {
	return Event{
		Type:      EventProbeSuccess,
		Timestamp: time.Now(),
		Target:    target,
		Data: EventData{
			StatusCode: 200,
			Latency:    latency.String(),
		},
	}
}

// NewProbeFailureEvent creates a probe failure event
func NewProbeFailureEvent(target string, statusCode int, reason string) Event {
	return Event{
		Type:      EventProbeFailure,
		Timestamp: time.Now(),
		Target:    target,
		Data: EventData{
			StatusCode: statusCode,
			Reason:     reason,
		},
	}
}

// NewKillSentEvent creates a kill sent event
func NewKillSentEvent(target string) Event {
	return Event{
		Type:      EventKillSent,
		Timestamp: time.Now(),
		Target:    target,
	}
}

// NewKillReceivedEvent creates a kill received event
func NewKillReceivedEvent(instanceID string) Event {
	return Event{
		Type:      EventKillReceived,
		Timestamp: time.Now(),
		Data: EventData{
			InstanceID: instanceID,
		},
	}
}

// NewTerminationStartedEvent creates a termination started event
func NewTerminationStartedEvent(instanceID string) Event {
	return Event{
		Type:      EventTerminationStarted,
		Timestamp: time.Now(),
		Data: EventData{
			InstanceID: instanceID,
		},
	}
}

// NewTerminationSuppressedEvent creates a termination suppressed event
func NewTerminationSuppressedEvent(instanceID string, reason string) Event {
	return Event{
		Type:      EventTerminationSuppressed,
		Timestamp: time.Now(),
		Data: EventData{
			InstanceID: instanceID,
			Reason:     reason,
		},
	}
}
