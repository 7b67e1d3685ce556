package provisioning

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured provisioning events.
type Observer interface {
	Event(event Event)
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         `json:"type"`
	ClusterID string            `json:"clusterId"`
	Operation string            `json:"operation,omitempty"` // "create", "scale", "terminate"
	Phase     string            `json:"phase,omitempty"`
	Message   string            `json:"message"`
	Resource  string            `json:"resource,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPhaseStarted indicates a provisioning phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a provisioning phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a provisioning phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreating indicates a resource is being created.
	EventResourceCreating EventType = "resource.creating"
	// EventResourceCreated indicates a resource was created successfully.
	EventResourceCreated EventType = "resource.created"
	// EventResourceDeleting indicates a resource is being deleted.
	EventResourceDeleting EventType = "resource.deleting"
	// EventResourceDeleted indicates a resource was deleted successfully.
	EventResourceDeleted EventType = "resource.deleted"

	// EventValidationError indicates a request was rejected by the engine.
	EventValidationError EventType = "validation.error"
)

// Failed reports whether the event marks a failure.
func (t EventType) Failed() bool {
	return t == EventPhaseFailed || t == EventValidationError
}

// LogObserver writes events to a logr sink.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver returns an observer logging through log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []any{"event", string(event.Type), "cluster", event.ClusterID}
	if event.Operation != "" {
		kv = append(kv, "operation", event.Operation)
	}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}

	if event.Type.Failed() {
		o.log.Info(event.Message, kv...)
		return
	}
	o.log.V(1).Info(event.Message, kv...)
}

// EventLog keeps the most recent events per cluster in memory so clients
// can follow progress.
type EventLog struct {
	mu     sync.RWMutex
	limit  int
	events map[string][]Event
}

// NewEventLog keeps up to limit events per cluster.
func NewEventLog(limit int) *EventLog {
	if limit <= 0 {
		limit = 100
	}
	return &EventLog{limit: limit, events: make(map[string][]Event)}
}

// Event implements Observer.
func (l *EventLog) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	events := append(l.events[event.ClusterID], event)
	if len(events) > l.limit {
		events = events[len(events)-l.limit:]
	}
	l.events[event.ClusterID] = events
}

// Events returns a copy of the recorded events for a cluster, oldest first.
func (l *EventLog) Events(clusterID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events[clusterID]...)
}

// Forget drops the events of a cluster.
func (l *EventLog) Forget(clusterID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, clusterID)
}

// Observers fans an event out to several observers.
type Observers []Observer

// Event implements Observer.
func (obs Observers) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, o := range obs {
		o.Event(event)
	}
}

// Helper functions for common events

// LogPhaseStart emits a phase start event.
func LogPhaseStart(observer Observer, clusterID, operation, phase string) {
	observer.Event(Event{
		Type:      EventPhaseStarted,
		ClusterID: clusterID,
		Operation: operation,
		Phase:     phase,
		Message:   "starting",
	})
}

// LogPhaseComplete emits a phase completion event.
func LogPhaseComplete(observer Observer, clusterID, operation, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:      EventPhaseCompleted,
		ClusterID: clusterID,
		Operation: operation,
		Phase:     phase,
		Message:   fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed emits a phase failure event.
func LogPhaseFailed(observer Observer, clusterID, operation, phase string, err error) {
	observer.Event(Event{
		Type:      EventPhaseFailed,
		ClusterID: clusterID,
		Operation: operation,
		Phase:     phase,
		Message:   fmt.Sprintf("failed: %v", err),
	})
}

// LogValidationFailed emits an event for a request the engine rejected.
func LogValidationFailed(observer Observer, clusterID, operation string, err error) {
	observer.Event(Event{
		Type:      EventValidationError,
		ClusterID: clusterID,
		Operation: operation,
		Message:   fmt.Sprintf("validation failed: %v", err),
	})
}

// LogResourceCreating emits a resource creation start event.
func LogResourceCreating(observer Observer, clusterID, resourceType, resourceName string) {
	observer.Event(Event{
		Type:      EventResourceCreating,
		ClusterID: clusterID,
		Resource:  resourceName,
		Message:   fmt.Sprintf("creating %s", resourceType),
		Fields:    map[string]string{"type": resourceType},
	})
}

// LogResourceCreated emits a successful resource creation event.
func LogResourceCreated(observer Observer, clusterID, resourceType, resourceName, resourceID string) {
	observer.Event(Event{
		Type:      EventResourceCreated,
		ClusterID: clusterID,
		Resource:  resourceName,
		Message:   fmt.Sprintf("%s created", resourceType),
		Fields:    map[string]string{"type": resourceType, "id": resourceID},
	})
}

// LogResourceDeleting emits a resource deletion start event.
func LogResourceDeleting(observer Observer, clusterID, resourceType, resourceName string) {
	observer.Event(Event{
		Type:      EventResourceDeleting,
		ClusterID: clusterID,
		Resource:  resourceName,
		Message:   fmt.Sprintf("deleting %s", resourceType),
		Fields:    map[string]string{"type": resourceType},
	})
}

// LogResourceDeleted emits a successful resource deletion event.
func LogResourceDeleted(observer Observer, clusterID, resourceType, resourceName string) {
	observer.Event(Event{
		Type:      EventResourceDeleted,
		ClusterID: clusterID,
		Resource:  resourceName,
		Message:   fmt.Sprintf("%s deleted", resourceType),
		Fields:    map[string]string{"type": resourceType},
	})
}
