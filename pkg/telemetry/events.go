package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the data hub.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// WindowID is the associated update-window ID, if applicable.
	WindowID string `json:"window_id,omitempty"`

	// ResourcePath is the associated resource path, if applicable.
	ResourcePath string `json:"resource_path,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeUpdateWindowOpened  = "update_window.opened"
	EventTypeUpdateWindowClosed  = "update_window.closed"
	EventTypeUpdateWindowFailed  = "update_window.failed"
	EventTypePushStarted         = "push.started"
	EventTypePushCompleted       = "push.completed"
	EventTypePushFailed          = "push.failed"
	EventTypeResourceStateChanged = "resource.state_changed"
	EventTypePolicyViolation     = "policy.violation"
	EventTypeBufferBackendInvoked = "buffer_backend.invoked"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	// Start the periodic flush goroutine
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishUpdateWindowOpened publishes an update-window-opened event.
func (ep *EventPublisher) PublishUpdateWindowOpened(windowID, admin string) error {
	return ep.Publish(Event{
		Type:     EventTypeUpdateWindowOpened,
		Source:   "tree",
		WindowID: windowID,
		Message:  fmt.Sprintf("update window %s opened by %s", windowID, admin),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"admin": admin,
		},
	})
}

// PublishUpdateWindowClosed publishes an update-window-closed event.
func (ep *EventPublisher) PublishUpdateWindowClosed(windowID string) error {
	return ep.Publish(Event{
		Type:     EventTypeUpdateWindowClosed,
		Source:   "tree",
		WindowID: windowID,
		Message:  fmt.Sprintf("update window %s closed", windowID),
		Level:    EventLevelInfo,
	})
}

// PublishUpdateWindowFailed publishes an update-window-failed event.
func (ep *EventPublisher) PublishUpdateWindowFailed(windowID, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeUpdateWindowFailed,
		Source:   "tree",
		WindowID: windowID,
		Message:  fmt.Sprintf("update window %s failed: %s", windowID, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishPushCompleted publishes a push-completed event.
func (ep *EventPublisher) PublishPushCompleted(path string, accepted bool, duration time.Duration) error {
	return ep.Publish(Event{
		Type:         EventTypePushCompleted,
		Source:       "tree",
		ResourcePath: path,
		Message:      fmt.Sprintf("push to %s completed, accepted=%v", path, accepted),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"accepted": accepted,
			"duration": duration.Seconds(),
		},
	})
}

// PublishPushFailed publishes a push-failed event.
func (ep *EventPublisher) PublishPushFailed(path, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypePushFailed,
		Source:       "tree",
		ResourcePath: path,
		Message:      fmt.Sprintf("push to %s failed: %s", path, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishResourceStateChanged publishes a resource state change event.
func (ep *EventPublisher) PublishResourceStateChanged(path, oldState, newState string) error {
	return ep.Publish(Event{
		Type:         EventTypeResourceStateChanged,
		Source:       "tree",
		ResourcePath: path,
		Message:      fmt.Sprintf("resource %s state changed from %s to %s", path, oldState, newState),
		Level:        EventLevelInfo,
		Data: map[string]interface{}{
			"old_state": oldState,
			"new_state": newState,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(path, policyName, reason string) error {
	return ep.Publish(Event{
		Type:         EventTypePolicyViolation,
		Source:       "policy_engine",
		ResourcePath: path,
		Message:      fmt.Sprintf("policy violation on %s: %s - %s", path, policyName, reason),
		Level:        EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	var tick <-chan time.Time
	if ep.config.FlushInterval > 0 {
		ticker := time.NewTicker(ep.config.FlushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-tick:
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Drain queued events and flush them before shutting down
			for len(ep.buffer) > 0 {
				batch = append(batch, <-ep.buffer)
			}
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Trigger flush by draining buffer
			// This is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByWindowID creates a filter that only allows events for a specific
// update window.
func FilterByWindowID(windowID string) EventFilter {
	return func(event Event) bool {
		return event.WindowID == windowID
	}
}

// FilterByResourcePath creates a filter that only allows events for a
// specific resource path.
func FilterByResourcePath(path string) EventFilter {
	return func(event Event) bool {
		return event.ResourcePath == path
	}
}
