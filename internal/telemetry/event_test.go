package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"
)

type mockEventEmitter struct {
	mu     sync.Mutex
	events []*SecurityEvent
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *SecurityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventEmitter) getEvents() []*SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	EmitAsync(nil, context.Background(), &SecurityEvent{EventType: "login"})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), nil)
	time.Sleep(10 * time.Millisecond)
	if got := emitter.getEvents(); len(got) != 0 {
		t.Errorf("expected 0 events, got %d", len(got))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), &SecurityEvent{
		TenantID:  "t1",
		UserID:    "u1",
		EventType: "login",
		Source:    "authority",
	})
	time.Sleep(100 * time.Millisecond)
	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].TenantID != "t1" || events[0].EventType != "login" {
		t.Errorf("event: got %+v", events[0])
	}
}

func TestEmitAsync_SurvivesCancelledRequestContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	EmitAsync(emitter, ctx, &SecurityEvent{EventType: "login"})
	time.Sleep(100 * time.Millisecond)
	if got := emitter.getEvents(); len(got) != 1 {
		t.Errorf("expected 1 event, got %d", len(got))
	}
}
