package hub

import (
	"encoding/json"
	"errors"
	"testing"

	"solitaire-ledger/internal/ledger"
)

type testWriter struct {
	writes [][]byte
	fail   bool
	closed bool
}

func (w *testWriter) Write(message []byte) error {
	w.writes = append(w.writes, message)
	if w.fail {
		return errors.New("test")
	}
	return nil
}

func (w *testWriter) Close() error {
	w.closed = true
	return nil
}

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	h := New()
	w1 := &testWriter{}
	c1 := &Connection{Identity: "alice", Writer: w1}

	h.Register(c1)
	h.Broadcast("alice", []byte("x"))
	if len(w1.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(w1.writes))
	}

	h.Unregister(c1)
	h.Broadcast("alice", []byte("x"))
	if len(w1.writes) != 1 {
		t.Fatalf("expected no more writes, got %d", len(w1.writes))
	}
}

func TestHub_RemovesFailedConnections(t *testing.T) {
	h := New()
	w1 := &testWriter{fail: true}
	h.Register(&Connection{Identity: "alice", Writer: w1})

	h.Broadcast("alice", []byte("x"))
	h.Broadcast("alice", []byte("x"))
	if len(w1.writes) != 1 {
		t.Fatalf("expected only 1 write before removal, got %d", len(w1.writes))
	}
	if !w1.closed {
		t.Fatalf("expected failed writer to be closed")
	}
}

func TestHub_PublishRoutesByPlayer(t *testing.T) {
	h := New()
	alice := &testWriter{}
	bob := &testWriter{}
	h.Register(&Connection{Identity: "alice", Writer: alice})
	h.Register(&Connection{Identity: "bob", Writer: bob})

	h.Publish(ledger.Event{TxID: "tx", Sequence: 3, Type: "gameStarted", Attributes: map[string]string{"id": "1", "player": "alice"}})
	h.Publish(ledger.Event{Type: "orphan"})

	if len(alice.writes) != 1 || len(bob.writes) != 0 {
		t.Fatalf("unexpected routing: alice=%d bob=%d", len(alice.writes), len(bob.writes))
	}

	var msg EventMessage
	if err := json.Unmarshal(alice.writes[0], &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "event" || msg.Event.Type != "gameStarted" || msg.Event.Attributes["id"] != "1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
