package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"fintrait-chat/internal/backend"
)

func TestManagerStartAndGet(t *testing.T) {
	mock := &backend.MockClient{
		StartResult: backend.StartSessionResult{UserID: "u1", SessionID: "s1"},
	}
	mgr := NewConversationManager(mock, nil, nil, NewMemoryStateCache(), time.Hour, zap.NewNop())

	ctrl, err := mgr.StartConversation(context.Background())
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if snap := ctrl.Snapshot(); snap.SessionID != "s1" {
		t.Fatalf("expected session id s1, got %q", snap.SessionID)
	}

	got, err := mgr.Get("s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != ctrl {
		t.Fatalf("expected same controller instance")
	}

	if _, err := mgr.Get("desconocida"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerRejectsEmptySessionID(t *testing.T) {
	mock := &backend.MockClient{StartResult: backend.StartSessionResult{}}
	mgr := NewConversationManager(mock, nil, nil, nil, time.Hour, zap.NewNop())

	if _, err := mgr.StartConversation(context.Background()); err == nil {
		t.Fatalf("expected error when backend returns empty session id")
	}
}

func TestManagerResumesFromStateCache(t *testing.T) {
	cache := NewMemoryStateCache()
	mock := &backend.MockClient{
		StartResult: backend.StartSessionResult{UserID: "u1", SessionID: "s1"},
		ChatResult: chatResultWith(t, map[string]any{
			"continue_conversation": true,
			"current_priority":      "awareness",
		}, "hola"),
	}

	mgr := NewConversationManager(mock, nil, nil, cache, time.Hour, zap.NewNop())
	ctrl, err := mgr.StartConversation(context.Background())
	if err != nil {
		t.Fatalf("start conversation: %v", err)
	}
	if _, err := ctrl.SendMessage(context.Background(), "hola"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	blob := ctrl.Snapshot().StateBlob

	// Un manager nuevo con el mismo cache simula un reinicio del gateway.
	restarted := NewConversationManager(mock, nil, nil, cache, time.Hour, zap.NewNop())
	resumed, err := restarted.Get("s1")
	if err != nil {
		t.Fatalf("resume session: %v", err)
	}

	snap := resumed.Snapshot()
	if snap.UserID != "u1" || snap.SessionID != "s1" {
		t.Fatalf("expected identifiers restored, got %q/%q", snap.UserID, snap.SessionID)
	}
	if string(snap.StateBlob) != string(blob) {
		t.Fatalf("expected opaque blob restored verbatim")
	}

	// El siguiente turno reanuda la conversacion con el blob cacheado.
	if _, err := resumed.SendMessage(context.Background(), "sigo aca"); err != nil {
		t.Fatalf("send after resume: %v", err)
	}
	var sent json.RawMessage = mock.LastState
	if string(sent) != string(blob) {
		t.Fatalf("expected cached blob echoed to backend after resume")
	}
}
