package backend

import (
	"context"
	"encoding/json"
)

// MockClient permite tests sin un backend real.
type MockClient struct {
	StartResult StartSessionResult
	StartErr    error
	ChatResult  ChatResult
	ChatErr     error
	PersonaText string
	PersonaErr  error

	// ChatFn, si esta seteado, reemplaza la respuesta fija de Chat.
	ChatFn func(ctx context.Context, userID, sessionID, message string, state json.RawMessage) (ChatResult, error)

	StartCalls   int
	ChatCalls    int
	PersonaCalls int
	LastMessage  string
	LastState    json.RawMessage
}

func (m *MockClient) StartSession(ctx context.Context) (StartSessionResult, error) {
	m.StartCalls++
	return m.StartResult, m.StartErr
}

func (m *MockClient) Chat(ctx context.Context, userID, sessionID, message string, state json.RawMessage) (ChatResult, error) {
	m.ChatCalls++
	m.LastMessage = message
	m.LastState = state
	if m.ChatFn != nil {
		return m.ChatFn(ctx, userID, sessionID, message, state)
	}
	return m.ChatResult, m.ChatErr
}

func (m *MockClient) Persona(ctx context.Context, userID, sessionID string, state json.RawMessage) (string, error) {
	m.PersonaCalls++
	m.LastState = state
	return m.PersonaText, m.PersonaErr
}
