package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"fintrait-chat/internal/backend"
	"fintrait-chat/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// ConversationManager mantiene un controller por sesion activa del gateway.
// Implementa StateNotifier para interceptar cada transicion: persiste el
// snapshot en el cache de estado y recien despues reenvia al notifier
// downstream (el hub de websockets).
type ConversationManager struct {
	mu    sync.Mutex
	convs map[string]*ConversationController

	client   backend.AssessmentClient
	recorder TranscriptRecorder
	notifier StateNotifier
	cache    StateCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewConversationManager(
	client backend.AssessmentClient,
	recorder TranscriptRecorder,
	notifier StateNotifier,
	cache StateCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ConversationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &ConversationManager{
		convs:    make(map[string]*ConversationController),
		client:   client,
		recorder: recorder,
		notifier: notifier,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// StartConversation abre una sesion nueva contra el backend y registra su
// controller. A diferencia del CLI, el gateway si necesita identificadores:
// sin session_id no hay forma de rutear requests posteriores.
func (m *ConversationManager) StartConversation(ctx context.Context) (*ConversationController, error) {
	ctrl := NewConversationController(m.client, m.recorder, m, m.logger)
	if err := ctrl.StartSession(ctx); err != nil {
		return nil, err
	}

	snap := ctrl.Snapshot()
	if snap.SessionID == "" {
		return nil, errors.New("backend returned empty session id")
	}

	m.mu.Lock()
	m.convs[snap.SessionID] = ctrl
	m.mu.Unlock()

	m.persist(snap.SessionID, snap)
	return ctrl, nil
}

// Get busca el controller de una sesion; si el gateway se reinicio, intenta
// reconstruirlo desde el cache de snapshots.
func (m *ConversationManager) Get(sessionID string) (*ConversationController, error) {
	m.mu.Lock()
	ctrl, ok := m.convs[sessionID]
	m.mu.Unlock()
	if ok {
		return ctrl, nil
	}

	if m.cache == nil {
		return nil, ErrSessionNotFound
	}
	snap, found, err := m.cache.Load(sessionID)
	if err != nil {
		m.logger.Warn("state cache load failed", zap.Error(err), zap.String("session_id", sessionID))
		return nil, ErrSessionNotFound
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	// El transcript en memoria se pierde con el reinicio; lo que se reanuda
	// es la conversacion del lado del backend via el blob opaco.
	ctrl = NewConversationController(m.client, m.recorder, m, m.logger)
	ctrl.Restore(domain.ConversationState{
		UserID:     snap.UserID,
		SessionID:  snap.SessionID,
		StateBlob:  append(json.RawMessage(nil), snap.Blob...),
		Terminated: snap.Terminated,
	})

	m.mu.Lock()
	if existing, ok := m.convs[sessionID]; ok {
		ctrl = existing
	} else {
		m.convs[sessionID] = ctrl
	}
	m.mu.Unlock()

	m.logger.Info("session resumed from cache", zap.String("session_id", sessionID))
	return ctrl, nil
}

// StateChanged implementa StateNotifier.
func (m *ConversationManager) StateChanged(sessionID string, state domain.ConversationState) {
	m.persist(sessionID, state)
	if m.notifier != nil {
		m.notifier.StateChanged(sessionID, state)
	}
}

func (m *ConversationManager) persist(sessionID string, state domain.ConversationState) {
	if m.cache == nil {
		return
	}
	snap := StateSnapshot{
		UserID:     state.UserID,
		SessionID:  state.SessionID,
		Blob:       state.StateBlob,
		Terminated: state.Terminated,
	}
	if err := m.cache.Save(sessionID, snap, m.cacheTTL); err != nil {
		m.logger.Warn("state cache save failed", zap.Error(err), zap.String("session_id", sessionID))
	}
}
