package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"fintrait-chat/internal/backend"
	"fintrait-chat/internal/domain"
)

var (
	ErrConversationTerminated = errors.New("conversation terminated")
	ErrCallInFlight           = errors.New("backend call already in flight")
)

// StateNotifier recibe el estado resultante despues de cada transicion.
type StateNotifier interface {
	StateChanged(sessionID string, state domain.ConversationState)
}

// ConversationController es el unico dueño del estado de una conversacion.
// Toda llamada saliente al backend (chat o persona) pasa por un guard de
// vuelo unico: mientras hay una pendiente, cualquier otra se rechaza con
// ErrCallInFlight. El blob opaco se lee y reemplaza siempre como valor
// completo, nunca en partes.
type ConversationController struct {
	mu   sync.Mutex
	busy bool

	state    domain.ConversationState
	client   backend.AssessmentClient
	agg      *Aggregator
	recorder TranscriptRecorder
	notifier StateNotifier
	logger   *zap.Logger
}

func NewConversationController(
	client backend.AssessmentClient,
	recorder TranscriptRecorder,
	notifier StateNotifier,
	logger *zap.Logger,
) *ConversationController {
	if recorder == nil {
		recorder = NewNoopRecorder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationController{
		client:   client,
		agg:      NewAggregator(),
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
	}
}

// StartSession pide identificadores al backend. Si falla solo se loguea y los
// identificadores quedan vacios: las llamadas siguientes proceden con ids
// nulos y el backend decide que hacer con eso. No hay retry.
func (c *ConversationController) StartSession(ctx context.Context) error {
	res, err := c.client.StartSession(ctx)
	if err != nil {
		c.logger.Warn("start session failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.state.UserID = res.UserID
	c.state.SessionID = res.SessionID
	c.mu.Unlock()

	c.logger.Info("session started",
		zap.String("user_id", res.UserID),
		zap.String("session_id", res.SessionID),
	)
	return nil
}

// Restore carga un estado persistido previamente (resume de sesion).
func (c *ConversationController) Restore(state domain.ConversationState) {
	c.mu.Lock()
	c.state = state.Clone()
	c.mu.Unlock()
}

// Snapshot devuelve una copia del estado actual para renderizar.
func (c *ConversationController) Snapshot() domain.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// SendMessage ejecuta un turno de chat completo: agrega el mensaje del
// usuario, llama al backend y reconcilia la respuesta. Un fallo de transporte
// no pierde nada: queda un unico mensaje de error en el transcript.
func (c *ConversationController) SendMessage(ctx context.Context, text string) (domain.ConversationState, error) {
	c.mu.Lock()
	if c.state.Terminated {
		c.mu.Unlock()
		return c.Snapshot(), ErrConversationTerminated
	}
	if c.busy {
		c.mu.Unlock()
		return c.Snapshot(), ErrCallInFlight
	}
	c.busy = true
	c.state = c.agg.AppendUserMessage(c.state, text)
	userMsg := c.state.Messages[len(c.state.Messages)-1]
	userID := c.state.UserID
	sessionID := c.state.SessionID
	blob := append(json.RawMessage(nil), c.state.StateBlob...)
	c.mu.Unlock()

	c.recordMessage(ctx, sessionID, userMsg)

	res, callErr := c.client.Chat(ctx, userID, sessionID, text, blob)

	c.mu.Lock()
	c.busy = false
	prevAssessments := len(c.state.Assessments)
	if callErr != nil {
		c.logger.Warn("chat call failed", zap.Error(callErr), zap.String("session_id", sessionID))
		c.state = c.agg.AppendFailure(c.state, callErr)
	} else {
		c.state = c.agg.Reconcile(c.state, res)
	}
	snap := c.state.Clone()
	c.mu.Unlock()

	c.recordMessage(ctx, sessionID, snap.Messages[len(snap.Messages)-1])
	if len(snap.Assessments) > prevAssessments {
		c.recordAssessments(ctx, sessionID, snap.Assessments[prevAssessments:])
	}
	c.notify(sessionID, snap)

	return snap, callErr
}

// GeneratePersona pide el resumen de persona con el blob actual. Comparte el
// guard de vuelo unico con SendMessage para no correr carreras sobre el blob.
// Se permite incluso con la conversacion terminada.
func (c *ConversationController) GeneratePersona(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return "", ErrCallInFlight
	}
	c.busy = true
	userID := c.state.UserID
	sessionID := c.state.SessionID
	blob := append(json.RawMessage(nil), c.state.StateBlob...)
	c.mu.Unlock()

	text, callErr := c.client.Persona(ctx, userID, sessionID, blob)

	c.mu.Lock()
	c.busy = false
	if callErr != nil {
		c.logger.Warn("persona call failed", zap.Error(callErr), zap.String("session_id", sessionID))
		c.state = c.agg.AppendFailure(c.state, callErr)
	} else {
		c.state.PersonaSummary = text
	}
	snap := c.state.Clone()
	c.mu.Unlock()

	if callErr != nil {
		c.recordMessage(ctx, sessionID, snap.Messages[len(snap.Messages)-1])
	}
	c.notify(sessionID, snap)

	return text, callErr
}

func (c *ConversationController) recordMessage(ctx context.Context, sessionID string, msg domain.Message) {
	if err := c.recorder.RecordMessage(ctx, sessionID, msg); err != nil {
		c.logger.Warn("record message failed", zap.Error(err), zap.String("session_id", sessionID))
	}
}

func (c *ConversationController) recordAssessments(ctx context.Context, sessionID string, assessments []domain.TraitAssessment) {
	if err := c.recorder.RecordAssessments(ctx, sessionID, assessments); err != nil {
		c.logger.Warn("record assessments failed", zap.Error(err), zap.String("session_id", sessionID))
	}
}

func (c *ConversationController) notify(sessionID string, snap domain.ConversationState) {
	if c.notifier != nil {
		c.notifier.StateChanged(sessionID, snap)
	}
}
