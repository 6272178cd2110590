package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"fintrait-chat/internal/domain"
	"fintrait-chat/internal/service"
)

// StreamHub reparte eventos de estado a los websockets suscriptos por sesion.
// Implementa service.StateNotifier.
type StreamHub struct {
	logger *zap.Logger

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewStreamHub(logger *zap.Logger) *StreamHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHub{
		logger: logger,
		conns:  make(map[string]map[*websocket.Conn]struct{}),
	}
}

// stateEvent es lo que ve el cliente web en cada transicion.
type stateEvent struct {
	Type           string                `json:"type"`
	SessionID      string                `json:"session_id"`
	LastMessage    *domain.Message       `json:"last_message,omitempty"`
	Summaries      []domain.TraitSummary `json:"summaries,omitempty"`
	Terminated     bool                  `json:"terminated"`
	PersonaSummary string                `json:"persona_summary,omitempty"`
}

// StateChanged implementa service.StateNotifier: empuja el evento a todas las
// conexiones de la sesion y descarta las que fallan al escribir.
func (h *StreamHub) StateChanged(sessionID string, state domain.ConversationState) {
	event := stateEvent{
		Type:           "state",
		SessionID:      sessionID,
		Summaries:      service.AggregateScores(state.Assessments),
		Terminated:     state.Terminated,
		PersonaSummary: state.PersonaSummary,
	}
	if n := len(state.Messages); n > 0 {
		last := state.Messages[n-1]
		event.LastMessage = &last
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[sessionID] {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("ws write failed", zap.Error(err), zap.String("session_id", sessionID))
			conn.Close()
			delete(h.conns[sessionID], conn)
		}
	}
}

func (h *StreamHub) register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[sessionID] == nil {
		h.conns[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[sessionID][conn] = struct{}{}
}

func (h *StreamHub) unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[sessionID], conn)
	if len(h.conns[sessionID]) == 0 {
		delete(h.conns, sessionID)
	}
}

// StreamHandler atiende GET /ws: valida el token de sesion por query param y
// deja la conexion suscripta al hub hasta que el cliente la cierre.
type StreamHandler struct {
	logger   *zap.Logger
	hub      *StreamHub
	tokens   *service.SessionTokenService
	upgrader websocket.Upgrader
}

func NewStreamHandler(logger *zap.Logger, hub *StreamHub, tokens *service.SessionTokenService) *StreamHandler {
	return &StreamHandler{
		logger: logger,
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (s *StreamHandler) Handle(c *gin.Context) {
	if s.tokens == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session tokens not configured"})
		return
	}

	claims, err := s.tokens.Parse(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	sessionID := claims.SessionID
	s.hub.register(sessionID, conn)
	s.logger.Info("ws client connected", zap.String("session_id", sessionID))

	// Solo empujamos estado; el read loop existe para detectar el cierre.
	go func() {
		defer func() {
			s.hub.unregister(sessionID, conn)
			conn.Close()
			s.logger.Info("ws client disconnected", zap.String("session_id", sessionID))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
