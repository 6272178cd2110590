package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fintrait-chat/internal/domain"
	"fintrait-chat/internal/service"
)

// ChatHandler mantiene dependencias para los endpoints de conversacion.
type ChatHandler struct {
	logger  *zap.Logger
	manager *service.ConversationManager
	tokens  *service.SessionTokenService
}

func NewChatHandler(
	logger *zap.Logger,
	manager *service.ConversationManager,
	tokens *service.SessionTokenService,
) *ChatHandler {
	return &ChatHandler{
		logger:  logger,
		manager: manager,
		tokens:  tokens,
	}
}

// StartSession maneja POST /session/start.
func (h *ChatHandler) StartSession(c *gin.Context) {
	ctrl, err := h.manager.StartConversation(c.Request.Context())
	if err != nil {
		h.logger.Error("start conversation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not start session"})
		return
	}

	snap := ctrl.Snapshot()
	token, err := h.tokens.Issue(snap.UserID, snap.SessionID)
	if err != nil {
		h.logger.Error("issue session token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue session token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":    snap.UserID,
		"session_id": snap.SessionID,
		"token":      token,
	})
}

// PostMessage maneja POST /chat.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctrl, ok := h.controllerFor(c)
	if !ok {
		return
	}

	snap, err := ctrl.SendMessage(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, service.ErrConversationTerminated):
		c.JSON(http.StatusConflict, gin.H{"error": "conversation terminated"})
		return
	case errors.Is(err, service.ErrCallInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "another call is in flight"})
		return
	}
	// Un fallo del backend ya quedo representado en el transcript como
	// mensaje de error; la conversacion sigue usable.

	c.JSON(http.StatusOK, gin.H{"transcript": buildTranscript(snap)})
}

// GeneratePersona maneja POST /persona.
func (h *ChatHandler) GeneratePersona(c *gin.Context) {
	ctrl, ok := h.controllerFor(c)
	if !ok {
		return
	}

	persona, err := ctrl.GeneratePersona(c.Request.Context())
	if errors.Is(err, service.ErrCallInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": "another call is in flight"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not generate persona"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"persona": persona})
}

// GetTranscript maneja GET /transcript.
func (h *ChatHandler) GetTranscript(c *gin.Context) {
	ctrl, ok := h.controllerFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": buildTranscript(ctrl.Snapshot())})
}

// GetSummary maneja GET /summary.
func (h *ChatHandler) GetSummary(c *gin.Context) {
	ctrl, ok := h.controllerFor(c)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{"summaries": service.AggregateScores(snap.Assessments)})
}

func (h *ChatHandler) controllerFor(c *gin.Context) (*service.ConversationController, bool) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session"})
		return nil, false
	}

	ctrl, err := h.manager.Get(claims.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return ctrl, true
}

type messageView struct {
	domain.Message
	Assessments []domain.TraitAssessment `json:"assessments,omitempty"`
}

type transcriptView struct {
	UserID           string        `json:"user_id"`
	SessionID        string        `json:"session_id"`
	Messages         []messageView `json:"messages"`
	CurrentPriority  string        `json:"current_priority,omitempty"`
	CurrentIteration *int          `json:"current_iteration,omitempty"`
	Terminated       bool          `json:"terminated"`
	PersonaSummary   string        `json:"persona_summary,omitempty"`
}

// buildTranscript arma la vista: cada mensaje lleva debajo las evaluaciones
// que la regla de ventana hace visibles para el.
func buildTranscript(state domain.ConversationState) transcriptView {
	view := transcriptView{
		UserID:           state.UserID,
		SessionID:        state.SessionID,
		Messages:         make([]messageView, 0, len(state.Messages)),
		CurrentPriority:  state.CurrentPriority,
		CurrentIteration: state.CurrentIteration,
		Terminated:       state.Terminated,
		PersonaSummary:   state.PersonaSummary,
	}
	for _, msg := range state.Messages {
		view.Messages = append(view.Messages, messageView{
			Message:     msg,
			Assessments: service.AssessmentsVisibleFor(msg, state.Messages, state.Assessments),
		})
	}
	return view
}
