package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coachline/registration-backend/internal/pkg/logger"
	"github.com/coachline/registration-backend/internal/services"
)

type ChatHandler struct {
	log     *logger.Logger
	convSvc services.ConversationService
}

func NewChatHandler(baseLog *logger.Logger, convSvc services.ConversationService) *ChatHandler {
	return &ChatHandler{
		log:     baseLog.With("handler", "ChatHandler"),
		convSvc: convSvc,
	}
}

type turnRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	FamilyID       *uuid.UUID `json:"family_id"`
	Message        string     `json:"message"`
	Event          string     `json:"event"`
	SessionID      *uuid.UUID `json:"session_id"`
}

// POST /api/chat/turn
func (h *ChatHandler) ProcessTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	if req.ConversationID == nil && req.OrganizationID == uuid.Nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", errMissingOrganization)
		return
	}
	if strings.TrimSpace(req.Message) == "" && req.Event == "" {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", errEmptyTurn)
		return
	}

	result, err := h.convSvc.ProcessTurn(c.Request.Context(), services.TurnInput{
		ConversationID: req.ConversationID,
		OrganizationID: req.OrganizationID,
		FamilyID:       req.FamilyID,
		Message:        strings.TrimSpace(req.Message),
		Event:          strings.TrimSpace(req.Event),
		SessionID:      req.SessionID,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	// Collaborator failures keep HTTP success framing; the widget
	// reads the envelope's success flag and fallback signal.
	RespondOK(c, result)
}

// GET /api/chat/conversations/:id
func (h *ChatHandler) GetConversation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BAD_REQUEST", err)
		return
	}
	row, err := h.convSvc.GetConversation(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, row)
}
