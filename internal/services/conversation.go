package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coachline/registration-backend/internal/data/repos"
	types "github.com/coachline/registration-backend/internal/domain"
	conv "github.com/coachline/registration-backend/internal/domain/conversation"
	"github.com/coachline/registration-backend/internal/pkg/dbctx"
	pkgerrors "github.com/coachline/registration-backend/internal/pkg/errors"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

const (
	errCodeAIError   = "AI_ERROR"
	errCodeAITimeout = "AI_TIMEOUT"
)

type TurnInput struct {
	// Nil on the first turn; the conversation is created then.
	ConversationID *uuid.UUID
	OrganizationID uuid.UUID
	FamilyID       *uuid.UUID
	Message        string
	// Event marks a UI-originated turn (button press); when set, the
	// message is not sent to the extractor.
	Event string
	// SessionID accompanies a select_session event.
	SessionID *uuid.UUID
}

type TurnResponse struct {
	ConversationID    uuid.UUID          `json:"conversation_id"`
	Message           string             `json:"message"`
	NextState         conv.State         `json:"next_state"`
	ExtractedData     ExtractedFacts     `json:"extracted_data"`
	QuickReplies      []string           `json:"quick_replies"`
	Progress          int                `json:"progress"`
	Recommendations   []Recommendation   `json:"recommendations"`
	RequestedIssue    RequestedIssue     `json:"requested_issue,omitempty"`
	RecommendWaitlist bool               `json:"recommend_waitlist,omitempty"`
}

type TurnError struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	FallbackToForm bool   `json:"fallback_to_form"`
}

// TurnResult is the full outcome of one processed turn. A collaborator
// failure is a result, not a Go error: the transport keeps its success
// framing and the widget renders a graceful degradation.
type TurnResult struct {
	Success  bool          `json:"success"`
	Response *TurnResponse `json:"response,omitempty"`
	Error    *TurnError    `json:"error,omitempty"`
}

type ConversationService interface {
	ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID) (*types.Conversation, error)
}

type conversationService struct {
	log            *logger.Logger
	convRepo       repos.ConversationRepo
	orgRepo        repos.OrganizationRepo
	sessionRepo    repos.SessionRepo
	inventory      InventoryService
	extractor      Extractor
	extractTimeout time.Duration
}

func NewConversationService(
	baseLog *logger.Logger,
	convRepo repos.ConversationRepo,
	orgRepo repos.OrganizationRepo,
	sessionRepo repos.SessionRepo,
	inventory InventoryService,
	extractor Extractor,
	extractTimeout time.Duration,
) ConversationService {
	if extractTimeout <= 0 {
		extractTimeout = 20 * time.Second
	}
	return &conversationService{
		log:            baseLog.With("service", "ConversationService"),
		convRepo:       convRepo,
		orgRepo:        orgRepo,
		sessionRepo:    sessionRepo,
		inventory:      inventory,
		extractor:      extractor,
		extractTimeout: extractTimeout,
	}
}

func (s *conversationService) GetConversation(ctx context.Context, conversationID uuid.UUID) (*types.Conversation, error) {
	row, err := s.convRepo.GetByID(dbctx.Context{Ctx: ctx}, conversationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pkgerrors.ErrNotFound
	}
	return row, nil
}

func (s *conversationService) ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	row, err := s.loadOrCreate(ctx, in)
	if err != nil {
		return nil, err
	}

	state := currentState(row)
	convCtx := decodeContext(s.log, row)

	if in.Event != "" {
		return s.processEventTurn(ctx, row, state, convCtx, in)
	}
	return s.processMessageTurn(ctx, row, state, convCtx, in)
}

func (s *conversationService) loadOrCreate(ctx context.Context, in TurnInput) (*types.Conversation, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if in.ConversationID != nil {
		row, err := s.convRepo.GetByID(dbc, *in.ConversationID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, fmt.Errorf("conversation %s: %w", in.ConversationID, pkgerrors.ErrNotFound)
		}
		return row, nil
	}

	org, err := s.orgRepo.GetByID(dbc, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("organization %s: %w", in.OrganizationID, pkgerrors.ErrNotFound)
	}
	return s.convRepo.Create(dbc, in.OrganizationID, in.FamilyID)
}

func currentState(row *types.Conversation) conv.State {
	state, ok := conv.ParseState(row.State)
	if !ok {
		return conv.StateGreeting
	}
	return state
}

// decodeContext fails open to an empty context: a corrupt row should
// cost the caller re-answering questions, not the whole conversation.
func decodeContext(log *logger.Logger, row *types.Conversation) conv.Context {
	var out conv.Context
	if len(row.Context) == 0 {
		return out
	}
	if err := json.Unmarshal(row.Context, &out); err != nil {
		log.Warn("conversation context unreadable, starting fresh",
			"conversation_id", row.ID, "error", err)
		return conv.Context{}
	}
	return out
}

func (s *conversationService) processEventTurn(ctx context.Context, row *types.Conversation, state conv.State, convCtx conv.Context, in TurnInput) (*TurnResult, error) {
	if in.Event == EventSelectSession {
		if in.SessionID == nil {
			return nil, fmt.Errorf("select_session event without session_id: %w", pkgerrors.ErrInvalidArgument)
		}
		session, err := s.sessionRepo.GetByID(dbctx.Context{Ctx: ctx}, *in.SessionID)
		if err != nil {
			return nil, err
		}
		if session == nil || session.Program.OrganizationID != row.OrganizationID {
			return nil, fmt.Errorf("session %s: %w", in.SessionID, pkgerrors.ErrNotFound)
		}
	}

	next, err := ApplyEvent(state, in.Event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err)
	}

	if err := s.persist(ctx, row.ID, next, convCtx); err != nil {
		return nil, err
	}

	return &TurnResult{
		Success: true,
		Response: &TurnResponse{
			ConversationID:  row.ID,
			Message:         promptFor(next, convCtx),
			NextState:       next,
			QuickReplies:    QuickRepliesFor(next, convCtx),
			Progress:        next.Progress(),
			Recommendations: []Recommendation{},
		},
	}, nil
}

func (s *conversationService) processMessageTurn(ctx context.Context, row *types.Conversation, state conv.State, convCtx conv.Context, in TurnInput) (*TurnResult, error) {
	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	extraction, err := s.extractor.Extract(extractCtx, in.Message, convCtx, state)
	cancel()
	if err != nil {
		code := errCodeAIError
		if errors.Is(err, context.DeadlineExceeded) {
			code = errCodeAITimeout
		}
		s.log.Error("extraction failed", "conversation_id", row.ID, "code", code, "error", err)
		return &TurnResult{
			Success: false,
			Error: &TurnError{
				Code:           code,
				Message:        "I'm having trouble right now. Let's get you signed up with the form instead.",
				FallbackToForm: true,
			},
		}, nil
	}

	merged, err := ReconcileContext(convCtx, extraction.ExtractedData)
	if err != nil {
		if !errors.Is(err, ErrInvalidChildAge) {
			return nil, err
		}
		// Keep state and stored facts; only the turn's merge is
		// rejected. No session lookup happens on a corrective turn.
		if persistErr := s.persist(ctx, row.ID, state, convCtx); persistErr != nil {
			return nil, persistErr
		}
		return &TurnResult{
			Success: true,
			Response: &TurnResponse{
				ConversationID:  row.ID,
				Message:         correctiveAgePrompt(),
				NextState:       state,
				QuickReplies:    QuickRepliesFor(state, convCtx),
				Progress:        state.Progress(),
				Recommendations: []Recommendation{},
			},
		}, nil
	}

	next, mismatch := ResolveNextState(state, extraction.NextState, merged)
	if mismatch {
		s.log.Debug("extractor state hint overridden",
			"conversation_id", row.ID, "hint", extraction.NextState, "computed", next)
	}

	resp := &TurnResponse{
		ConversationID:  row.ID,
		Message:         extraction.Message,
		NextState:       next,
		ExtractedData:   extraction.ExtractedData,
		QuickReplies:    QuickRepliesFor(next, merged),
		Progress:        next.Progress(),
		Recommendations: []Recommendation{},
	}

	if next == conv.StateShowingRecommendations {
		s.attachRecommendations(ctx, row.OrganizationID, merged, resp)
	}
	if resp.Message == "" {
		resp.Message = promptFor(next, merged)
	}

	if err := s.persist(ctx, row.ID, next, merged); err != nil {
		return nil, err
	}

	return &TurnResult{Success: true, Response: resp}, nil
}

func (s *conversationService) attachRecommendations(ctx context.Context, organizationID uuid.UUID, convCtx conv.Context, resp *TurnResponse) {
	criteria, ok := BuildCriteria(organizationID, convCtx)
	if !ok {
		// The state machine never reaches this state without an age;
		// guard anyway so a bug upstream cannot produce an
		// undifferentiated dump.
		return
	}

	sessions, err := s.inventory.ListCandidateSessions(ctx, organizationID)
	if err != nil {
		// An inventory outage degrades to "no matches"; the
		// conversation keeps moving instead of crashing the turn.
		s.log.Error("inventory query failed, treating as zero matches", "error", err)
		sessions = nil
	}

	matched := FilterSessions(sessions, criteria)
	if len(matched) > 0 {
		resp.Recommendations = BuildRecommendations(matched)
		return
	}

	if convCtx.Flexible() {
		// Nothing to broaden: the request was already "show me
		// everything".
		resp.Message = "I couldn't find any open sessions right now. Want me to put you on the waitlist?"
		resp.RecommendWaitlist = true
		return
	}

	alt := FindAlternatives(sessions, criteria)
	resp.Recommendations = BuildAlternativeRecommendations(alt.Alternatives)
	resp.RequestedIssue = alt.RequestedIssue
	resp.RecommendWaitlist = alt.RecommendWaitlist
	resp.Message = noMatchMessage(alt)
}

func noMatchMessage(alt AlternativeResult) string {
	switch alt.RequestedIssue {
	case IssueFull:
		if len(alt.Alternatives) > 0 {
			return "That session is full right now, but here are some close options:"
		}
		return "That session is full right now, and I couldn't find a close match. Want me to add you to the waitlist?"
	case IssueWrongAge:
		if len(alt.Alternatives) > 0 {
			return "That session is for a different age group, but these would be a great fit:"
		}
		return "That session is for a different age group, and I couldn't find a close match. Want me to add you to the waitlist?"
	default:
		if len(alt.Alternatives) > 0 {
			return "Nothing matched exactly, but here are some close options:"
		}
		return "I couldn't find a session that fits. Want me to add you to the waitlist?"
	}
}

func (s *conversationService) persist(ctx context.Context, conversationID uuid.UUID, state conv.State, convCtx conv.Context) error {
	return s.convRepo.UpdateStateContext(dbctx.Context{Ctx: ctx}, conversationID, state, convCtx)
}
