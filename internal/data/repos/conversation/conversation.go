package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/coachline/registration-backend/internal/domain"
	convdomain "github.com/coachline/registration-backend/internal/domain/conversation"
	"github.com/coachline/registration-backend/internal/pkg/dbctx"
	"github.com/coachline/registration-backend/internal/pkg/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, organizationID uuid.UUID, familyID *uuid.UUID) (*types.Conversation, error)
	GetByID(dbc dbctx.Context, conversationID uuid.UUID) (*types.Conversation, error)
	// UpdateStateContext persists the end-of-turn snapshot. The write
	// is last-wins; turns for one conversation are serialized by the
	// caller, not by this repo.
	UpdateStateContext(dbc dbctx.Context, conversationID uuid.UUID, state types.ConversationState, ctx types.ConversationContext) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, organizationID uuid.UUID, familyID *uuid.UUID) (*types.Conversation, error) {
	if organizationID == uuid.Nil {
		return nil, fmt.Errorf("missing organization_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now().UTC()
	row := &types.Conversation{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		FamilyID:       familyID,
		State:          string(convdomain.StateGreeting),
		Context:        datatypes.JSON([]byte(`{}`)),
		LastMessageAt:  now,
	}
	if err := transaction.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *conversationRepo) GetByID(dbc dbctx.Context, conversationID uuid.UUID) (*types.Conversation, error) {
	if conversationID == uuid.Nil {
		return nil, fmt.Errorf("missing conversation_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.Conversation
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", conversationID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conversationRepo) UpdateStateContext(dbc dbctx.Context, conversationID uuid.UUID, state types.ConversationState, ctx types.ConversationContext) error {
	if conversationID == uuid.Nil {
		return fmt.Errorf("missing conversation_id")
	}
	raw, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]any{
			"state":           string(state),
			"context":         datatypes.JSON(raw),
			"last_message_at": now,
			"updated_at":      now,
		}).Error
}
