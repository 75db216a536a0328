package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation is the durable record of one registration chat. State
// and Context are rewritten after every processed turn; history is
// kept client-side by the widget.
type Conversation struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	FamilyID       *uuid.UUID `gorm:"type:uuid;index" json:"family_id,omitempty"`

	State   string         `gorm:"column:state;not null;default:'greeting';index" json:"state"`
	Context datatypes.JSON `gorm:"type:jsonb;column:context;not null;default:'{}'" json:"context"`

	LastMessageAt time.Time `gorm:"column:last_message_at;not null;default:now();index" json:"last_message_at"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Conversation) TableName() string { return "conversation" }
