package registration

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Coach struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`

	Name string `gorm:"column:name;not null" json:"name"`
	// Average parent rating, 0..5. Zero means unrated.
	Rating float64 `gorm:"column:rating;not null;default:0" json:"rating"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Coach) TableName() string { return "coach" }
