package model

import (
	"time"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"uuid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.UUID.IsNil() {
		b.UUID = uuid.NewV4()
	}
	return nil
}
