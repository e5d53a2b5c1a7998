package model

import "gorm.io/datatypes"

type Notification struct {
	BaseModel
	ClinicID     int64          `gorm:"not null;index:idx_notification_clinic_seen" json:"clinic_id"`
	OrderID      int64          `gorm:"not null;index" json:"order_id"`
	StatusChange string         `gorm:"type:varchar(200);not null" json:"status_change"`
	IsSeen       bool           `gorm:"not null;index:idx_notification_clinic_seen" json:"is_seen"`
	Data         datatypes.JSON `json:"data,omitempty"`
}

func (*Notification) TableName() string {
	return "notifications"
}
