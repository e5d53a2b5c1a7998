package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ArchivedStatus string

const (
	ArchivedNone     ArchivedStatus = ""
	ArchivedExpired  ArchivedStatus = "Expired"
	ArchivedDisabled ArchivedStatus = "Disabled"
)

type Reactor struct {
	BaseModel
	Name   string          `gorm:"type:varchar(120);not null;uniqueIndex" json:"name"`
	Cycles []*ReactorCycle `gorm:"foreignKey:ReactorID" json:"cycles,omitempty"`
}

func (*Reactor) TableName() string {
	return "reactors"
}

type ReactorCycle struct {
	BaseModel
	ReactorID       int64           `gorm:"not null;index" json:"reactor_id"`
	Name            string          `gorm:"type:varchar(120);not null;uniqueIndex" json:"name"`
	Mass            decimal.Decimal `gorm:"type:numeric(12,3);not null;check:chk_reactor_cycles_mass,mass >= 0" json:"mass"`
	TargetStartDate datatypes.Date  `gorm:"not null" json:"target_start_date"`
	ExpirationDate  datatypes.Date  `gorm:"not null;index" json:"expiration_date"`
	IsEnabled       bool            `gorm:"not null" json:"is_enabled"`
	ArchivedStatus  ArchivedStatus  `gorm:"type:varchar(16);not null;default:''" json:"archived_status"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (*ReactorCycle) TableName() string {
	return "reactor_cycles"
}

func (c *ReactorCycle) StartDay() time.Time {
	return time.Time(c.TargetStartDate)
}

func (c *ReactorCycle) ExpirationDay() time.Time {
	return time.Time(c.ExpirationDate)
}

func (c *ReactorCycle) IsArchived() bool {
	return c.ArchivedStatus != ArchivedNone
}

func (c *ReactorCycle) IsDeleted() bool {
	return c.DeletedAt.Valid
}

// CalendarEntry is one day of a reactor availability calendar.
type CalendarEntry struct {
	Date        time.Time `json:"date"`
	IsAvailable bool      `json:"is_available"`
}
