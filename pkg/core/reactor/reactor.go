package reactor

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/shopspring/decimal"
)

type Service interface {
	ListReactors(ctx context.Context, caller *core.Caller) ([]*ReactorResp, error)
	CreateReactor(ctx context.Context, caller *core.Caller, req *CreateReactorReq) (*ReactorResp, error)
	RenameReactor(ctx context.Context, caller *core.Caller, req *RenameReactorReq) (*ReactorResp, error)

	CreateCycle(ctx context.Context, caller *core.Caller, req *CreateCycleReq) (*CycleResp, error)
	UpdateCycle(ctx context.Context, caller *core.Caller, req *UpdateCycleReq) (*CycleResp, error)
	ArchiveCycle(ctx context.Context, caller *core.Caller, req *CycleReq) (*CycleResp, error)
	DeleteCycle(ctx context.Context, caller *core.Caller, req *CycleReq) error
	ListCycles(ctx context.Context, caller *core.Caller, req *ListCyclesReq) ([]*CycleResp, error)

	AvailableCycles(ctx context.Context, caller *core.Caller, req *AvailableCyclesReq) ([]*CycleResp, error)
	Calendar(ctx context.Context, caller *core.Caller, req *CalendarReq) (*CalendarResp, error)
}

type ReactorResp struct {
	UUID   uuid.UUID `json:"uuid"`
	Name   string    `json:"name"`
	Cycles int       `json:"cycles"`
}

type CreateReactorReq struct {
	Name string `json:"name" binding:"required"`
}

type RenameReactorReq struct {
	UUID uuid.UUID `json:"-"`
	Name string    `json:"name" binding:"required"`
}

type CycleResp struct {
	UUID            uuid.UUID       `json:"uuid"`
	ReactorUUID     uuid.UUID       `json:"reactor_uuid"`
	Name            string          `json:"name"`
	Mass            decimal.Decimal `json:"mass"`
	TargetStartDate string          `json:"target_start_date"`
	ExpirationDate  string          `json:"expiration_date"`
	IsEnabled       bool            `json:"is_enabled"`
	ArchivedStatus  string          `json:"archived_status,omitempty"`
	IsDeleted       bool            `json:"is_deleted,omitempty"`
	// IsAvailable is set on availability queries for the requested date.
	IsAvailable *bool `json:"is_available,omitempty"`
}

type CreateCycleReq struct {
	ReactorUUID     uuid.UUID       `json:"reactor_uuid"`
	Name            string          `json:"name" binding:"required"`
	Mass            decimal.Decimal `json:"mass"`
	TargetStartDate string          `json:"target_start_date" binding:"required"`
	ExpirationDate  string          `json:"expiration_date" binding:"required"`
	IsEnabled       *bool           `json:"is_enabled"`
}

type UpdateCycleReq struct {
	UUID            uuid.UUID `json:"-"`
	Name            *string   `json:"name"`
	TargetStartDate *string   `json:"target_start_date"`
	ExpirationDate  *string   `json:"expiration_date"`
	IsEnabled       *bool     `json:"is_enabled"`
}

type CycleReq struct {
	UUID uuid.UUID `json:"-"`
}

type ListCyclesReq struct {
	ReactorUUID     string `form:"reactor_uuid"`
	IncludeArchived bool   `form:"include_archived"`
}

type AvailableCyclesReq struct {
	ReactorName string `form:"reactor_name" binding:"required"`
	Date        string `form:"date" binding:"required"`
	OrderUUID   string `form:"order_uuid"`
	Dosage      string `form:"dosage"`
}

// CalendarReq selects a month (Month, Year) or an explicit range (From, To).
type CalendarReq struct {
	ReactorName string `form:"reactor_name" binding:"required"`
	Month       int    `form:"month"`
	Year        int    `form:"year"`
	From        string `form:"from"`
	To          string `form:"to"`
}

type CalendarEntryResp struct {
	Date        string `json:"date"`
	IsAvailable bool   `json:"is_available"`
}

type CalendarResp struct {
	ReactorName string               `json:"reactor_name"`
	From        string               `json:"from"`
	To          string               `json:"to"`
	Entries     []*CalendarEntryResp `json:"entries"`
}
