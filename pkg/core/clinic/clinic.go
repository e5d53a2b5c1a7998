package clinic

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type Service interface {
	// ResolveCaller maps an authenticated user to the caller identity used
	// by every other service.
	ResolveCaller(ctx context.Context, user *model.UserData) (*core.Caller, error)

	CreateClinic(ctx context.Context, caller *core.Caller, req *CreateReq) (*ClinicResp, error)
	UpdateClinic(ctx context.Context, caller *core.Caller, req *UpdateReq) (*ClinicResp, error)
	ListClinics(ctx context.Context, caller *core.Caller, req *common.PageReq) (*common.PageResp[[]*ClinicResp], error)

	Profile(ctx context.Context, caller *core.Caller) (*ClinicResp, error)
	UpdateProfile(ctx context.Context, caller *core.Caller, req *ProfileReq) (*ClinicResp, error)
}

type CreateReq struct {
	UserID  string `json:"user_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ProfileReq struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type UpdateReq struct {
	UUID uuid.UUID `json:"-"`
	ProfileReq
	IsActive *bool `json:"is_active"`
}

type ClinicResp struct {
	UUID      uuid.UUID `json:"uuid"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
