package clinic

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/clinic"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/isoflow/clinicorder/pkg/utils"
	"gorm.io/gorm"
)

type clinicImpl struct {
	clinics   repo.ClinicRepo
	adminRole string
}

func New(clinics repo.ClinicRepo, adminRole string) clinic.Service {
	return &clinicImpl{clinics: clinics, adminRole: adminRole}
}

func (c *clinicImpl) ResolveCaller(ctx context.Context, user *model.UserData) (*core.Caller, error) {
	if user == nil || user.ID == "" {
		return nil, code.UnLogin
	}
	caller := &core.Caller{UserID: user.ID, IsAdmin: user.HasRole(c.adminRole)}
	data, err := c.clinics.GetClinicByUserID(ctx, user.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, code.QueryRecordErr.WithErr(err)
	case data.IsActive:
		caller.ClinicID = data.ID
	default:
		if !caller.IsAdmin {
			return nil, code.ClinicInactiveErr
		}
	}
	return caller, nil
}

func requireAdmin(caller *core.Caller) error {
	if caller == nil || !caller.IsAdmin {
		return code.NoPermission
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (c *clinicImpl) CreateClinic(ctx context.Context, caller *core.Caller, req *clinic.CreateReq) (*clinic.ClinicResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	data := &model.Clinic{
		UserID:   strings.TrimSpace(req.UserID),
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    req.Phone,
		Address:  req.Address,
		IsActive: true,
	}
	if data.UserID == "" || data.Name == "" {
		return nil, code.ParamErr.WithMsg("user_id and name are required")
	}
	if !validEmail(data.Email) {
		return nil, code.ParamErr.WithMsgf("email: %s", req.Email)
	}
	if err := c.clinics.CreateClinic(ctx, data); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, code.ClinicExistErr.WithMsgf("user_id: %s", data.UserID)
		}
		return nil, code.CreateDataErr.WithErr(err)
	}
	logger.Infof(ctx, "clinic created uuid: %s user: %s by: %s", data.UUID, data.UserID, caller.UserID)
	return toResp(data), nil
}

func applyProfile(data *model.Clinic, req *clinic.ProfileReq) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return code.ParamErr.WithMsg("name is empty")
		}
		data.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !validEmail(email) {
			return code.ParamErr.WithMsgf("email: %s", *req.Email)
		}
		data.Email = email
	}
	if req.Phone != nil {
		data.Phone = *req.Phone
	}
	if req.Address != nil {
		data.Address = *req.Address
	}
	return nil
}

func (c *clinicImpl) UpdateClinic(ctx context.Context, caller *core.Caller, req *clinic.UpdateReq) (*clinic.ClinicResp, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	data, err := c.clinics.GetClinicByUUID(ctx, req.UUID)
	if err != nil {
		return nil, core.StoreErr(err, code.ClinicNotFound, code.QueryRecordErr)
	}
	if err := applyProfile(data, &req.ProfileReq); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		data.IsActive = *req.IsActive
	}
	if err := c.clinics.UpdateClinic(ctx, data); err != nil {
		return nil, core.StoreErr(err, code.ClinicNotFound, code.UpdateDataErr)
	}
	return toResp(data), nil
}

func (c *clinicImpl) ListClinics(ctx context.Context, caller *core.Caller, req *common.PageReq) (*common.PageResp[[]*clinic.ClinicResp], error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	page := *req
	datas, total, err := c.clinics.ListClinics(ctx, &page)
	if err != nil {
		return nil, code.QueryRecordErr.WithErr(err)
	}
	return &common.PageResp[[]*clinic.ClinicResp]{
		Data: utils.FilterSlice(datas, func(d *model.Clinic) (*clinic.ClinicResp, bool) {
			return toResp(d), true
		}),
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

func (c *clinicImpl) own(ctx context.Context, caller *core.Caller) (*model.Clinic, error) {
	if caller == nil || caller.ClinicID == 0 {
		return nil, code.ClinicNotFound
	}
	data, err := c.clinics.GetClinicByID(ctx, caller.ClinicID)
	if err != nil {
		return nil, core.StoreErr(err, code.ClinicNotFound, code.QueryRecordErr)
	}
	return data, nil
}

func (c *clinicImpl) Profile(ctx context.Context, caller *core.Caller) (*clinic.ClinicResp, error) {
	data, err := c.own(ctx, caller)
	if err != nil {
		return nil, err
	}
	return toResp(data), nil
}

func (c *clinicImpl) UpdateProfile(ctx context.Context, caller *core.Caller, req *clinic.ProfileReq) (*clinic.ClinicResp, error) {
	data, err := c.own(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(data, req); err != nil {
		return nil, err
	}
	if err := c.clinics.UpdateClinic(ctx, data); err != nil {
		return nil, core.StoreErr(err, code.ClinicNotFound, code.UpdateDataErr)
	}
	return toResp(data), nil
}

func toResp(d *model.Clinic) *clinic.ClinicResp {
	return &clinic.ClinicResp{
		UUID:      d.UUID,
		UserID:    d.UserID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Address:   d.Address,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
	}
}
