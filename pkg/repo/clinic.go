package repo

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/common"
	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type ClinicRepo interface {
	CreateClinic(ctx context.Context, c *model.Clinic) error
	// UpdateClinic writes name, contact fields and the active flag.
	UpdateClinic(ctx context.Context, c *model.Clinic) error
	GetClinicByID(ctx context.Context, id int64) (*model.Clinic, error)
	GetClinicByUUID(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	GetClinicByUserID(ctx context.Context, userID string) (*model.Clinic, error)
	ListClinics(ctx context.Context, page *common.PageReq) ([]*model.Clinic, int64, error)
}
