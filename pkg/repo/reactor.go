package repo

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/uuid"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/shopspring/decimal"
)

// ReactorRepo reads with includeArchived=false return only live cycles
// (not soft deleted, no archived status). includeArchived=true returns every
// row ever written.
type ReactorRepo interface {
	TxRunner

	CreateReactor(ctx context.Context, r *model.Reactor) error
	RenameReactor(ctx context.Context, id int64, name string) error
	GetReactorByID(ctx context.Context, id int64) (*model.Reactor, error)
	GetReactorByUUID(ctx context.Context, id uuid.UUID) (*model.Reactor, error)
	GetReactorByName(ctx context.Context, name string) (*model.Reactor, error)
	ListReactors(ctx context.Context) ([]*model.Reactor, error)

	CreateCycle(ctx context.Context, c *model.ReactorCycle) error
	// UpdateCycle writes name, window, enabled flag and archived status.
	UpdateCycle(ctx context.Context, c *model.ReactorCycle) error
	DeleteCycle(ctx context.Context, id int64) error
	GetCycleByID(ctx context.Context, id int64, includeArchived bool) (*model.ReactorCycle, error)
	GetCycleByUUID(ctx context.Context, id uuid.UUID, includeArchived bool) (*model.ReactorCycle, error)
	ListCycles(ctx context.Context, reactorID int64, includeArchived bool) ([]*model.ReactorCycle, error)
	// LockCycle loads the cycle, soft deleted included, holding its row lock
	// until the surrounding transaction ends.
	LockCycle(ctx context.Context, id int64) (*model.ReactorCycle, error)
	// DecrementMass subtracts amount only while mass >= amount. It reports
	// false when the guard rejected the update.
	DecrementMass(ctx context.Context, id int64, amount decimal.Decimal) (bool, error)
	IncrementMass(ctx context.Context, id int64, amount decimal.Decimal) error
	// ArchiveExpired marks live cycles whose expiration is before today as
	// Expired and returns the affected reactor ids.
	ArchiveExpired(ctx context.Context, today time.Time) ([]int64, error)
}
