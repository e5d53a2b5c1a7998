package migrate

import (
	"context"

	"github.com/isoflow/clinicorder/pkg/middleware/db"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

func Table(ctx context.Context) error {
	d := db.DB().DBWithContext(ctx)
	models := []any{
		&model.Reactor{},
		&model.ReactorCycle{},
		&model.Clinic{},
		&model.Order{},
		&model.Notification{},
	}
	for _, m := range models {
		if err := d.AutoMigrate(m); err != nil {
			logger.Errorf(ctx, "migrate table err: %+v", err)
			return err
		}
	}
	logger.Infof(ctx, "migrate %d tables done", len(models))
	return nil
}
