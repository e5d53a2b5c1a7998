package web

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/core/archive/archive"
	"github.com/isoflow/clinicorder/pkg/core/mail"
	mailImpl "github.com/isoflow/clinicorder/pkg/core/mail/mail"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/repo/cache"
	"github.com/isoflow/clinicorder/pkg/repo/mailer"
	"github.com/isoflow/clinicorder/pkg/repo/queue"
	reactorRepo "github.com/isoflow/clinicorder/pkg/repo/reactor"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/isoflow/clinicorder/pkg/web/views/health"
)

// NewSchedule serves health and metrics, starts the mail worker and the
// archive sweep. The returned func stops both and waits for them.
func NewSchedule(ctx context.Context, g *gin.Engine) (context.CancelFunc, error) {
	installMiddleware(g)
	installCommonURL(g, health.New(map[string]health.Check{
		"postgres": health.Postgres,
		"redis":    health.Redis,
	}))

	conf := config.Global()
	workerConf, err := config.LoadWorker(ctx)
	if err != nil {
		return nil, err
	}
	worker, err := mailImpl.New(queue.NewMail(conf.Job.MailQueueName), mailer.New(&mailer.Config{
		Addr:    conf.Mail.Addr,
		APIKey:  conf.Mail.APIKey,
		From:    conf.Mail.From,
		Timeout: conf.Mail.Timeout,
	}), mail.Config{
		PoolSize:   workerConf.PoolSize,
		RatePerSec: workerConf.RatePerSec,
		Burst:      workerConf.Burst,
		PopTimeout: workerConf.PopTimeout,
		MaxRetry:   workerConf.MaxRetry,
	})
	if err != nil {
		return nil, err
	}

	stopSweep, err := archive.New(reactorRepo.New(),
		archive.WithCache(cache.NewCalendar(conf.Job.CalendarKeyBase)),
	).Start(ctx, conf.Schedule.ArchiveSpec)
	if err != nil {
		return nil, err
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	done := make(chan struct{})
	utils.SafelyGo(func() {
		defer close(done)
		if err := worker.Run(workerCtx); err != nil {
			logger.Errorf(workerCtx, "mail worker exit err: %+v", err)
		}
	}, func(err error) {
		logger.Errorf(ctx, "mail worker panic: %+v", err)
	})

	return func() {
		cancelWorker()
		<-done
		stopSweep()
	}, nil
}
