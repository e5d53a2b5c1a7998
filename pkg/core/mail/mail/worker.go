package mail

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/mail"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"
)

const releaseTimeout = 30 * time.Second

type worker struct {
	queue   repo.MailQueue
	sender  repo.MailSender
	conf    mail.Config
	pool    *ants.Pool
	limiter *rate.Limiter
	wg      sync.WaitGroup
}

func New(queue repo.MailQueue, sender repo.MailSender, conf mail.Config) (mail.Worker, error) {
	if conf.PoolSize <= 0 {
		conf.PoolSize = ants.DefaultAntsPoolSize
	}
	if conf.PopTimeout <= 0 {
		conf.PopTimeout = 5 * time.Second
	}
	if conf.MaxRetry <= 0 {
		conf.MaxRetry = 1
	}
	limit := rate.Inf
	if conf.RatePerSec > 0 {
		limit = rate.Limit(conf.RatePerSec)
	}
	pool, err := ants.NewPool(conf.PoolSize, ants.WithPanicHandler(func(p any) {
		logger.Errorf(context.Background(), "mail worker panic: %+v", p)
	}))
	if err != nil {
		return nil, err
	}
	return &worker{
		queue:   queue,
		sender:  sender,
		conf:    conf,
		pool:    pool,
		limiter: rate.NewLimiter(limit, max(conf.Burst, 1)),
	}, nil
}

func (w *worker) Run(ctx context.Context) error {
	defer func() {
		w.wg.Wait()
		if err := w.pool.ReleaseTimeout(releaseTimeout); err != nil {
			logger.Warnf(context.Background(), "mail worker release pool err: %+v", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := w.queue.Dequeue(ctx, w.conf.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Errorf(ctx, "mail worker dequeue err: %+v", err)
			metrics.MailJobs.WithLabelValues("dequeue", "error").Inc()
			sleep(ctx, w.conf.PopTimeout)
			continue
		}
		if job == nil {
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			w.requeue(context.WithoutCancel(ctx), job)
			return nil
		}

		w.wg.Add(1)
		if err := w.pool.Submit(func() {
			defer w.wg.Done()
			_ = w.Handle(context.WithoutCancel(ctx), job)
		}); err != nil {
			w.wg.Done()
			logger.Errorf(ctx, "mail worker submit err: %+v", err)
			w.requeue(ctx, job)
		}
	}
}

// Handle sends one job. A failed send is put back on the queue until the
// job has used MaxRetry attempts.
func (w *worker) Handle(ctx context.Context, job *model.MailJob) error {
	err := w.sender.Send(ctx, job)
	if err == nil {
		metrics.MailJobs.WithLabelValues("send", "ok").Inc()
		logger.Infof(ctx, "mail sent kind: %s to: %s attempt: %d", job.Kind, job.To, job.Attempt)
		return nil
	}
	metrics.MailJobs.WithLabelValues("send", "error").Inc()
	job.Attempt++
	if job.Attempt >= w.conf.MaxRetry || errors.Is(err, code.MailPayloadErr) {
		logger.Errorf(ctx, "mail dropped kind: %s to: %s attempts: %d err: %+v", job.Kind, job.To, job.Attempt, err)
		return err
	}
	logger.Warnf(ctx, "mail retry kind: %s to: %s attempt: %d err: %+v", job.Kind, job.To, job.Attempt, err)
	w.requeue(ctx, job)
	return err
}

func (w *worker) requeue(ctx context.Context, job *model.MailJob) {
	if err := w.queue.Enqueue(ctx, job); err != nil {
		metrics.MailJobs.WithLabelValues("enqueue", "error").Inc()
		logger.Errorf(ctx, "mail requeue kind: %s to: %s err: %+v", job.Kind, job.To, err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
