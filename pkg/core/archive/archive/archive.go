package archive

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core"
	"github.com/isoflow/clinicorder/pkg/core/archive"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/metrics"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/utils"
	"github.com/robfig/cron/v3"
)

type sweeper struct {
	reactors repo.ReactorRepo
	cache    repo.CalendarCache
	now      core.Clock
}

type Option func(*sweeper)

func WithClock(now core.Clock) Option {
	return func(s *sweeper) {
		s.now = now
	}
}

func WithCache(cache repo.CalendarCache) Option {
	return func(s *sweeper) {
		s.cache = cache
	}
}

func New(reactors repo.ReactorRepo, opts ...Option) archive.Sweeper {
	s := &sweeper{reactors: reactors, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sweeper) Sweep(ctx context.Context) (int, error) {
	today := utils.Day(s.now())
	reactorIDs, err := s.reactors.ArchiveExpired(ctx, today)
	if err != nil {
		return 0, code.UpdateDataErr.WithErr(err)
	}
	for _, id := range reactorIDs {
		metrics.ReactorsArchived.Inc()
		if s.cache == nil {
			continue
		}
		if err := s.cache.InvalidateReactor(ctx, id); err != nil {
			logger.Warnf(ctx, "archive invalidate reactor: %d err: %+v", id, err)
		}
	}
	if len(reactorIDs) > 0 {
		logger.Infof(ctx, "archive sweep today: %s reactors: %v", utils.FormatDate(today), reactorIDs)
	}
	return len(reactorIDs), nil
}

func (s *sweeper) Start(ctx context.Context, spec string) (func(), error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			logger.Errorf(ctx, "archive sweep err: %+v", err)
		}
	}); err != nil {
		return nil, code.ParamErr.WithMsgf("archive spec %q: %v", spec, err)
	}
	c.Start()
	logger.Infof(ctx, "archive sweep scheduled: %s", spec)
	return func() {
		<-c.Stop().Done()
	}, nil
}
