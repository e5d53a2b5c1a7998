package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/redis/go-redis/extra/rediscmd/v9"
	r "github.com/redis/go-redis/v9"
)

const slowCommand = 200 * time.Millisecond

// logHook reports failed and slow commands.
type logHook struct{}

func (h *logHook) DialHook(next r.DialHook) r.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			logger.Errorf(ctx, "redis dial %s err: %+v", addr, err)
		}
		return conn, err
	}
}

func (h *logHook) ProcessHook(next r.ProcessHook) r.ProcessHook {
	return func(ctx context.Context, cmd r.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		cost := time.Since(start)
		switch {
		case err != nil && !errors.Is(err, r.Nil):
			logger.Errorf(ctx, "redis cmd: %s err: %+v", rediscmd.CmdString(cmd), err)
		case cost > slowCommand && !isBlocking(cmd):
			logger.Warnf(ctx, "redis slow cmd: %s cost: %s", rediscmd.CmdString(cmd), cost)
		}
		return err
	}
}

func (h *logHook) ProcessPipelineHook(next r.ProcessPipelineHook) r.ProcessPipelineHook {
	return func(ctx context.Context, cmds []r.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, r.Nil) {
			_, summary := rediscmd.CmdsString(cmds)
			logger.Errorf(ctx, "redis pipeline: %s err: %+v", summary, err)
		}
		return err
	}
}

func isBlocking(cmd r.Cmder) bool {
	switch cmd.Name() {
	case "brpop", "blpop", "subscribe", "psubscribe":
		return true
	}
	return false
}
