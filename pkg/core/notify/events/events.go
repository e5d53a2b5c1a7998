package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/alphadose/haxmap"
	"github.com/isoflow/clinicorder/internal/config"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/notify"
	"github.com/isoflow/clinicorder/pkg/middleware/logger"
	"github.com/isoflow/clinicorder/pkg/middleware/redis"
	"github.com/isoflow/clinicorder/pkg/utils"
	r "github.com/redis/go-redis/v9"
)

// redisEvents is a MsgCenter on redis pub/sub. Each action is one channel
// named <prefix>:<action>.
type redisEvents struct {
	client   *r.Client
	prefix   string
	handlers *haxmap.Map[notify.Action, *r.PubSub]
	wg       sync.WaitGroup
}

var (
	instance notify.MsgCenter
	once     sync.Once
)

// NewEvents returns the process wide MsgCenter bound to the shared redis
// client.
func NewEvents() notify.MsgCenter {
	once.Do(func() {
		instance = New(redis.GetClient(), config.Global().Job.NotifyChannel)
	})
	return instance
}

func New(client *r.Client, prefix string) notify.MsgCenter {
	return &redisEvents{
		client:   client,
		prefix:   prefix,
		handlers: haxmap.New[notify.Action, *r.PubSub](),
	}
}

func (e *redisEvents) channel(action notify.Action) string {
	return e.prefix + ":" + string(action)
}

func (e *redisEvents) Registry(ctx context.Context, action notify.Action, handleFunc notify.HandleFunc) error {
	sub := e.client.Subscribe(ctx, e.channel(action))
	if _, loaded := e.handlers.GetOrSet(action, sub); loaded {
		_ = sub.Close()
		return code.NotifyActionAlreadyRegistryErr.WithMsgf("action: %s", action)
	}
	// wait for the subscription to be confirmed so no broadcast is missed
	if _, err := sub.Receive(ctx); err != nil {
		e.handlers.Del(action)
		_ = sub.Close()
		return code.NotifySendMsgErr.WithErr(err)
	}

	e.wg.Add(1)
	utils.SafelyGo(func() {
		defer e.wg.Done()
		for msg := range sub.Channel() {
			if err := handleFunc(context.Background(), msg.Payload); err != nil {
				logger.Errorf(ctx, "notify handle action: %s err: %+v", action, err)
			}
		}
	}, func(err error) {
		logger.Errorf(ctx, "notify consumer action: %s panic: %+v", action, err)
	})
	return nil
}

func (e *redisEvents) Broadcast(ctx context.Context, msg *notify.SendMsg) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return code.NotifySendMsgErr.WithErr(err)
	}
	if err := e.client.Publish(ctx, e.channel(msg.Channel), raw).Err(); err != nil {
		return code.NotifySendMsgErr.WithErr(err)
	}
	return nil
}

func (e *redisEvents) Close(ctx context.Context) error {
	e.handlers.ForEach(func(action notify.Action, sub *r.PubSub) bool {
		if err := sub.Close(); err != nil {
			logger.Errorf(ctx, "close notify action: %s err: %+v", action, err)
		}
		e.handlers.Del(action)
		return true
	})
	e.wg.Wait()
	return nil
}
