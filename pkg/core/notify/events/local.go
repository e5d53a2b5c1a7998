package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/core/notify"
)

// localEvents delivers broadcasts synchronously inside the process.
type localEvents struct {
	mu       sync.RWMutex
	handlers map[notify.Action]notify.HandleFunc
}

func NewLocal() notify.MsgCenter {
	return &localEvents{handlers: make(map[notify.Action]notify.HandleFunc)}
}

func (l *localEvents) Registry(_ context.Context, action notify.Action, handleFunc notify.HandleFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.handlers[action]; ok {
		return code.NotifyActionAlreadyRegistryErr.WithMsgf("action: %s", action)
	}
	l.handlers[action] = handleFunc
	return nil
}

func (l *localEvents) Broadcast(ctx context.Context, msg *notify.SendMsg) error {
	l.mu.RLock()
	fn, ok := l.handlers[msg.Channel]
	l.mu.RUnlock()
	if !ok {
		return nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return code.NotifySendMsgErr.WithErr(err)
	}
	return fn(ctx, string(raw))
}

func (l *localEvents) Close(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = make(map[notify.Action]notify.HandleFunc)
	return nil
}
