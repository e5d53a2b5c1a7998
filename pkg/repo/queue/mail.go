package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/middleware/redis"
	"github.com/isoflow/clinicorder/pkg/repo"
	"github.com/isoflow/clinicorder/pkg/repo/model"
	r "github.com/redis/go-redis/v9"
)

// mailQueue is a redis list. Producers LPUSH, the worker BRPOPs, so jobs are
// consumed in enqueue order.
type mailQueue struct {
	client *r.Client
	name   string
}

func NewMail(name string) repo.MailQueue {
	return NewMailWithClient(redis.GetClient(), name)
}

func NewMailWithClient(client *r.Client, name string) repo.MailQueue {
	return &mailQueue{client: client, name: name}
}

func (q *mailQueue) Enqueue(ctx context.Context, job *model.MailJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return code.MailPayloadErr.WithErr(err)
	}
	if err := q.client.LPush(ctx, q.name, raw).Err(); err != nil {
		return code.MailEnqueueErr.WithErr(err)
	}
	return nil
}

func (q *mailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.MailJob, error) {
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if errors.Is(err, r.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res is [key, value]
	if len(res) != 2 {
		return nil, code.MailPayloadErr.WithMsgf("unexpected brpop reply len %d", len(res))
	}
	job := &model.MailJob{}
	if err := json.Unmarshal([]byte(res[1]), job); err != nil {
		return nil, code.MailPayloadErr.WithErr(err)
	}
	return job, nil
}
