package memory

import (
	"context"
	"time"

	"github.com/isoflow/clinicorder/pkg/repo/model"
)

type MailQueue struct {
	jobs chan *model.MailJob
}

func NewMailQueue(size int) *MailQueue {
	return &MailQueue{jobs: make(chan *model.MailJob, size)}
}

func (q *MailQueue) Enqueue(ctx context.Context, job *model.MailJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*model.MailJob, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case job := <-q.jobs:
		return job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MailQueue) Len() int {
	return len(q.jobs)
}
